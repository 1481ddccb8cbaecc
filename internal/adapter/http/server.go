package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/epi-series-service/internal/adapter/render"
	"github.com/couchcryptid/epi-series-service/internal/domain"
	"github.com/couchcryptid/epi-series-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the query API. Zero values fall back to defaults.
type Options struct {
	// DefaultSelection is used when a request carries no region parameter.
	DefaultSelection []string
	RenderWidth      int
	RenderHeight     int
	// Metrics is optional; nil disables query metrics.
	Metrics *observability.Metrics
}

// Server exposes health, readiness, metrics, and the synchronous chart query API.
type Server struct {
	httpServer *http.Server
	dataset    *domain.Dataset
	opts       Options
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// /v1 query routes over ds.
func NewServer(addr string, ds *domain.Dataset, ready sharedobs.ReadinessChecker, logger *slog.Logger, opts Options) *Server {
	if opts.RenderWidth == 0 {
		opts.RenderWidth = 1024
	}
	if opts.RenderHeight == 0 {
		opts.RenderHeight = 600
	}

	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dataset: ds,
		opts:    opts,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/regions", s.handleRegions)
	mux.HandleFunc("GET /v1/charts", s.handleCharts)
	mux.HandleFunc("GET /v1/series", s.handleSeries)
	mux.HandleFunc("GET /v1/chart", s.handleChart)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type regionInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type regionsResponse struct {
	Regions          []regionInfo `json:"regions"`
	DefaultSelection []string     `json:"default_selection"`
	FirstDate        string       `json:"first_date,omitempty"`
	LastDate         string       `json:"last_date,omitempty"`
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	keys := s.dataset.Regions()
	resp := regionsResponse{
		Regions:          make([]regionInfo, len(keys)),
		DefaultSelection: s.defaultSelection(),
	}
	for i, k := range keys {
		resp.Regions[i] = regionInfo{Key: k, Name: s.dataset.DisplayName(k)}
	}
	if dates := s.dataset.Dates(); len(dates) > 0 {
		resp.FirstDate = dates[0].Format(time.DateOnly)
		resp.LastDate = dates[len(dates)-1].Format(time.DateOnly)
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

type chartInfo struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	XLabel string `json:"x_label"`
	YLabel string `json:"y_label"`
}

func (s *Server) handleCharts(w http.ResponseWriter, _ *http.Request) {
	kinds := domain.Charts()
	charts := make([]chartInfo, len(kinds))
	for i, k := range kinds {
		charts[i] = chartInfo{Name: k.String(), Title: k.Title(), XLabel: k.XLabel(), YLabel: k.YLabel()}
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"charts": charts})
}

// handleSeries answers a chart query with the JSON response envelope.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	id := requestID(r)
	res, err := s.query(r)
	if err != nil {
		s.writeError(w, id, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.NewResponse(id, res, nil))
}

// handleChart answers a chart query with a rendered image.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	id := requestID(r)
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, domain.QueryResponse{
			RequestID: id,
			Status:    domain.StatusError,
			Error:     &domain.ErrorBody{Kind: "bad_request", Message: err.Error()},
		})
		return
	}

	res, err := s.query(r)
	if err != nil {
		s.writeError(w, id, err)
		return
	}

	renderer := render.New(s.opts.RenderWidth, s.opts.RenderHeight, format)
	var buf bytes.Buffer
	if err := renderer.Render(&buf, res); err != nil {
		if errors.Is(err, render.ErrNothingToRender) {
			sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, domain.QueryResponse{
				RequestID: id,
				Status:    domain.StatusError,
				Error:     &domain.ErrorBody{Kind: "nothing_to_render", Message: err.Error()},
			})
			return
		}
		s.logger.Error("render chart failed", "request_id", id, "chart", res.Chart, "error", err)
		s.writeError(w, id, err)
		return
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("X-Request-ID", id)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}

// query parses the chart, scale, and region parameters and runs the engine.
func (s *Server) query(r *http.Request) (domain.Result, error) {
	params := r.URL.Query()
	req := domain.QueryRequest{
		Chart:   params.Get("chart"),
		Scale:   params.Get("scale"),
		Regions: s.regions(r),
	}

	start := time.Now()
	res, err := s.compute(req)
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveQuery(chartLabel(req.Chart), domain.Kind(err), time.Since(start))
	}
	if err != nil {
		s.logger.Info("query failed",
			"chart", req.Chart,
			"regions", req.Regions,
			"kind", domain.Kind(err),
			"error", err,
		)
	}
	return res, err
}

func (s *Server) compute(req domain.QueryRequest) (domain.Result, error) {
	q, err := req.Query()
	if err != nil {
		return domain.Result{}, err
	}
	return domain.Compute(s.dataset, q)
}

// regions returns the repeated region parameter with empty values removed. A
// request without any region parameter gets the default selection. Region keys
// may contain commas, so values are not split.
func (s *Server) regions(r *http.Request) []string {
	values, ok := r.URL.Query()["region"]
	if !ok {
		return s.defaultSelection()
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s *Server) defaultSelection() []string {
	if s.opts.DefaultSelection == nil {
		return []string{}
	}
	return append([]string(nil), s.opts.DefaultSelection...)
}

func (s *Server) writeError(w http.ResponseWriter, id string, err error) {
	sharedobs.WriteJSON(w, statusFor(err), domain.NewResponse(id, domain.Result{}, err))
}

// statusFor maps an engine error kind to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownRegion):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownChart), errors.Is(err, domain.ErrUnknownScale):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoCasesRecorded), errors.Is(err, domain.ErrNoActiveCases):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

func chartLabel(name string) string {
	k, err := domain.ParseChartKind(name)
	if err != nil {
		return "unknown"
	}
	return k.String()
}
