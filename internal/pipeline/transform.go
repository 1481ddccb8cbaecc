package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/epi-series-service/internal/domain"
	"github.com/couchcryptid/epi-series-service/internal/observability"
	"github.com/google/uuid"
)

// QueryTransformer answers chart queries against a fixed Dataset. Engine
// failures (unknown region, no cases, ...) become error replies; only
// undecodable messages are returned as errors.
type QueryTransformer struct {
	dataset *domain.Dataset
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates a QueryTransformer over ds.
func NewTransformer(ds *domain.Dataset, logger *slog.Logger, metrics *observability.Metrics) *QueryTransformer {
	return &QueryTransformer{
		dataset: ds,
		logger:  logger,
		metrics: metrics,
	}
}

func (t *QueryTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseQueryRequest(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	start := time.Now()
	res, err := t.answer(req)
	t.metrics.ObserveQuery(chartLabel(req.Chart), domain.Kind(err), time.Since(start))

	if err != nil {
		t.logger.Info("query failed",
			"request_id", req.RequestID,
			"chart", req.Chart,
			"regions", req.Regions,
			"kind", domain.Kind(err),
			"error", err,
		)
	}

	return domain.SerializeResponse(domain.NewResponse(req.RequestID, res, err))
}

func (t *QueryTransformer) answer(req domain.QueryRequest) (domain.Result, error) {
	q, err := req.Query()
	if err != nil {
		return domain.Result{}, err
	}
	return domain.Compute(t.dataset, q)
}

// chartLabel bounds metric cardinality to the ChartKind names.
func chartLabel(name string) string {
	k, err := domain.ParseChartKind(name)
	if err != nil {
		return "unknown"
	}
	return k.String()
}
