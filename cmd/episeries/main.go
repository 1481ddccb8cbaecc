package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/epi-series-service/internal/adapter/csse"
	httpadapter "github.com/couchcryptid/epi-series-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/epi-series-service/internal/adapter/kafka"
	"github.com/couchcryptid/epi-series-service/internal/config"
	"github.com/couchcryptid/epi-series-service/internal/domain"
	"github.com/couchcryptid/epi-series-service/internal/observability"
	"github.com/couchcryptid/epi-series-service/internal/pipeline"
)

// readiness combines the loaded dataset with the optional query pipeline.
type readiness struct {
	pipeline *pipeline.Pipeline
}

func (r readiness) CheckReadiness(ctx context.Context) error {
	if r.pipeline == nil {
		return nil
	}
	return r.pipeline.CheckReadiness(ctx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		logger.Error("failed to load profile", "error", err)
		os.Exit(1)
	}

	loader := csse.NewLoader(profile.Regions, logger, csse.WithAliases(profile.AliasMap()))
	ds, err := loader.LoadDir(cfg.DataDir, csse.Files(profile.Files))
	if err != nil {
		logger.Error("failed to load dataset", "data_dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	metrics.DatasetRegions.Set(float64(len(ds.Regions())))
	metrics.DatasetDates.Set(float64(len(ds.Dates())))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ready readiness
	var closers []func() error
	if cfg.KafkaEnabled {
		ready.pipeline, closers = startPipeline(ctx, cfg, ds, logger, metrics)
	} else {
		logger.Info("kafka query pipeline disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, ds, ready, logger, httpadapter.Options{
		DefaultSelection: defaultSelection(profile, ds),
		RenderWidth:      cfg.RenderWidth,
		RenderHeight:     cfg.RenderHeight,
		Metrics:          metrics,
	})

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// startPipeline wires the Kafka reader and writer around the query
// transformer and runs the loop in the background.
func startPipeline(ctx context.Context, cfg *config.Config, ds *domain.Dataset, logger *slog.Logger, metrics *observability.Metrics) (*pipeline.Pipeline, []func() error) {
	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(ds, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	return p, []func() error{reader.Close, writer.Close}
}

// defaultSelection drops profile defaults that were missing from the tables.
func defaultSelection(profile config.Profile, ds *domain.Dataset) []string {
	out := make([]string, 0, len(profile.DefaultSelection))
	for _, region := range profile.DefaultSelection {
		if _, err := ds.Lookup(region); err == nil {
			out = append(out, region)
		}
	}
	return out
}
