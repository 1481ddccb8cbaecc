package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/epi-series-service/internal/domain"
	"github.com/couchcryptid/epi-series-service/internal/observability"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
)

// BatchExtractor reads up to batchSize raw query messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns a raw query message into a reply.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader writes multiple replies to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline runs the extract-compute-load loop for asynchronous chart queries.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int

	ready   atomic.Bool
	backoff time.Duration
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		backoff:     initialBackoff,
	}
}

// CheckReadiness reports whether the last poll of the source succeeded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("query pipeline is not connected to its source")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer func() {
		p.metrics.PipelineRunning.Set(0)
		p.ready.Store(false)
	}()

	for ctx.Err() == nil {
		if !p.processBatch(ctx) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// processBatch runs one extract-compute-load cycle. It returns false when the
// pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.ready.Store(false)
		p.logger.Error("extract batch failed", "error", err)
		return p.wait(ctx)
	}
	p.ready.Store(true)

	if len(rawBatch) == 0 {
		return true
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	p.backoff = initialBackoff

	if !p.transformAndLoad(ctx, rawBatch) {
		return false
	}
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	return true
}

// transformAndLoad answers every decodable message, publishes the replies as
// one batch, then commits. Undecodable messages are committed and dropped so
// they cannot block the partition. On a load failure nothing is committed; the
// reader has already moved past the batch, so it comes back only after a
// rebalance or restart.
func (p *Pipeline) transformAndLoad(ctx context.Context, rawBatch []domain.RawEvent) bool {
	replies := make([]domain.OutputEvent, 0, len(rawBatch))
	answered := make([]domain.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		out, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("undecodable query, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commit(ctx, raw)
			continue
		}
		replies = append(replies, out)
		answered = append(answered, raw)
	}

	if len(replies) == 0 {
		return true
	}

	if err := p.loader.LoadBatch(ctx, replies); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(replies))
		return p.wait(ctx)
	}
	p.metrics.MessagesProduced.Add(float64(len(replies)))

	for _, raw := range answered {
		p.commit(ctx, raw)
	}
	return true
}

// wait sleeps for the current backoff and doubles it. It returns false if the
// context ends first.
func (p *Pipeline) wait(ctx context.Context) bool {
	if !sharedretry.SleepWithContext(ctx, p.backoff) {
		return false
	}
	p.backoff = sharedretry.NextBackoff(p.backoff, maxBackoff)
	return true
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
