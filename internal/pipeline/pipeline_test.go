package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/epi-series-service/internal/domain"
	"github.com/couchcryptid/epi-series-service/internal/observability"
	"github.com/couchcryptid/epi-series-service/internal/pipeline"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	errs    []error
	calls   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	i := int(m.calls.Add(1) - 1)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.batches) {
		return m.batches[i], nil
	}
	// block until context cancelled to simulate waiting for messages
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.err != nil {
		return domain.OutputEvent{}, m.err
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   []domain.OutputEvent
	failures int
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) Loaded() []domain.OutputEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutputEvent(nil), m.loaded...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawQuery(t *testing.T, key string, req domain.QueryRequest) domain.RawEvent {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return domain.RawEvent{Key: []byte(key), Value: data, Topic: "chart-queries"}
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- pipeline tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := domain.RawEvent{Key: []byte("req-1"), Value: []byte(`{"chart":"time_series"}`)}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.Loaded()
	require.Len(t, loaded, 1)
	assert.Equal(t, raw.Value, loaded[0].Value)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MessagesConsumed))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MessagesProduced))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.Loaded())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_UndecodableMessageIsCommittedAndSkipped(t *testing.T) {
	var committed atomic.Bool
	raw := domain.RawEvent{Key: []byte("bad"), Value: []byte("not-json{{{")}
	raw.Commit = func(context.Context) error {
		committed.Store(true)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{err: errors.New("bad data")}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.Loaded())
	assert.True(t, committed.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransformErrors))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var commits atomic.Int64
	commit := func(context.Context) error {
		commits.Add(1)
		return nil
	}
	a := domain.RawEvent{Key: []byte("a"), Value: []byte(`{}`), Commit: commit}
	b := domain.RawEvent{Key: []byte("b"), Value: []byte(`{}`), Commit: commit}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{a, b}}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Len(t, ldr.Loaded(), 2)
	assert.Equal(t, int64(2), commits.Load())
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var commits atomic.Int64
	raw := domain.RawEvent{Key: []byte("a"), Value: []byte(`{}`), Commit: func(context.Context) error {
		commits.Add(1)
		return nil
	}}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{failures: 1}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 400*time.Millisecond)

	assert.Empty(t, ldr.Loaded())
	assert.Equal(t, int64(0), commits.Load())
}

func TestPipeline_ReadinessFollowsExtractor(t *testing.T) {
	ext := &mockExtractor{
		errs:    []error{errors.New("connection refused")},
		batches: [][]domain.RawEvent{nil, {}},
	}

	p := pipeline.New(ext, &mockTransformer{}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)
	require.Error(t, p.CheckReadiness(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		return p.CheckReadiness(context.Background()) == nil
	}, 2*time.Second, 10*time.Millisecond, "pipeline should recover after backoff")

	cancel()
	require.NoError(t, <-done)
	assert.Error(t, p.CheckReadiness(context.Background()), "stopped pipeline is not ready")
}

// --- transformer tests ---

const (
	testRegionA = "Argentina"
	testRegionK = "Korea, South"
)

func testDataset(t *testing.T) *domain.Dataset {
	t.Helper()
	ds, err := domain.NewDataset(nil, map[string]domain.RegionSeries{
		testRegionA: {
			Confirmed: domain.Series{0, 1, 3, 5, 8},
			Recovered: domain.Series{0, 0, 1, 2, 2},
			Deaths:    domain.Series{0, 0, 0, 1, 2},
		},
		testRegionK: {
			Confirmed: domain.Series{0, 0, 0},
			Recovered: domain.Series{0, 0, 0},
			Deaths:    domain.Series{0, 0, 0},
		},
	}, domain.WithAliases(map[string]string{testRegionK: "South Korea"}))
	require.NoError(t, err)
	return ds
}

func decodeResponse(t *testing.T, out domain.OutputEvent) domain.QueryResponse {
	t.Helper()
	var resp domain.QueryResponse
	require.NoError(t, json.Unmarshal(out.Value, &resp))
	return resp
}

func TestQueryTransformer_Transform(t *testing.T) {
	fixed := time.Date(2020, 4, 1, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	defer domain.SetClock(nil)

	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(testDataset(t), discardLogger(), metrics)

	t.Run("successful query", func(t *testing.T) {
		raw := rawQuery(t, "ignored", domain.QueryRequest{
			RequestID: "req-1", Chart: "daily_cases", Regions: []string{testRegionA}, Scale: "log",
		})

		out, err := tfm.Transform(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, []byte("req-1"), out.Key)
		assert.Equal(t, "ok", out.Headers["status"])
		assert.Equal(t, "daily_cases", out.Headers["chart"])
		assert.Equal(t, "2020-04-01T12:00:00Z", out.Headers["computed_at"])

		resp := decodeResponse(t, out)
		require.NotNil(t, resp.Result)
		assert.Equal(t, domain.ScaleLog, resp.Result.Scale)
		require.Len(t, resp.Result.Series, 1)
		assert.Len(t, resp.Result.Series[0].Points, 4)
	})

	t.Run("engine failure becomes error reply", func(t *testing.T) {
		raw := rawQuery(t, "req-2", domain.QueryRequest{Chart: "doubling_time", Regions: []string{testRegionA, testRegionK}})

		out, err := tfm.Transform(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, []byte("req-2"), out.Key, "request id falls back to message key")
		assert.Equal(t, "error", out.Headers["status"])

		resp := decodeResponse(t, out)
		assert.Nil(t, resp.Result)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "no_cases_recorded", resp.Error.Kind)
		assert.Equal(t, testRegionK, resp.Error.Region)
	})

	t.Run("unknown chart becomes error reply", func(t *testing.T) {
		raw := rawQuery(t, "req-3", domain.QueryRequest{Chart: "pie", Regions: []string{testRegionA}})
		out, err := tfm.Transform(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, "unknown_chart", decodeResponse(t, out).Error.Kind)
	})

	t.Run("missing request id is generated", func(t *testing.T) {
		raw := domain.RawEvent{Value: []byte(`{"chart":"time_series","regions":["Argentina"]}`)}
		out, err := tfm.Transform(context.Background(), raw)
		require.NoError(t, err)
		_, err = uuid.ParseBytes(out.Key)
		assert.NoError(t, err)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte("{invalid")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse query request")
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("daily_cases", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QueryErrors.WithLabelValues("no_cases_recorded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("unknown", "error")))
}

func TestPipeline_EndToEndWithQueryTransformer(t *testing.T) {
	ds := testDataset(t)
	metrics := observability.NewMetricsForTesting()

	ext := &mockExtractor{batches: [][]domain.RawEvent{{
		rawQuery(t, "q1", domain.QueryRequest{Chart: "TimeSeriesSinceFirstCase", Regions: []string{testRegionA}}),
		{Key: []byte("poison"), Value: []byte("{{{")},
		rawQuery(t, "q2", domain.QueryRequest{Chart: "active_cases", Regions: []string{testRegionK}}),
	}}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, pipeline.NewTransformer(ds, discardLogger(), metrics), ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.Loaded()
	require.Len(t, loaded, 2)
	assert.Equal(t, []byte("q1"), loaded[0].Key)
	assert.Equal(t, "ok", loaded[0].Headers["status"])
	assert.Equal(t, []byte("q2"), loaded[1].Key)
	assert.Equal(t, "error", loaded[1].Headers["status"])
	assert.Equal(t, "no_active_cases", loaded[1].Headers["error_kind"])
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransformErrors))
}
