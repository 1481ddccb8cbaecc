package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "epi_series"

// Metrics holds the Prometheus collectors for the query engine and the
// asynchronous query pipeline.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Query metrics, shared by the HTTP API and the pipeline.
	QueriesTotal  *prometheus.CounterVec   // labels: chart, status={ok,error}
	QueryErrors   *prometheus.CounterVec   // labels: kind
	QueryDuration *prometheus.HistogramVec // labels: chart

	// Loaded dataset shape.
	DatasetRegions prometheus.Gauge
	DatasetDates   prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total query messages read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total series messages written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total query messages skipped because they could not be decoded.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the query pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of query messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-compute-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Chart queries by chart kind and outcome.",
		}, []string{"chart", "status"}),
		QueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_errors_total",
			Help:      "Failed chart queries by error kind.",
		}, []string{"kind"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time to compute all series of a chart query.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"chart"}),
		DatasetRegions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_regions",
			Help:      "Number of regions in the loaded dataset.",
		}),
		DatasetDates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_dates",
			Help:      "Number of dates in the loaded dataset calendar.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.QueriesTotal,
		m.QueryErrors,
		m.QueryDuration,
		m.DatasetRegions,
		m.DatasetDates,
	}
}

// ObserveQuery records the outcome of one chart query. kind is the engine's
// error kind name and is ignored on success.
func (m *Metrics) ObserveQuery(chart, kind string, elapsed time.Duration) {
	status := "ok"
	if kind != "" {
		status = "error"
		m.QueryErrors.WithLabelValues(kind).Inc()
	}
	m.QueriesTotal.WithLabelValues(chart, status).Inc()
	m.QueryDuration.WithLabelValues(chart).Observe(elapsed.Seconds())
}
