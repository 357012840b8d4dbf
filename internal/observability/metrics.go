package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sfpdcadcot"

// Metrics holds the Prometheus counters, histograms, and gauges for the poll loop.
type Metrics struct {
	Polls            prometheus.Counter
	FetchErrors      prometheus.Counter
	RecordsFetched   prometheus.Counter
	RecordsEligible  prometheus.Counter
	RecordsMalformed prometheus.Counter
	EventsSubmitted  prometheus.Counter
	EventsSkipped    prometheus.Counter
	TransformErrors  prometheus.Counter
	SinkErrors       prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Per-poll distributions.
	SnapshotSize prometheus.Histogram
	PollDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewMetricsForTesting()

	prometheus.MustRegister(
		m.Polls,
		m.FetchErrors,
		m.RecordsFetched,
		m.RecordsEligible,
		m.RecordsMalformed,
		m.EventsSubmitted,
		m.EventsSkipped,
		m.TransformErrors,
		m.SinkErrors,
		m.PipelineRunning,
		m.SnapshotSize,
		m.PollDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Total feed poll iterations started.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Total polls aborted because the feed could not be fetched or decoded.",
		}),
		RecordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "Total dispatch records read from the feed.",
		}),
		RecordsEligible: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_eligible_total",
			Help:      "Total dispatch records that passed the filter.",
		}),
		RecordsMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_malformed_total",
			Help:      "Total feed rows dropped because they could not be decoded.",
		}),
		EventsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_submitted_total",
			Help:      "Total CoT events accepted by the sink.",
		}),
		EventsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_skipped_total",
			Help:      "Total eligible records that produced no event (no position).",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total records that failed CoT conversion.",
		}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Total CoT events the sink failed to accept.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the poll loop is active, 0 when shut down.",
		}),
		SnapshotSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_size",
			Help:      "Number of records per fetched feed snapshot.",
			Buckets:   []float64{0, 10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of a complete fetch-filter-transform-submit pass.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}
