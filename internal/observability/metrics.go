package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aq_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for an analysis run.
type Metrics struct {
	RowsRead    prometheus.Counter
	RowsDropped *prometheus.CounterVec // labels: reason={null_value,bad_value,bad_timestamp}
	Runs        *prometheus.CounterVec // labels: outcome={success,insufficient_data,error}
	RunDuration prometheus.Histogram

	// Results of the latest run.
	HourlyRecords  prometheus.Gauge
	ExtremeRecords prometheus.Gauge
	Threshold      prometheus.Gauge

	// Sinks.
	LoadErrors      *prometheus.CounterVec // labels: sink
	EventsPublished prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsRead,
		m.RowsDropped,
		m.Runs,
		m.RunDuration,
		m.HourlyRecords,
		m.ExtremeRecords,
		m.Threshold,
		m.LoadErrors,
		m.EventsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Total source rows read.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Source rows dropped during cleaning, by reason.",
		}, []string{"reason"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Analysis runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-analyze-load run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		HourlyRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hourly_records",
			Help:      "Distinct hours in the latest analysis.",
		}),
		ExtremeRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "extreme_records",
			Help:      "Hours classified Extreme in the latest analysis.",
		}),
		Threshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "extreme_threshold",
			Help:      "Percentile threshold of the latest analysis, in ug/m3.",
		}),
		LoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      "Sink failures by sink name.",
		}, []string{"sink"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Extreme hours published to the broker.",
		}),
	}
}
