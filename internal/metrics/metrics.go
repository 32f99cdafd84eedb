package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics exposed by the API binary.
type Collector struct {
	reg *prometheus.Registry

	RunsStarted   prometheus.Counter
	RunsCompleted prometheus.Counter
	RunsFailed    prometheus.Counter

	RowsNormalized prometheus.Counter
	RowsSkipped    *prometheus.CounterVec // reason label

	StationsIndexed prometheus.Gauge
	ReportsFailed   prometheus.Counter

	RunDuration prometheus.Histogram
}

// NewCollector builds and registers the metric set.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stationindex_runs_started_total",
			Help: "Total index runs started.",
		}),
		RunsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stationindex_runs_completed_total",
			Help: "Total index runs completed.",
		}),
		RunsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stationindex_runs_failed_total",
			Help: "Total index runs that failed with a structural error.",
		}),
		RowsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stationindex_rows_normalized_total",
			Help: "Total trip rows successfully normalized.",
		}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stationindex_rows_skipped_total",
			Help: "Total trip rows dropped during normalization.",
		}, []string{"reason"}),
		StationsIndexed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stationindex_stations_indexed",
			Help: "Stations in the most recently built index.",
		}),
		ReportsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stationindex_validation_reports_failed_total",
			Help: "Total runs whose validation report failed.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stationindex_run_duration_seconds",
			Help:    "End-to-end run duration.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	reg.MustRegister(
		c.RunsStarted, c.RunsCompleted, c.RunsFailed,
		c.RowsNormalized, c.RowsSkipped,
		c.StationsIndexed, c.ReportsFailed, c.RunDuration,
	)
	return c
}

// Handler returns the /metrics HTTP handler for this collector.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
