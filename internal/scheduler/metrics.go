package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus instrumentation for the scheduler's tick loop.
type Metrics struct {
	TickRunsTotal           *prometheus.CounterVec
	TickDurationSeconds     prometheus.Histogram
	TickSourcesCheckedTotal prometheus.Counter
	ActiveSources           prometheus.Gauge
}

// NewMetrics creates scheduler metrics, auto-registered via promauto.
func NewMetrics() *Metrics {
	return &Metrics{
		TickRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinelpi_scheduler_tick_runs_total",
			Help: "Total number of scheduler ticks by status (success/failure)",
		}, []string{"status"}),

		TickDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinelpi_scheduler_tick_duration_seconds",
			Help:    "Duration of a scheduler tick in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60},
		}),

		TickSourcesCheckedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sentinelpi_scheduler_sources_checked_total",
			Help: "Total number of sources checked across all scheduler ticks",
		}),

		ActiveSources: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sentinelpi_scheduler_active_sources",
			Help: "Number of sources currently being collected",
		}),
	}
}

// RecordTick observes a completed tick's duration and outcome status.
func (m *Metrics) RecordTick(status string, seconds float64) {
	m.TickRunsTotal.WithLabelValues(status).Inc()
	m.TickDurationSeconds.Observe(seconds)
}

// RecordSourcesChecked adds to the running total of sources checked.
func (m *Metrics) RecordSourcesChecked(count int) {
	m.TickSourcesCheckedTotal.Add(float64(count))
}
