package worker

import (
	"sentinelpi/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the scheduler process.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// scheduler-specific metrics for tick execution tracking.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_validation_errors_total: Total validation errors by field
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Scheduler-specific metrics:
//   - worker_tick_runs_total: Total scheduler ticks by status (success/failure)
//   - worker_tick_duration_seconds: Duration histogram of a full tick
//   - worker_tick_sources_checked_total: Total sources checked across all ticks
//   - worker_tick_last_success_timestamp: Unix timestamp of last successful tick
type WorkerMetrics struct {
	// Embedded configuration metrics
	*config.ConfigMetrics

	// TickRunsTotal counts the total number of scheduler ticks.
	// Type: Counter
	// Labels: status (success, failure)
	TickRunsTotal *prometheus.CounterVec

	// TickDurationSeconds measures the duration of a scheduler tick.
	// Buckets optimized for typical collection-cycle durations.
	TickDurationSeconds prometheus.Histogram

	// TickSourcesCheckedTotal counts the total number of sources checked per tick.
	TickSourcesCheckedTotal prometheus.Counter

	// TickLastSuccessTimestamp records the Unix timestamp of the last successful tick.
	TickLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics initialized.
// promauto registers each metric with the default Prometheus registry as it is
// created; MustRegister is a no-op.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		TickRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_tick_runs_total",
			Help: "Total number of scheduler ticks by status (success/failure)",
		}, []string{"status"}),

		TickDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_tick_duration_seconds",
			Help:    "Duration of a scheduler tick in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800}, // 1s, 5s, 30s, 1m, 5m, 15m, 30m
		}),

		TickSourcesCheckedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_tick_sources_checked_total",
			Help: "Total number of sources checked across all scheduler ticks",
		}),

		TickLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_tick_last_success_timestamp",
			Help: "Unix timestamp of the last successful scheduler tick",
		}),
	}
}

// MustRegister is a no-op method for API compatibility.
// Metrics are automatically registered via promauto when created in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {
	// No-op: metrics are auto-registered via promauto
}

// RecordJobRun increments the tick counter for the given status.
// Status should be either "success" or "failure".
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.TickRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes the duration of a scheduler tick, in seconds.
func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.TickDurationSeconds.Observe(seconds)
}

// RecordFeedsProcessed adds the number of sources checked to the total counter.
func (m *WorkerMetrics) RecordFeedsProcessed(count int) {
	m.TickSourcesCheckedTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful tick completion.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.TickLastSuccessTimestamp.SetToCurrentTime()
}
