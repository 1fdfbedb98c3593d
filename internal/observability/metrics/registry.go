package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scheduler metrics track the tick loop's behavior.
var (
	SchedulerCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_cycles_total",
			Help: "Total number of scheduler tick cycles by outcome",
		},
		[]string{"outcome"}, // started, completed
	)

	SchedulerCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_cycle_duration_seconds",
			Help:    "Time taken to complete one scheduler tick across all due sources",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	SourcesDueTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_sources_due",
			Help: "Number of sources due for a check in the most recent tick",
		},
	)

	SourcesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_sources_active",
			Help: "Number of sources currently being collected",
		},
	)
)

// Collector metrics track per-source fetch behavior.
var (
	CollectorFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collector_fetch_duration_seconds",
			Help:    "Time taken to collect items from a single source",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"source_type"},
	)

	CollectorItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_items_total",
			Help: "Total number of items yielded by collectors",
		},
		[]string{"source_id", "source_type"},
	)

	CollectorErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_errors_total",
			Help: "Total number of collector errors",
		},
		[]string{"source_id", "source_type", "error_type"},
	)
)

// Dedup/filter/scorer metrics.
var (
	DedupOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_outcomes_total",
			Help: "Total number of dedup check outcomes",
		},
		[]string{"outcome"}, // new, same_source_duplicate, cross_source_duplicate
	)

	FilterMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filter_matches_total",
			Help: "Total number of filter rule matches by action",
		},
		[]string{"filter_id", "action"},
	)

	FilterProcessDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filter_process_duration_seconds",
			Help:    "Time taken to evaluate all filters against one item",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	ScorerItemsScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scorer_items_scored_total",
			Help: "Total number of items scored",
		},
	)
)

// Alert dispatch / notification channel metrics.
var (
	AlertsRaisedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_raised_total",
			Help: "Total number of alerts raised by severity",
		},
		[]string{"severity"},
	)

	AlertsAggregatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_aggregated_total",
			Help: "Total number of aggregated alert groups dispatched",
		},
		[]string{"severity"},
	)

	ChannelDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_dispatch_total",
			Help: "Total number of notification channel dispatch attempts by outcome",
		},
		[]string{"channel", "outcome"}, // success, failure, circuit_open, dropped
	)

	ChannelDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "channel_dispatch_duration_seconds",
			Help:    "Time taken to send a notification through a channel",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)
)

// Database metrics track storage adapter performance.
var (
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)
)

// RecordOperationDuration records the duration of a named database operation.
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
