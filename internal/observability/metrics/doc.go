// Package metrics provides the Prometheus metrics registry for SentinelPi.
//
// This package centralizes all application metrics, including scheduler
// cycle outcomes, collector fetch durations, filter/scorer processing,
// alert dispatch outcomes, and channel health. All metrics are registered
// with the Prometheus default registry and exposed via /metrics.
package metrics
