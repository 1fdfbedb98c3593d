// Package observability provides production-grade observability infrastructure
// including structured logging and Prometheus metrics.
//
// This package centralizes observability concerns to enable:
//   - Request tracing across service boundaries
//   - Structured logging with context propagation
//   - Prometheus metrics for monitoring
//   - Performance profiling and debugging
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//
// There is no tracing subpackage.
//
// Example usage:
//
//	import (
//	    "sentinelpi/internal/observability/logging"
//	    "sentinelpi/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started")
//
//	    metrics.CollectorItemsTotal.WithLabelValues("example-source", "rss").Add(10)
//	}
package observability
