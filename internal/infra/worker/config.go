// Package worker hosts the process-level runtime config, health server,
// and metrics for the SentinelPi scheduler daemon.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"sentinelpi/internal/pkg/config"
)

// SchedulerConfig holds the configuration for the scheduler daemon.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have sensible defaults, and all but Timezone have validation
// rules, so the scheduler can operate safely even with invalid or missing
// configuration.
type SchedulerConfig struct {
	// TickInterval is how often the scheduler checks for due sources.
	// Default: 30s
	TickInterval time.Duration

	// MaxParallel is the maximum number of sources collected concurrently.
	// Range: 1-50
	// Default: 4
	MaxParallel int

	// CrawlTimeout is the maximum duration for a single source's collection.
	// Must be positive (> 0)
	// Default: 2 minutes
	CrawlTimeout time.Duration

	// AggregationWindow is the alert dispatcher's rolling aggregation window.
	// Default: 60s
	AggregationWindow time.Duration

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535
	// Default: 9091
	HealthPort int

	// Timezone names the IANA zone the cron tick spec is interpreted in.
	// Default: UTC
	Timezone string
}

// DefaultConfig returns a SchedulerConfig with sensible default values.
func DefaultConfig() SchedulerConfig {
	return SchedulerConfig{
		TickInterval:      30 * time.Second,
		MaxParallel:       4,
		CrawlTimeout:      2 * time.Minute,
		AggregationWindow: 60 * time.Second,
		HealthPort:        9091,
		Timezone:          "UTC",
	}
}

// Validate checks if the configuration values are valid, aggregating all
// validation errors rather than stopping at the first one.
func (c *SchedulerConfig) Validate() error {
	var errs []error

	if err := config.ValidateDuration(c.TickInterval, 1*time.Second, 1*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("tick interval: %w", err))
	}
	if err := config.ValidateIntRange(c.MaxParallel, 1, 50); err != nil {
		errs = append(errs, fmt.Errorf("max parallel: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.CrawlTimeout); err != nil {
		errs = append(errs, fmt.Errorf("crawl timeout: %w", err))
	}
	if err := config.ValidateDuration(c.AggregationWindow, 1*time.Second, 1*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("aggregation window: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads scheduler configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This implements the fail-open strategy: start from DefaultConfig(),
// validate each loaded field, and fall back to the default (with a logged
// warning and a recorded metric) whenever a field fails validation. This
// function never returns an error.
//
// Environment variables:
//   - TICK_INTERVAL: Duration string (default: "30s")
//   - MAX_PARALLEL: Integer 1-50 (default: 4)
//   - CRAWL_TIMEOUT: Duration string (default: "2m")
//   - AGGREGATION_WINDOW: Duration string (default: "60s")
//   - SENTINELPI_HEALTH_PORT: Integer 1024-65535 (default: 9091)
//   - TIMEZONE: IANA zone name (default: "UTC")
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*SchedulerConfig, error) {
	return LoadConfigFromEnvWithBase(DefaultConfig(), logger, metrics)
}

// LoadConfigFromEnvWithBase is LoadConfigFromEnv, seeded from base instead
// of DefaultConfig(). This is the second tier of SentinelPi's two-tier
// configuration: base typically comes from config.yaml, and every field
// here may still be overridden by its environment variable, so an
// operator can tweak one value in a deployment without editing the file.
func LoadConfigFromEnvWithBase(base SchedulerConfig, logger *slog.Logger, metrics *WorkerMetrics) (*SchedulerConfig, error) {
	cfg := base
	fallbackApplied := false

	applyDuration := func(field, envKey string, defaultValue time.Duration, min, max time.Duration) time.Duration {
		result := config.LoadEnvDuration(envKey, defaultValue, func(d time.Duration) error {
			return config.ValidateDuration(d, min, max)
		})
		if result.FallbackApplied {
			fallbackApplied = true
			metrics.RecordValidationError(field)
			metrics.RecordFallback(field, "default")
			for _, warning := range result.Warnings {
				logger.Warn("configuration fallback applied", slog.String("field", field), slog.String("warning", warning))
			}
		}
		return result.Value.(time.Duration)
	}

	cfg.TickInterval = applyDuration("tick_interval", "TICK_INTERVAL", cfg.TickInterval, time.Second, time.Hour)
	cfg.CrawlTimeout = applyDuration("crawl_timeout", "CRAWL_TIMEOUT", cfg.CrawlTimeout, time.Second, 30*time.Minute)
	cfg.AggregationWindow = applyDuration("aggregation_window", "AGGREGATION_WINDOW", cfg.AggregationWindow, time.Second, time.Hour)

	result := config.LoadEnvInt("MAX_PARALLEL", cfg.MaxParallel, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.MaxParallel = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("max_parallel")
		metrics.RecordFallback("max_parallel", "default")
		for _, warning := range result.Warnings {
			logger.Warn("configuration fallback applied", slog.String("field", "max_parallel"), slog.String("warning", warning))
		}
	}

	result = config.LoadEnvInt("SENTINELPI_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("health_port")
		metrics.RecordFallback("health_port", "default")
		for _, warning := range result.Warnings {
			logger.Warn("configuration fallback applied", slog.String("field", "health_port"), slog.String("warning", warning))
		}
	}

	cfg.Timezone = config.LoadEnvString("TIMEZONE", cfg.Timezone)

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
