// Package config loads SentinelPi's two on-disk configuration documents,
// config.yaml and alerts.yaml, the first tier of the station's two-tier
// configuration: a YAML file for structure, environment variables for
// secrets and per-deployment overrides on top of it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SchedulerConfig is config.yaml's "scheduler" section.
type SchedulerConfig struct {
	TickInterval      time.Duration `yaml:"tick_interval"`
	MaxParallel       int           `yaml:"max_parallel"`
	CrawlTimeout      time.Duration `yaml:"crawl_timeout"`
	AggregationWindow time.Duration `yaml:"aggregation_window"`
	Timezone          string        `yaml:"timezone"`
}

// DatabaseConfig is config.yaml's "database" section.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig is config.yaml's "logging" section.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ContentFetchConfig is config.yaml's "content_fetch" section, controlling
// the optional full-article enrichment step.
type ContentFetchConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Threshold int           `yaml:"threshold"`
	Timeout   time.Duration `yaml:"timeout"`
}

// SummarizerConfig is config.yaml's "summarizer" section.
type SummarizerConfig struct {
	Type string `yaml:"type"` // "none", "claude", or "openai"
}

// AppConfig is the structure of config.yaml: application, scheduler,
// database, and logging settings. Secrets never live here.
type AppConfig struct {
	Scheduler        SchedulerConfig    `yaml:"scheduler"`
	Database         DatabaseConfig     `yaml:"database"`
	Logging          LoggingConfig      `yaml:"logging"`
	HealthPort       int                `yaml:"health_port"`
	MetricsPort      int                `yaml:"metrics_port"`
	ContentFetch     ContentFetchConfig `yaml:"content_fetch"`
	Summarizer       SummarizerConfig   `yaml:"summarizer"`
	CrossSourceDedup string             `yaml:"cross_source_dedup"` // "reject", "link", or "off"
}

// DefaultAppConfig returns config.yaml's defaults, used for any field the
// file doesn't set and for the whole document when the file is absent.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Scheduler: SchedulerConfig{
			TickInterval:      30 * time.Second,
			MaxParallel:       4,
			CrawlTimeout:      2 * time.Minute,
			AggregationWindow: 60 * time.Second,
			Timezone:          "UTC",
		},
		Database:    DatabaseConfig{Path: "sentinelpi.db"},
		Logging:     LoggingConfig{Level: "info"},
		HealthPort:  9091,
		MetricsPort: 9090,
		ContentFetch: ContentFetchConfig{
			Enabled:   true,
			Threshold: 500,
			Timeout:   10 * time.Second,
		},
		Summarizer:       SummarizerConfig{Type: "none"},
		CrossSourceDedup: "link",
	}
}

// LoadAppConfig reads config.yaml from path. A missing file is not an
// error: it falls back to DefaultAppConfig() with a warning, the same
// fail-open posture internal/pkg/config's environment loaders take one
// tier down. Any field config.yaml omits keeps its default value, since
// unmarshal runs against an already-defaulted struct.
func LoadAppConfig(path string) (AppConfig, []string, error) {
	cfg := DefaultAppConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, []string{fmt.Sprintf("config file %s not found, using defaults", path)}, nil
	}
	if err != nil {
		return cfg, nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil, nil
}
