package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ChannelConfig is one entry under alerts.yaml's "channels" map: whether
// the channel is active, the minimum severity it receives, and its
// channel-specific credentials and message templates.
type ChannelConfig struct {
	Enabled     bool              `yaml:"enabled"`
	MinSeverity string            `yaml:"min_severity"`
	Credentials map[string]string `yaml:"credentials"`
	Templates   map[string]string `yaml:"templates"`
}

// Credential returns a credential value, preferring the named environment
// variable over the YAML value when it is set. Secrets (bot tokens,
// passwords, webhook URLs) are meant to live in the environment in any
// deployment that takes them seriously; alerts.yaml only needs to carry
// them for local/dev use.
func (c ChannelConfig) Credential(key, envKey string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return c.Credentials[key]
}

// AlertsConfig is the structure of alerts.yaml: one ChannelConfig per
// notification channel, keyed by channel name ("telegram", "email",
// "webhook", "desktop").
type AlertsConfig struct {
	Channels map[string]ChannelConfig `yaml:"channels"`
}

// Channel returns the named channel's config, or a disabled zero value
// if alerts.yaml doesn't mention it.
func (a AlertsConfig) Channel(name string) ChannelConfig {
	return a.Channels[name]
}

// LoadAlertsConfig reads alerts.yaml from path. A missing file yields an
// AlertsConfig with no channels (everything disabled) rather than an
// error, since alert delivery is optional and a station with no
// notification channels configured is a valid, if quiet, deployment.
func LoadAlertsConfig(path string) (AlertsConfig, []string, error) {
	cfg := AlertsConfig{Channels: map[string]ChannelConfig{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, []string{fmt.Sprintf("alerts file %s not found, all channels disabled", path)}, nil
	}
	if err != nil {
		return cfg, nil, fmt.Errorf("read alerts file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, nil, fmt.Errorf("parse alerts file %s: %w", path, err)
	}
	return cfg, nil, nil
}
