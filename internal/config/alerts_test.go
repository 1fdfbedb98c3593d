package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAlertsConfig_MissingFileDisablesEverything(t *testing.T) {
	cfg, warnings, err := LoadAlertsConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadAlertsConfig() error = %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one fallback warning, got %v", warnings)
	}
	if cfg.Channel("telegram").Enabled {
		t.Error("expected telegram channel to be disabled when alerts.yaml is absent")
	}
}

func TestLoadAlertsConfig_ParsesChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.yaml")
	yamlContent := `channels:
  telegram:
    enabled: true
    min_severity: notice
    credentials:
      bot_token: "abc123"
      chat_id: "42"
  webhook:
    enabled: true
    min_severity: info
    credentials:
      url: "https://example.com/hook"
    templates:
      discord: "true"
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := LoadAlertsConfig(path)
	if err != nil {
		t.Fatalf("LoadAlertsConfig() error = %v", err)
	}

	telegram := cfg.Channel("telegram")
	if !telegram.Enabled || telegram.MinSeverity != "notice" {
		t.Errorf("unexpected telegram config: %+v", telegram)
	}
	if telegram.Credentials["bot_token"] != "abc123" {
		t.Errorf("expected bot_token 'abc123', got %q", telegram.Credentials["bot_token"])
	}

	webhook := cfg.Channel("webhook")
	if webhook.Templates["discord"] != "true" {
		t.Errorf("expected discord template flag 'true', got %q", webhook.Templates["discord"])
	}

	if cfg.Channel("email").Enabled {
		t.Error("expected an unmentioned channel to default to disabled")
	}
}

func TestChannelConfig_CredentialPrefersEnvOverride(t *testing.T) {
	c := ChannelConfig{Credentials: map[string]string{"bot_token": "from-yaml"}}

	if got := c.Credential("bot_token", "SENTINELPI_TEST_BOT_TOKEN"); got != "from-yaml" {
		t.Errorf("expected YAML value when env is unset, got %q", got)
	}

	t.Setenv("SENTINELPI_TEST_BOT_TOKEN", "from-env")
	if got := c.Credential("bot_token", "SENTINELPI_TEST_BOT_TOKEN"); got != "from-env" {
		t.Errorf("expected env override, got %q", got)
	}
}
