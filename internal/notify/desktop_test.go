package notify

import (
	"context"
	"errors"
	"testing"

	"sentinelpi/internal/domain/entity"
)

func TestDesktopChannel_IsEnabled(t *testing.T) {
	t.Run("enabled when notify-send found", func(t *testing.T) {
		ch := NewDesktopChannel(DesktopConfig{Enabled: true})
		ch.lookPath = func(string) (string, error) { return "/usr/bin/notify-send", nil }
		if !ch.IsEnabled() {
			t.Error("expected enabled")
		}
	})
	t.Run("self-disables when notify-send missing", func(t *testing.T) {
		ch := NewDesktopChannel(DesktopConfig{Enabled: true})
		ch.lookPath = func(string) (string, error) { return "", errors.New("not found") }
		if ch.IsEnabled() {
			t.Error("expected disabled when binary absent")
		}
	})
	t.Run("disabled by config regardless of binary", func(t *testing.T) {
		ch := NewDesktopChannel(DesktopConfig{Enabled: false})
		ch.lookPath = func(string) (string, error) { return "/usr/bin/notify-send", nil }
		if ch.IsEnabled() {
			t.Error("expected disabled by config")
		}
	})
}

func TestDesktopUrgency(t *testing.T) {
	cases := map[entity.Severity]string{
		entity.SeverityInfo:     "low",
		entity.SeverityNotice:   "normal",
		entity.SeverityWarning:  "normal",
		entity.SeverityCritical: "critical",
	}
	for sev, want := range cases {
		if got := desktopUrgency(sev); got != want {
			t.Errorf("desktopUrgency(%v) = %q, want %q", sev, got, want)
		}
	}
}

func TestDesktopChannel_Send_InvokesRunCmd(t *testing.T) {
	ch := NewDesktopChannel(DesktopConfig{Enabled: true})
	var gotName string
	var gotArgs []string
	ch.runCmd = func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	}

	err := ch.Send(context.Background(), AlertPayload{Title: "disk full", Message: "95%", Severity: entity.SeverityCritical})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if gotName != "notify-send" {
		t.Errorf("name = %q, want notify-send", gotName)
	}
	if len(gotArgs) < 3 || gotArgs[len(gotArgs)-2] != "disk full" {
		t.Errorf("args = %v, expected title near the end", gotArgs)
	}
}
