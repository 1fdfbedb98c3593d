package notify

import (
	"context"
	"fmt"
	"os/exec"

	"sentinelpi/internal/domain/entity"
)

// DesktopConfig configures local desktop notifications via notify-send.
type DesktopConfig struct {
	Enabled bool
}

// DesktopChannel shells out to notify-send, the standard Linux desktop
// notification utility. It self-disables when the binary is absent so
// a headless deployment doesn't need to special-case this channel.
type DesktopChannel struct {
	config    DesktopConfig
	lookPath  func(string) (string, error)
	runCmd    func(ctx context.Context, name string, args ...string) error
}

func NewDesktopChannel(config DesktopConfig) *DesktopChannel {
	return &DesktopChannel{
		config:   config,
		lookPath: exec.LookPath,
		runCmd: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

func (c *DesktopChannel) Name() string { return "desktop" }

func (c *DesktopChannel) IsEnabled() bool {
	if !c.config.Enabled {
		return false
	}
	_, err := c.lookPath("notify-send")
	return err == nil
}

func desktopUrgency(s entity.Severity) string {
	switch s {
	case entity.SeverityCritical:
		return "critical"
	case entity.SeverityNotice, entity.SeverityWarning:
		return "normal"
	default:
		return "low"
	}
}

// Send invokes notify-send with the alert's title/message and a
// severity-derived urgency level.
func (c *DesktopChannel) Send(ctx context.Context, payload AlertPayload) error {
	args := []string{
		"--urgency", desktopUrgency(payload.Severity),
		payload.Title,
		payload.Message,
	}
	if err := c.runCmd(ctx, "notify-send", args...); err != nil {
		return fmt.Errorf("desktop: notify-send: %w", err)
	}
	return nil
}
