package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"sentinelpi/internal/resilience/retry"
)

// EmailConfig configures SMTP delivery, with optional STARTTLS.
type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Timeout  time.Duration
}

// EmailChannel delivers alerts as multipart/alternative email via SMTP.
type EmailChannel struct {
	config EmailConfig
}

func NewEmailChannel(config EmailConfig) *EmailChannel {
	return &EmailChannel{config: config}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) IsEnabled() bool {
	return c.config.Enabled && c.config.Host != "" && c.config.From != "" && len(c.config.To) > 0
}

var severityColors = map[string]string{
	"info":     "#3498db",
	"notice":   "#2ecc71",
	"warning":  "#f39c12",
	"critical": "#e74c3c",
}

func (c *EmailChannel) buildSubject(payload AlertPayload) string {
	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(payload.Severity.String()), payload.Title)
	return mime.QEncoding.Encode("UTF-8", subject)
}

func (c *EmailChannel) buildBody(payload AlertPayload) (plain, html string) {
	plain = fmt.Sprintf("%s\n\n%s\n\nSource: %s\nFilter: %s\n",
		payload.Title, payload.Message, payload.SourceName, payload.FilterName)
	if payload.Count > 1 {
		plain += fmt.Sprintf("(+%d more matches in this window)\n", payload.Count-1)
	}

	color := severityColors[payload.Severity.String()]
	html = fmt.Sprintf(`<html><body style="font-family:sans-serif">
<h2 style="color:%s">%s</h2>
<p>%s</p>
<p><a href="%s">%s</a></p>
<p style="color:#888;font-size:12px">source: %s · filter: %s</p>
</body></html>`, color, payload.Title, payload.Message, payload.URL, payload.URL, payload.SourceName, payload.FilterName)
	return plain, html
}

func (c *EmailChannel) buildMessage(payload AlertPayload) []byte {
	boundary := "sentinelpi-alert-boundary"
	plain, html := c.buildBody(payload)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", c.config.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(c.config.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", c.buildSubject(payload))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n\r\n", boundary, plain)
	fmt.Fprintf(&buf, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n\r\n", boundary, html)
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	return buf.Bytes()
}

func (c *EmailChannel) doSend(ctx context.Context, payload AlertPayload) error {
	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	var auth smtp.Auth
	if c.config.Username != "" {
		auth = smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, c.config.From, c.config.To, c.buildMessage(payload))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send delivers an alert via SMTP, retrying transient failures.
func (c *EmailChannel) Send(ctx context.Context, payload AlertPayload) error {
	sendCtx := ctx
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	err := retry.WithBackoff(sendCtx, retry.NotificationConfig(), func() error {
		return c.doSend(sendCtx, payload)
	})
	if err != nil {
		slog.Error("email notification failed", slog.String("filter_id", payload.FilterID), slog.Any("error", err))
		return fmt.Errorf("email: send: %w", err)
	}
	return nil
}
