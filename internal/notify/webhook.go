package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"sentinelpi/internal/resilience/retry"
)

// WebhookConfig configures a generic JSON webhook or a Discord-embed
// webhook (set Discord to true for the latter).
type WebhookConfig struct {
	Enabled bool
	URL     string
	Timeout time.Duration
	Discord bool
}

// WebhookChannel posts alerts as JSON to an arbitrary HTTP endpoint.
type WebhookChannel struct {
	config     WebhookConfig
	httpClient *http.Client
}

func NewWebhookChannel(config WebhookConfig) *WebhookChannel {
	return &WebhookChannel{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

func (c *WebhookChannel) Name() string {
	if c.config.Discord {
		return "discord"
	}
	return "webhook"
}

func (c *WebhookChannel) IsEnabled() bool {
	return c.config.Enabled && c.config.URL != ""
}

// genericWebhookPayload is the body shape for non-Discord endpoints:
// every field a downstream integration might key off of, flat.
type genericWebhookPayload struct {
	FilterID   string `json:"filter_id"`
	FilterName string `json:"filter_name"`
	Severity   string `json:"severity"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	URL        string `json:"url"`
	SourceName string `json:"source_name"`
	Count      int    `json:"count"`
	WindowEnd  string `json:"window_end"`
}

// discordWebhookPayload and discordEmbed mirror Discord's
// DiscordWebhookPayload/DiscordEmbed shape almost verbatim, adapted
// from entity.Article to AlertPayload.
type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	URL         string             `json:"url"`
	Color       int                `json:"color"`
	Footer      discordEmbedFooter `json:"footer"`
	Timestamp   string             `json:"timestamp"`
}

type discordEmbedFooter struct {
	Text string `json:"text"`
}

const (
	discordMaxTitleLength = 256
	discordMaxDescLength  = 4096
	discordTruncSuffix    = "..."
)

var discordSeverityColors = map[string]int{
	"info":     3447003,  // blurple-ish blue
	"notice":   3066993,  // green
	"warning":  15844367, // gold
	"critical": 15158332, // red
}

func truncateBytes(s string, maxLen int, suffix string) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - len(suffix)
	if cut < 0 {
		cut = 0
	}
	return s[:cut] + suffix
}

func (c *WebhookChannel) buildDiscordPayload(payload AlertPayload) discordWebhookPayload {
	title := payload.Title
	if len(title) > discordMaxTitleLength {
		title = title[:discordMaxTitleLength]
	}
	return discordWebhookPayload{
		Embeds: []discordEmbed{{
			Title:       title,
			Description: truncateBytes(payload.Message, discordMaxDescLength, discordTruncSuffix),
			URL:         payload.URL,
			Color:       discordSeverityColors[payload.Severity.String()],
			Footer:      discordEmbedFooter{Text: payload.SourceName},
			Timestamp:   payload.WindowEnd.Format(time.RFC3339),
		}},
	}
}

func (c *WebhookChannel) buildGenericPayload(payload AlertPayload) genericWebhookPayload {
	return genericWebhookPayload{
		FilterID:   payload.FilterID,
		FilterName: payload.FilterName,
		Severity:   payload.Severity.String(),
		Title:      payload.Title,
		Message:    payload.Message,
		URL:        payload.URL,
		SourceName: payload.SourceName,
		Count:      payload.Count,
		WindowEnd:  payload.WindowEnd.Format(time.RFC3339),
	}
}

func (c *WebhookChannel) doSend(ctx context.Context, payload AlertPayload) error {
	var body any
	if c.config.Discord {
		body = c.buildDiscordPayload(payload)
	} else {
		body = c.buildGenericPayload(payload)
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &retry.HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
}

// Send delivers an alert to the configured HTTP endpoint, retrying
// transient failures.
func (c *WebhookChannel) Send(ctx context.Context, payload AlertPayload) error {
	err := retry.WithBackoff(ctx, retry.NotificationConfig(), func() error {
		return c.doSend(ctx, payload)
	})
	if err != nil {
		slog.Error("webhook notification failed",
			slog.String("channel", c.Name()),
			slog.String("filter_id", payload.FilterID),
			slog.Any("error", err))
		return fmt.Errorf("%s: send: %w", c.Name(), err)
	}
	return nil
}
