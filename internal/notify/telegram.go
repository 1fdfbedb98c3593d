package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"sentinelpi/internal/resilience/retry"
)

// TelegramConfig configures a Telegram bot channel.
type TelegramConfig struct {
	Enabled             bool
	BotToken            string
	ChatID              string
	Timeout             time.Duration
	DisableWebPreview   bool
	DisableNotification bool
}

// telegramAPIBase is the Telegram Bot API host, overridable in tests.
const telegramAPIBase = "https://api.telegram.org"

// TelegramChannel delivers alerts via the Telegram Bot API's
// sendMessage endpoint.
type TelegramChannel struct {
	config     TelegramConfig
	httpClient *http.Client
	apiBase    string
}

func NewTelegramChannel(config TelegramConfig) *TelegramChannel {
	return &TelegramChannel{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		apiBase:    telegramAPIBase,
	}
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) IsEnabled() bool {
	return c.config.Enabled && c.config.BotToken != "" && c.config.ChatID != ""
}

const (
	telegramMaxMessageLength = 4096
	telegramTruncationSuffix = "… (message tronqué)"
)

// telegramMarkdownSpecials is the set of characters Telegram's
// MarkdownV2 parse mode requires to be backslash-escaped.
var telegramMarkdownSpecials = []string{
	"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!",
}

// escapeMarkdown escapes MarkdownV2 special characters so alert text
// containing them renders as literal text rather than broken markup.
func escapeMarkdown(s string) string {
	var b strings.Builder
	for _, r := range s {
		c := string(r)
		for _, special := range telegramMarkdownSpecials {
			if c == special {
				b.WriteByte('\\')
				break
			}
		}
		b.WriteString(c)
	}
	return b.String()
}

func (c *TelegramChannel) buildMessage(payload AlertPayload) string {
	msg := fmt.Sprintf("%s *%s*\n%s\n\n%s",
		severityEmoji(payload.Severity),
		escapeMarkdown(payload.Title),
		escapeMarkdown(payload.Message),
		escapeMarkdown(payload.URL))
	if payload.Count > 1 {
		msg = fmt.Sprintf("%s\n\n_+%d more matches in this window_", msg, payload.Count-1)
	}
	return truncateRunes(msg, telegramMaxMessageLength, telegramTruncationSuffix)
}

// truncateRunes caps s at maxLen bytes, suffix included, cutting on a
// rune boundary so no UTF-8 sequence is split.
func truncateRunes(s string, maxLen int, suffix string) string {
	if len(s) <= maxLen {
		return s
	}
	budget := maxLen - len(suffix)
	if budget < 0 {
		budget = 0
	}
	for budget > 0 && !utf8.RuneStart(s[budget]) {
		budget--
	}
	return s[:budget] + suffix
}

type telegramSendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	DisableNotification   bool   `json:"disable_notification,omitempty"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

func (c *TelegramChannel) doSend(ctx context.Context, payload AlertPayload) error {
	body := telegramSendMessageRequest{
		ChatID:                c.config.ChatID,
		Text:                  c.buildMessage(payload),
		ParseMode:             "MarkdownV2",
		DisableWebPagePreview: c.config.DisableWebPreview,
		DisableNotification:   c.config.DisableNotification,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("telegram: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.config.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var parsed telegramResponse
	_ = json.Unmarshal(respBody, &parsed)
	msg := parsed.Description
	if msg == "" {
		msg = string(respBody)
	}
	return &retry.HTTPError{StatusCode: resp.StatusCode, Message: msg}
}

// Send delivers an alert via Telegram, retrying transient failures
// with jittered exponential backoff.
func (c *TelegramChannel) Send(ctx context.Context, payload AlertPayload) error {
	err := retry.WithBackoff(ctx, retry.NotificationConfig(), func() error {
		return c.doSend(ctx, payload)
	})
	if err != nil {
		slog.Error("telegram notification failed", slog.String("filter_id", payload.FilterID), slog.Any("error", err))
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}
