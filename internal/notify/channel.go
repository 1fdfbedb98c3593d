// Package notify implements the delivery channels that turn an
// AggregatedAlert into a message on some external surface (chat app,
// inbox, webhook, desktop notification).
package notify

import (
	"context"
	"time"

	"sentinelpi/internal/domain/entity"
)

// Channel is one notification destination. Implementations must be
// safe for concurrent use: each dispatcher window flushes on its own
// timer goroutine.
type Channel interface {
	Name() string
	IsEnabled() bool
	Send(ctx context.Context, payload AlertPayload) error
}

// AlertPayload is the channel-agnostic view of an AggregatedAlert,
// flattened for template substitution.
type AlertPayload struct {
	FilterID   string
	FilterName string
	Severity   entity.Severity
	Title      string
	Message    string
	URL        string
	SourceName string
	Count      int
	WindowEnd  time.Time
}

// FromAggregated builds an AlertPayload from an AggregatedAlert, using
// the most recent alert in the group for title/message/URL.
func FromAggregated(agg *entity.AggregatedAlert, filterName, sourceName string) AlertPayload {
	payload := AlertPayload{
		FilterID:   agg.FilterID,
		FilterName: filterName,
		Severity:   agg.Severity,
		SourceName: sourceName,
		Count:      agg.Count(),
		WindowEnd:  agg.WindowEnd,
	}
	if n := len(agg.Alerts); n > 0 {
		latest := agg.Alerts[n-1]
		payload.Title = latest.Title
		payload.Message = latest.Message
		payload.URL = latest.URL
	}
	return payload
}

// severityEmoji picks a glyph per severity level, used by the
// Telegram channel.
func severityEmoji(s entity.Severity) string {
	switch s {
	case entity.SeverityNotice:
		return "ℹ️"
	case entity.SeverityWarning:
		return "⚠️"
	case entity.SeverityCritical:
		return "🚨"
	default:
		return "📰"
	}
}
