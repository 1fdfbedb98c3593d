// Package dispatch aggregates triggered alerts within a time window and
// fans them out across registered notification channels, gated by
// severity and protected per-channel by a circuit breaker and rate
// limiter.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/notify"
	"sentinelpi/internal/resilience/circuitbreaker"
)

// ChannelRegistration pairs a notification channel with its delivery
// gate: the minimum severity it should receive and its per-channel
// rate limit.
type ChannelRegistration struct {
	Channel     notify.Channel
	MinSeverity entity.Severity
	RateLimiter *RateLimiter
}

// Config controls the aggregation window.
type Config struct {
	Window time.Duration // how long alerts for the same (filter_id, severity) are grouped
}

// DefaultConfig uses a 60s aggregation window.
func DefaultConfig() Config {
	return Config{Window: 60 * time.Second}
}

type windowKey struct {
	filterID string
	severity entity.Severity
}

type window struct {
	alerts []entity.Alert
	timer  *time.Timer
}

// Dispatcher aggregates alerts per (filter_id, severity) and, once a
// window closes, sends the resulting AggregatedAlert to every
// registered channel whose severity gate it clears.
type Dispatcher struct {
	config   Config
	channels []ChannelRegistration
	logger   *slog.Logger

	filterNames func(filterID string) string
	sourceNames func(sourceID string) string

	mu      sync.Mutex
	windows map[windowKey]*window

	breakers map[string]*circuitbreaker.CircuitBreaker
}

// New constructs a Dispatcher. filterNameLookup/sourceNameLookup
// resolve IDs to display names for channel payloads; both may be nil,
// in which case the raw ID is used.
func New(config Config, channels []ChannelRegistration, filterNameLookup, sourceNameLookup func(string) string, logger *slog.Logger) *Dispatcher {
	breakers := make(map[string]*circuitbreaker.CircuitBreaker, len(channels))
	for _, reg := range channels {
		breakers[reg.Channel.Name()] = circuitbreaker.New(circuitbreaker.NotifyChannelConfig(reg.Channel.Name()))
	}
	return &Dispatcher{
		config:      config,
		channels:    channels,
		logger:      logger,
		filterNames: filterNameLookup,
		sourceNames: sourceNameLookup,
		windows:     make(map[windowKey]*window),
		breakers:    breakers,
	}
}

// Submit adds an alert to its aggregation window, starting a new
// window timer if one isn't already running for this (filter_id,
// severity) key.
func (d *Dispatcher) Submit(alert entity.Alert) {
	key := windowKey{filterID: alert.FilterID, severity: alert.Severity}

	d.mu.Lock()
	w, exists := d.windows[key]
	if !exists {
		w = &window{}
		d.windows[key] = w
		w.timer = time.AfterFunc(d.config.Window, func() { d.flush(key) })
	}
	w.alerts = append(w.alerts, alert)
	d.mu.Unlock()
}

func (d *Dispatcher) flush(key windowKey) {
	d.mu.Lock()
	w, exists := d.windows[key]
	if !exists {
		d.mu.Unlock()
		return
	}
	delete(d.windows, key)
	d.mu.Unlock()

	agg := &entity.AggregatedAlert{
		FilterID:  key.filterID,
		Severity:  key.severity,
		Alerts:    w.alerts,
		WindowEnd: time.Now(),
	}
	d.dispatch(agg)
}

// Flush forces any open windows to send immediately, for use during
// graceful shutdown so no alert is lost to an unfired timer.
func (d *Dispatcher) Flush() {
	d.mu.Lock()
	keys := make([]windowKey, 0, len(d.windows))
	for k := range d.windows {
		keys = append(keys, k)
	}
	d.mu.Unlock()

	for _, k := range keys {
		d.flush(k)
	}
}

// ChannelHealth reports, per registered channel, whether it is enabled
// and whether its circuit breaker has tripped open — used by the
// process health server's readiness endpoint.
type ChannelHealth struct {
	Name        string
	Enabled     bool
	BreakerOpen bool
}

func (d *Dispatcher) ChannelHealth() []ChannelHealth {
	health := make([]ChannelHealth, 0, len(d.channels))
	for _, reg := range d.channels {
		breaker := d.breakers[reg.Channel.Name()]
		health = append(health, ChannelHealth{
			Name:        reg.Channel.Name(),
			Enabled:     reg.Channel.IsEnabled(),
			BreakerOpen: breaker != nil && breaker.State() == gobreaker.StateOpen,
		})
	}
	return health
}

func (d *Dispatcher) filterName(id string) string {
	if d.filterNames != nil {
		return d.filterNames(id)
	}
	return id
}

func (d *Dispatcher) sourceName(id string) string {
	if len(id) == 0 {
		return ""
	}
	if d.sourceNames == nil {
		return id
	}
	return d.sourceNames(id)
}

func (d *Dispatcher) dispatch(agg *entity.AggregatedAlert) {
	sourceID := ""
	if len(agg.Alerts) > 0 {
		sourceID = agg.Alerts[len(agg.Alerts)-1].SourceID
	}
	payload := notify.FromAggregated(agg, d.filterName(agg.FilterID), d.sourceName(sourceID))

	for _, reg := range d.channels {
		if agg.Severity < reg.MinSeverity {
			continue
		}
		if !reg.Channel.IsEnabled() {
			continue
		}
		d.sendToChannel(reg, payload)
	}
}

func (d *Dispatcher) sendToChannel(reg ChannelRegistration, payload notify.AlertPayload) {
	ctx := context.Background()
	if reg.RateLimiter != nil {
		if err := reg.RateLimiter.Allow(ctx); err != nil {
			d.logger.Warn("channel rate limiter error", slog.String("channel", reg.Channel.Name()), slog.Any("error", err))
			return
		}
	}

	breaker := d.breakers[reg.Channel.Name()]
	_, err := breaker.Execute(func() (interface{}, error) {
		return nil, reg.Channel.Send(ctx, payload)
	})
	if err != nil {
		d.logger.Error("channel delivery failed",
			slog.String("channel", reg.Channel.Name()),
			slog.String("filter_id", payload.FilterID),
			slog.Any("error", err))
	}
}
