// Package collector implements the per-source-type fetchers that turn a
// configured entity.Source into a batch of entity.CollectedItem values.
//
// Each collector wraps its network calls in the shared resilience stack
// (circuit breaker + exponential backoff retry) the same way the RSS and
// web collectors do; new source types should follow that pattern rather
// than calling the HTTP client directly.
package collector

import (
	"context"
	"fmt"
	"net/http"

	"sentinelpi/internal/domain/entity"
)

// Collector fetches the current set of items published by a source.
type Collector interface {
	Collect(ctx context.Context, source *entity.Source) ([]entity.CollectedItem, error)
}

// Factory builds a Collector bound to a shared HTTP client.
type Factory func(client *http.Client) Collector

var registry = map[entity.SourceType]Factory{
	entity.SourceTypeRSS:      func(c *http.Client) Collector { return NewRSSCollector(c) },
	entity.SourceTypeReddit:   func(c *http.Client) Collector { return NewRedditCollector(c) },
	entity.SourceTypeYouTube:  func(c *http.Client) Collector { return NewYouTubeCollector(c) },
	entity.SourceTypeMastodon: func(c *http.Client) Collector { return NewMastodonCollector(c) },
	entity.SourceTypeWeb:      func(c *http.Client) Collector { return NewWebCollector(c) },
	entity.SourceTypeCustom:   func(c *http.Client) Collector { return NewCustomJSONCollector(c) },
}

// Registry builds one Collector instance per registered source type, all
// sharing the given HTTP client. Callers look them up by entity.SourceType.
type Registry struct {
	collectors map[entity.SourceType]Collector
}

// NewRegistry instantiates every known collector against client.
func NewRegistry(client *http.Client) *Registry {
	r := &Registry{collectors: make(map[entity.SourceType]Collector, len(registry))}
	for sourceType, factory := range registry {
		r.collectors[sourceType] = factory(client)
	}
	return r
}

// For returns the collector registered for source.Type.
func (r *Registry) For(source *entity.Source) (Collector, error) {
	c, ok := r.collectors[source.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrCollectorUnsupported, source.Type)
	}
	return c, nil
}

// stringConfig reads a string field out of a source's free-form Config map,
// returning def when absent or of the wrong type.
func stringConfig(config map[string]any, key, def string) string {
	if config == nil {
		return def
	}
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return def
}
