package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/resilience/circuitbreaker"
	"sentinelpi/internal/resilience/retry"

	"github.com/sony/gobreaker"
)

// CustomJSONCollector fetches an arbitrary JSON endpoint and maps its fields
// onto entity.CollectedItem using the field names supplied via source.Config
// ("id_field", "title_field", "url_field", ...). Each field name is a single
// top-level key of an entry; nested fields are not followed. The response
// must be a JSON array, or an object containing the array under
// "items_path" (dot-path, e.g. "data.results").
type CustomJSONCollector struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

func NewCustomJSONCollector(client *http.Client) *CustomJSONCollector {
	return &CustomJSONCollector{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.CollectorConfig("custom")),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

func (c *CustomJSONCollector) Collect(ctx context.Context, source *entity.Source) ([]entity.CollectedItem, error) {
	var items []entity.CollectedItem
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doFetch(ctx, source)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("custom json collector circuit breaker open", slog.String("source_id", source.ID))
			}
			return err
		}
		items = result.([]entity.CollectedItem)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return items, nil
}

func (c *CustomJSONCollector) doFetch(ctx context.Context, source *entity.Source) ([]entity.CollectedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "SentinelPi/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unexpected status: %s", resp.Status)}
	}

	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	itemsPath := stringConfig(source.Config, "items_path", "")
	list, ok := navigateToList(raw, itemsPath)
	if !ok {
		return nil, fmt.Errorf("custom collector: items_path %q did not resolve to an array", itemsPath)
	}

	idField := stringConfig(source.Config, "id_field", "id")
	titleField := stringConfig(source.Config, "title_field", "title")
	urlField := stringConfig(source.Config, "url_field", "url")
	contentField := stringConfig(source.Config, "content_field", "content")
	authorField := stringConfig(source.Config, "author_field", "author")
	publishedField := stringConfig(source.Config, "published_field", "published_at")
	imageField := stringConfig(source.Config, "image_field", "image_url")

	items := make([]entity.CollectedItem, 0, len(list))
	for _, elem := range list {
		obj, ok := elem.(map[string]any)
		if !ok {
			continue
		}

		title := stringField(obj, titleField)
		url := stringField(obj, urlField)
		if title == "" || url == "" {
			continue
		}

		guid := stringField(obj, idField)
		if guid == "" {
			guid = url
		}

		items = append(items, entity.CollectedItem{
			SourceID:    source.ID,
			GUID:        guid,
			Title:       title,
			URL:         url,
			Author:      stringField(obj, authorField),
			Content:     stringField(obj, contentField),
			PublishedAt: parseFlexibleDate(stringField(obj, publishedField)),
			CollectedAt: time.Now(),
			ImageURL:    stringField(obj, imageField),
		})
	}
	return items, nil
}

// navigateToList walks a dot-path (empty path means raw itself) to find the
// JSON array the caller configured as the item list.
func navigateToList(raw any, path string) ([]any, bool) {
	if path == "" {
		list, ok := raw.([]any)
		return list, ok
	}

	cur := raw
	for _, segment := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	list, ok := cur.([]any)
	return list, ok
}

func stringField(obj map[string]any, field string) string {
	if field == "" {
		return ""
	}
	v, ok := obj[field]
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return ""
	}
}
