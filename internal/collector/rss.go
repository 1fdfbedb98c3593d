package collector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/resilience/circuitbreaker"
	"sentinelpi/internal/resilience/retry"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// RSSCollector fetches RSS/Atom feeds via gofeed, guarded by a circuit
// breaker and retry policy tuned for flaky upstream feeds.
type RSSCollector struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

func NewRSSCollector(client *http.Client) *RSSCollector {
	return &RSSCollector{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

func (c *RSSCollector) Collect(ctx context.Context, source *entity.Source) ([]entity.CollectedItem, error) {
	var items []entity.CollectedItem

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doFetch(ctx, source)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("rss collector circuit breaker open",
					slog.String("source_id", source.ID),
					slog.String("url", source.URL),
					slog.String("state", c.circuitBreaker.State().String()))
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

func (c *RSSCollector) doFetch(ctx context.Context, source *entity.Source) ([]entity.CollectedItem, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = "SentinelPi/1.0"
	fp.Client = c.client

	feed, err := fp.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, err
	}

	items := make([]entity.CollectedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		publishedAt := time.Now()
		if it.PublishedParsed != nil {
			publishedAt = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			publishedAt = *it.UpdatedParsed
		}

		content := it.Content
		if content == "" {
			content = it.Description
		}

		guid := it.GUID
		if guid == "" {
			guid = it.Link
		}
		if guid == "" {
			sum := sha256.Sum256([]byte(it.Title + ":" + it.Link))
			guid = hex.EncodeToString(sum[:])[:32]
		}

		author := ""
		if it.Author != nil {
			author = it.Author.Name
		}

		var imageURL string
		if it.Image != nil {
			imageURL = it.Image.URL
		}

		items = append(items, entity.CollectedItem{
			SourceID:    source.ID,
			GUID:        guid,
			Title:       it.Title,
			URL:         it.Link,
			Author:      author,
			Content:     content,
			PublishedAt: publishedAt,
			CollectedAt: time.Now(),
			ImageURL:    imageURL,
			Keywords:    it.Categories,
		})
	}

	return items, nil
}
