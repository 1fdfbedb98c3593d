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

// RedditCollector polls a subreddit's public JSON listing (appending
// ".json" to source.URL, e.g. https://www.reddit.com/r/golang/new/.json).
// No OAuth is required for this read-only listing endpoint.
type RedditCollector struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

func NewRedditCollector(client *http.Client) *RedditCollector {
	return &RedditCollector{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.CollectorConfig("reddit")),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID        string  `json:"id"`
				Title     string  `json:"title"`
				Author    string  `json:"author"`
				Permalink string  `json:"permalink"`
				URL       string  `json:"url"`
				Selftext  string  `json:"selftext"`
				Created   float64 `json:"created_utc"`
				Thumbnail string  `json:"thumbnail"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (r *RedditCollector) Collect(ctx context.Context, source *entity.Source) ([]entity.CollectedItem, error) {
	var items []entity.CollectedItem
	retryErr := retry.WithBackoff(ctx, r.retryConfig, func() error {
		result, err := r.circuitBreaker.Execute(func() (interface{}, error) {
			return r.doFetch(ctx, source)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("reddit collector circuit breaker open", slog.String("source_id", source.ID))
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

func (r *RedditCollector) doFetch(ctx context.Context, source *entity.Source) ([]entity.CollectedItem, error) {
	listingURL := source.URL
	if !strings.HasSuffix(listingURL, ".json") {
		listingURL = strings.TrimRight(listingURL, "/") + "/.json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "SentinelPi/1.0 (self-hosted monitor)")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unexpected status: %s", resp.Status)}
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	items := make([]entity.CollectedItem, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		postURL := "https://www.reddit.com" + post.Permalink
		items = append(items, entity.CollectedItem{
			SourceID:    source.ID,
			GUID:        post.ID,
			Title:       post.Title,
			URL:         postURL,
			Author:      post.Author,
			Content:     post.Selftext,
			PublishedAt: time.Unix(int64(post.Created), 0),
			CollectedAt: time.Now(),
			Extra:       map[string]any{"external_url": post.URL},
		})
	}
	return items, nil
}
