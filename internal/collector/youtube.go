package collector

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/resilience/circuitbreaker"
	"sentinelpi/internal/resilience/retry"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// YouTubeCollector reads a channel's public Atom feed
// (https://www.youtube.com/feeds/videos.xml?channel_id=...), which needs no
// API key. source.URL may be that feed URL directly, or a bare channel ID
// that gets expanded into it.
type YouTubeCollector struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

func NewYouTubeCollector(client *http.Client) *YouTubeCollector {
	return &YouTubeCollector{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.CollectorConfig("youtube")),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

func (y *YouTubeCollector) Collect(ctx context.Context, source *entity.Source) ([]entity.CollectedItem, error) {
	var items []entity.CollectedItem
	retryErr := retry.WithBackoff(ctx, y.retryConfig, func() error {
		result, err := y.circuitBreaker.Execute(func() (interface{}, error) {
			return y.doFetch(ctx, source)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("youtube collector circuit breaker open", slog.String("source_id", source.ID))
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

func feedURLForChannel(raw string) string {
	if strings.Contains(raw, "/feeds/videos.xml") {
		return raw
	}
	channelID := strings.TrimPrefix(raw, "https://www.youtube.com/channel/")
	channelID = strings.TrimSuffix(channelID, "/")
	return "https://www.youtube.com/feeds/videos.xml?channel_id=" + channelID
}

func (y *YouTubeCollector) doFetch(ctx context.Context, source *entity.Source) ([]entity.CollectedItem, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = "SentinelPi/1.0"
	fp.Client = y.client

	feed, err := fp.ParseURLWithContext(feedURLForChannel(source.URL), ctx)
	if err != nil {
		return nil, err
	}

	items := make([]entity.CollectedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		publishedAt := time.Now()
		if it.PublishedParsed != nil {
			publishedAt = *it.PublishedParsed
		}

		var thumbnail string
		if it.Extensions["media"] != nil {
			if group, ok := it.Extensions["media"]["group"]; ok && len(group) > 0 {
				if thumbs, ok := group[0].Children["thumbnail"]; ok && len(thumbs) > 0 {
					thumbnail = thumbs[0].Attrs["url"]
				}
			}
		}

		author := ""
		if it.Author != nil {
			author = it.Author.Name
		}

		items = append(items, entity.CollectedItem{
			SourceID:    source.ID,
			GUID:        it.GUID,
			Title:       it.Title,
			URL:         it.Link,
			Author:      author,
			Content:     it.Description,
			PublishedAt: publishedAt,
			CollectedAt: time.Now(),
			ImageURL:    thumbnail,
		})
	}
	return items, nil
}
