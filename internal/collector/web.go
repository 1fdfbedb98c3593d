package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/resilience/circuitbreaker"
	"sentinelpi/internal/resilience/retry"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/sony/gobreaker"
)

const maxWebBodySize = 10 * 1024 * 1024 // 10MB

// WebCollector scrapes arbitrary self-hosted pages via CSS selectors
// configured per source (item/title/url/date selectors and an optional
// URL prefix for relative links).
type WebCollector struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

func NewWebCollector(client *http.Client) *WebCollector {
	return &WebCollector{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.CollectorConfig("web")),
		retryConfig:    retry.WebScraperConfig(),
	}
}

func (w *WebCollector) Collect(ctx context.Context, source *entity.Source) ([]entity.CollectedItem, error) {
	if err := entity.ValidateURL(source.URL); err != nil {
		return nil, fmt.Errorf("web collector: %w", err)
	}

	var items []entity.CollectedItem
	retryErr := retry.WithBackoff(ctx, w.retryConfig, func() error {
		result, err := w.circuitBreaker.Execute(func() (interface{}, error) {
			return w.doFetch(ctx, source)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("web collector circuit breaker open",
					slog.String("source_id", source.ID), slog.String("url", source.URL))
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

func (w *WebCollector) doFetch(ctx context.Context, source *entity.Source) ([]entity.CollectedItem, error) {
	doc, err := w.fetchHTML(ctx, source.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch HTML: %w", err)
	}

	itemSelector := stringConfig(source.Config, "item_selector", "article")
	titleSelector := stringConfig(source.Config, "title_selector", "h1, h2, h3")
	urlSelector := stringConfig(source.Config, "url_selector", "a")
	dateSelector := stringConfig(source.Config, "date_selector", "time")
	contentSelector := stringConfig(source.Config, "content_selector", "p")
	urlPrefix := stringConfig(source.Config, "url_prefix", "")

	var items []entity.CollectedItem
	doc.Find(itemSelector).Each(func(i int, el *goquery.Selection) {
		title := strings.TrimSpace(el.Find(titleSelector).First().Text())
		if title == "" {
			return
		}

		itemURL := ""
		if href, exists := el.Find(urlSelector).First().Attr("href"); exists {
			itemURL = makeAbsoluteURL(strings.TrimSpace(href), urlPrefix)
		}
		if itemURL == "" {
			return
		}

		dateStr := strings.TrimSpace(el.Find(dateSelector).First().Text())
		publishedAt := parseFlexibleDate(dateStr)
		content := strings.TrimSpace(el.Find(contentSelector).Text())

		items = append(items, entity.CollectedItem{
			SourceID:    source.ID,
			GUID:        itemURL,
			Title:       title,
			URL:         itemURL,
			Content:     content,
			PublishedAt: publishedAt,
			CollectedAt: time.Now(),
		})
	})

	if len(items) == 0 {
		return nil, fmt.Errorf("no items found with selector %q", itemSelector)
	}
	return items, nil
}

func (w *WebCollector) fetchHTML(ctx context.Context, urlStr string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "SentinelPi/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unexpected status: %s", resp.Status)}
	}

	return goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxWebBodySize))
}

// parseFlexibleDate leans on araddon/dateparse's lenient parser since
// self-hosted pages rarely emit a single consistent date format.
func parseFlexibleDate(dateStr string) time.Time {
	if dateStr == "" {
		return time.Now()
	}
	t, err := dateparse.ParseAny(dateStr)
	if err != nil {
		slog.Debug("failed to parse date, using current time", slog.String("date_str", dateStr))
		return time.Now()
	}
	return t
}

func makeAbsoluteURL(urlStr, prefix string) string {
	if strings.HasPrefix(urlStr, "http://") || strings.HasPrefix(urlStr, "https://") {
		return urlStr
	}
	if prefix == "" {
		return urlStr
	}
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(urlStr, "/")
}
