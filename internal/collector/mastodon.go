package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/resilience/circuitbreaker"
	"sentinelpi/internal/resilience/retry"

	"github.com/sony/gobreaker"
)

// MastodonCollector polls an account's public timeline via the
// unauthenticated REST API (GET /api/v1/accounts/:id/statuses?exclude_replies=true).
// source.URL is expected to be the instance base URL, with the account ID
// supplied via source.Config["account_id"].
type MastodonCollector struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

func NewMastodonCollector(client *http.Client) *MastodonCollector {
	return &MastodonCollector{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.CollectorConfig("mastodon")),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

type mastodonStatus struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	Account     struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
	} `json:"account"`
	MediaAttachments []struct {
		PreviewURL string `json:"preview_url"`
	} `json:"media_attachments"`
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

func (m *MastodonCollector) Collect(ctx context.Context, source *entity.Source) ([]entity.CollectedItem, error) {
	var items []entity.CollectedItem
	retryErr := retry.WithBackoff(ctx, m.retryConfig, func() error {
		result, err := m.circuitBreaker.Execute(func() (interface{}, error) {
			return m.doFetch(ctx, source)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("mastodon collector circuit breaker open", slog.String("source_id", source.ID))
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

func (m *MastodonCollector) doFetch(ctx context.Context, source *entity.Source) ([]entity.CollectedItem, error) {
	accountID := stringConfig(source.Config, "account_id", "")
	if accountID == "" {
		return nil, fmt.Errorf("mastodon source %s: missing account_id config", source.ID)
	}

	base := strings.TrimRight(source.URL, "/")
	statusURL := fmt.Sprintf("%s/api/v1/accounts/%s/statuses?exclude_replies=true&limit=40", base, accountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "SentinelPi/1.0 (self-hosted monitor)")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unexpected status: %s", resp.Status)}
	}

	var statuses []mastodonStatus
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		return nil, fmt.Errorf("decode statuses: %w", err)
	}

	items := make([]entity.CollectedItem, 0, len(statuses))
	for _, st := range statuses {
		title := strings.TrimSpace(htmlTagPattern.ReplaceAllString(st.Content, " "))
		if len(title) > 120 {
			title = title[:120] + "…"
		}

		author := st.Account.DisplayName
		if author == "" {
			author = st.Account.Username
		}

		var imageURL string
		if len(st.MediaAttachments) > 0 {
			imageURL = st.MediaAttachments[0].PreviewURL
		}

		items = append(items, entity.CollectedItem{
			SourceID:    source.ID,
			GUID:        st.ID,
			Title:       title,
			URL:         st.URL,
			Author:      author,
			Content:     st.Content,
			PublishedAt: st.CreatedAt,
			CollectedAt: time.Now(),
			ImageURL:    imageURL,
		})
	}
	return items, nil
}
