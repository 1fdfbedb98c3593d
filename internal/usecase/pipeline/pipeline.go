// Package pipeline wires collection, deduplication, filtering, scoring,
// preference learning, and alert persistence into the single per-source
// operation the scheduler drives.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sentinelpi/internal/collector"
	"sentinelpi/internal/dedup"
	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/filter"
	"sentinelpi/internal/observability/metrics"
	"sentinelpi/internal/preference"
	"sentinelpi/internal/repository"
	"sentinelpi/internal/scorer"
)

// ContentFetcher optionally replaces a short collected excerpt with the
// full article body fetched from the item's URL. Satisfied by
// infra/fetcher.ReadabilityFetcher; nil disables the step.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

// Summarizer optionally fills in CollectedItem.Summary for long content.
// Satisfied by infra/summarizer's Claude/OpenAI/NoOp backends.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// AlertSubmitter accepts a raised alert for aggregation and fan-out.
// Satisfied by *dispatch.Dispatcher.
type AlertSubmitter interface {
	Submit(alert entity.Alert)
}

// ContentFetchConfig controls the optional full-content enhancement step.
type ContentFetchConfig struct {
	Enabled   bool
	Threshold int // collected content shorter than this triggers a fetch
}

// Service turns a single due source into persisted items and raised
// alerts. One Service instance is shared across every concurrent
// ProcessSource call the scheduler makes; all dependencies must be
// safe for concurrent use.
type Service struct {
	Collectors     *collector.Registry
	Dedup          *dedup.Deduper
	Filters        *filter.Engine
	Scorer         *scorer.Scorer
	Preference     *preference.Learner
	Items          repository.ItemRepository
	Alerts         repository.AlertRepository
	Dispatcher     AlertSubmitter
	ContentFetcher ContentFetcher
	ContentConfig  ContentFetchConfig
	Summarizer     Summarizer
	Logger         *slog.Logger
}

// ProcessSource implements scheduler.SourceProcessor: collect from the
// source, then run every collected item through dedup, content
// enhancement, filtering, scoring, and persistence.
func (s *Service) ProcessSource(ctx context.Context, source *entity.Source) error {
	coll, err := s.Collectors.For(source)
	if err != nil {
		return fmt.Errorf("pipeline: select collector: %w", err)
	}

	start := time.Now()
	collected, err := coll.Collect(ctx, source)
	metrics.CollectorFetchDuration.WithLabelValues(string(source.Type)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CollectorErrorsTotal.WithLabelValues(source.ID, string(source.Type), "collect").Inc()
		return fmt.Errorf("pipeline: collect %s: %w", source.Name, err)
	}
	metrics.CollectorItemsTotal.WithLabelValues(source.ID, string(source.Type)).Add(float64(len(collected)))
	if len(collected) == 0 {
		return nil
	}

	pointers := make([]*entity.CollectedItem, len(collected))
	for i := range collected {
		pointers[i] = &collected[i]
	}

	results, err := s.Dedup.CheckBatch(ctx, pointers)
	if err != nil {
		return fmt.Errorf("pipeline: dedup %s: %w", source.Name, err)
	}

	for _, result := range results {
		metrics.DedupOutcomesTotal.WithLabelValues(result.Outcome.String()).Inc()

		switch result.Outcome {
		case dedup.SameSourceDuplicate:
			continue
		case dedup.CrossSourceDuplicate:
			if s.Dedup.Policy() == dedup.PolicyReject {
				continue
			}
		}

		if err := s.enhanceContent(ctx, result.Item); err != nil {
			s.Logger.Warn("content enhancement failed",
				slog.String("source_id", source.ID), slog.String("url", result.Item.URL), slog.Any("error", err))
		}

		if err := s.processItem(ctx, source, result); err != nil {
			s.Logger.Error("failed to process item",
				slog.String("source_id", source.ID), slog.String("guid", result.Item.GUID), slog.Any("error", err))
		}
	}

	return nil
}

func (s *Service) enhanceContent(ctx context.Context, item *entity.CollectedItem) error {
	if s.ContentFetcher != nil && s.ContentConfig.Enabled && len(item.Content) < s.ContentConfig.Threshold && item.URL != "" {
		full, err := s.ContentFetcher.FetchContent(ctx, item.URL)
		if err != nil {
			return fmt.Errorf("fetch full content: %w", err)
		}
		if full != "" {
			item.Content = full
		}
	}
	if s.Summarizer != nil {
		summary, err := enrichSummary(ctx, s.Summarizer, item)
		if err != nil {
			return fmt.Errorf("summarize: %w", err)
		}
		if summary != "" {
			item.Summary = summary
		}
	}
	return nil
}

// minContentLengthForSummary mirrors infra/summarizer.EnrichItem's gate;
// duplicated here (rather than imported) to keep pipeline decoupled from
// a concrete summarizer backend package.
const minContentLengthForSummary = 600

func enrichSummary(ctx context.Context, sum Summarizer, item *entity.CollectedItem) (string, error) {
	if item.Summary != "" || len(item.Content) < minContentLengthForSummary {
		return "", nil
	}
	return sum.Summarize(ctx, item.Content)
}

func (s *Service) processItem(ctx context.Context, source *entity.Source, result dedup.BatchResult) error {
	item := result.Item
	domainItem := entity.NewItem(*item)
	domainItem.ID = uuid.NewString()
	if result.Outcome == dedup.CrossSourceDuplicate && result.DuplicateOf != "" {
		domainItem.DuplicateOf = &result.DuplicateOf
	}

	filterResult := s.Filters.ProcessItem(item)
	for _, alert := range filterResult.Alerts {
		metrics.FilterMatchesTotal.WithLabelValues(alert.FilterID, "alert").Inc()
	}

	domainItem.Highlighted = filterResult.Highlighted
	domainItem.Excluded = filterResult.Excluded
	domainItem.Tags = filterResult.Tags

	// Preference features come from the item's collector-set Keywords,
	// source ID and author plus the source category; filter Tags are not used.
	prefScore, err := s.Preference.PreferenceScore(ctx, domainItem, source.Category)
	if err != nil {
		s.Logger.Warn("preference score failed, using 0", slog.Any("error", err))
	}

	scored := s.Scorer.ScoreItem(item, filterResult, source.Priority, prefScore, nil)
	metrics.ScorerItemsScored.Inc()

	domainItem.Score = scored.Score
	domainItem.ScoreDetail = breakdownToMap(scored.Breakdown)

	if err := s.Items.Create(ctx, domainItem); err != nil {
		return fmt.Errorf("store item: %w", err)
	}

	now := time.Now()
	for _, matched := range filterResult.Alerts {
		severity := entity.ParseSeverity(matched.Severity)
		alert := &entity.Alert{
			FilterID:  matched.FilterID,
			ItemID:    domainItem.ID,
			SourceID:  source.ID,
			Severity:  severity,
			Title:     domainItem.Title,
			Message:   matched.MatchedValue,
			URL:       domainItem.URL,
			CreatedAt: now,
		}
		if err := s.Alerts.Create(ctx, alert); err != nil {
			s.Logger.Error("failed to persist alert", slog.Any("error", err))
			continue
		}
		metrics.AlertsRaisedTotal.WithLabelValues(severity.String()).Inc()
		s.Dispatcher.Submit(*alert)
	}

	return nil
}

func breakdownToMap(b scorer.Breakdown) map[string]float64 {
	return map[string]float64{
		"base":       b.Base,
		"recency":    b.Recency,
		"priority":   b.Priority,
		"quality":    b.Quality,
		"filter":     b.Filter,
		"highlight":  b.Highlight,
		"preference": b.Preference,
		"custom":     b.Custom,
	}
}
