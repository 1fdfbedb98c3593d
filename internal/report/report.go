// Package report answers range-scan questions over collected items —
// "how many items came in last week, broken down by source and
// category" — as thin aggregation over the storage layer's existing
// range-query filters. No rendering: a CLI flag or dashboard panel
// formats the Summary however it likes (kept deliberately
// thin; this station doesn't render its own dashboards).
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/repository"
)

// Summary aggregates item counts over a time range.
type Summary struct {
	From            time.Time
	To              time.Time
	TotalItems      int
	HighlightedItems int
	ExcludedItems   int
	BySource        []SourceCount
	ByCategory      []CategoryCount
}

// SourceCount is one source's contribution to a Summary.
type SourceCount struct {
	SourceID   string
	SourceName string
	Count      int
}

// CategoryCount is one category's contribution to a Summary.
type CategoryCount struct {
	Category string
	Count    int
}

// Generate scans items published within [from, to] and aggregates
// counts per source and per category. Sources without a category are
// grouped under "uncategorized".
func Generate(ctx context.Context, items repository.ItemRepository, sources repository.SourceRepository, from, to time.Time) (*Summary, error) {
	matched, err := items.SearchWithFilters(ctx, nil, repository.ItemSearchFilters{From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("report: search items: %w", err)
	}

	sourceList, err := sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: list sources: %w", err)
	}
	sourceByID := make(map[string]*entity.Source, len(sourceList))
	for _, s := range sourceList {
		sourceByID[s.ID] = s
	}

	summary := &Summary{From: from, To: to, TotalItems: len(matched)}
	bySource := make(map[string]int)
	byCategory := make(map[string]int)

	for _, item := range matched {
		if item.Highlighted {
			summary.HighlightedItems++
		}
		if item.Excluded {
			summary.ExcludedItems++
		}
		bySource[item.SourceID]++

		category := "uncategorized"
		if src, ok := sourceByID[item.SourceID]; ok && src.Category != "" {
			category = src.Category
		}
		byCategory[category]++
	}

	for sourceID, count := range bySource {
		name := sourceID
		if src, ok := sourceByID[sourceID]; ok {
			name = src.Name
		}
		summary.BySource = append(summary.BySource, SourceCount{SourceID: sourceID, SourceName: name, Count: count})
	}
	sort.Slice(summary.BySource, func(i, j int) bool { return summary.BySource[i].Count > summary.BySource[j].Count })

	for category, count := range byCategory {
		summary.ByCategory = append(summary.ByCategory, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool { return summary.ByCategory[i].Count > summary.ByCategory[j].Count })

	return summary, nil
}
