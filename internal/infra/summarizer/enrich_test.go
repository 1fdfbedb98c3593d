package summarizer

import (
	"context"
	"strings"
	"testing"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/tests/fixtures"
)

func TestEnrichItem_NilSummarizerIsNoOp(t *testing.T) {
	item := &entity.CollectedItem{Content: strings.Repeat("x", 1000)}
	if err := EnrichItem(context.Background(), nil, item); err != nil {
		t.Fatalf("EnrichItem() error = %v", err)
	}
	if item.Summary != "" {
		t.Errorf("expected no summary with nil summarizer, got %q", item.Summary)
	}
}

func TestEnrichItem_SkipsShortContent(t *testing.T) {
	item := &entity.CollectedItem{Content: "short"}
	if err := EnrichItem(context.Background(), NewNoOp(), item); err != nil {
		t.Fatalf("EnrichItem() error = %v", err)
	}
	if item.Summary != "" {
		t.Errorf("expected no summary for short content, got %q", item.Summary)
	}
}

func TestEnrichItem_SkipsWhenSummaryAlreadySet(t *testing.T) {
	item := &entity.CollectedItem{Content: strings.Repeat("x", 1000), Summary: "already here"}
	if err := EnrichItem(context.Background(), NewNoOp(), item); err != nil {
		t.Fatalf("EnrichItem() error = %v", err)
	}
	if item.Summary != "already here" {
		t.Errorf("expected existing summary to be preserved, got %q", item.Summary)
	}
}

func TestEnrichItem_SummarizesLongContentWithoutSummary(t *testing.T) {
	item := &entity.CollectedItem{Content: strings.Repeat("x", 1000)}
	if err := EnrichItem(context.Background(), NewNoOp(), item); err != nil {
		t.Fatalf("EnrichItem() error = %v", err)
	}
	if item.Summary == "" {
		t.Error("expected a summary to be filled in")
	}
}

func TestEnrichItem_SummarizesRealisticArticleContent(t *testing.T) {
	item := &entity.CollectedItem{Content: fixtures.GenerateMediumArticle()}
	if err := EnrichItem(context.Background(), NewNoOp(), item); err != nil {
		t.Fatalf("EnrichItem() error = %v", err)
	}
	if item.Summary == "" {
		t.Error("expected a summary to be filled in for realistic article content")
	}
}

func TestEnrichItem_SkipsShortRealisticArticle(t *testing.T) {
	item := &entity.CollectedItem{Content: fixtures.GenerateShortArticle()}
	if err := EnrichItem(context.Background(), NewNoOp(), item); err != nil {
		t.Fatalf("EnrichItem() error = %v", err)
	}
	if item.Summary != "" {
		t.Errorf("expected no summary for a short article, got %q", item.Summary)
	}
}
