package scorer

import (
	"strings"
	"testing"
	"time"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/filter"
)

func recentItem() *entity.CollectedItem {
	return &entity.CollectedItem{
		GUID:        "recent-item",
		Title:       "Recent News Article",
		Content:     repeatString("This is a recent article with good content. ", 50),
		Author:      "Author Name",
		ImageURL:    "https://example.com/image.jpg",
		PublishedAt: time.Now().Add(-1 * time.Hour),
	}
}

func oldItem() *entity.CollectedItem {
	return &entity.CollectedItem{
		GUID:        "old-item",
		Title:       "Old News Article",
		Content:     "This is an older article.",
		PublishedAt: time.Now().Add(-7 * 24 * time.Hour),
	}
}

func minimalItem() *entity.CollectedItem {
	return &entity.CollectedItem{
		GUID:  "minimal-item",
		Title: "Minimal",
	}
}

func repeatString(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func TestScoreItem_Basic(t *testing.T) {
	s := NewDefault()
	scored := s.ScoreItem(recentItem(), filter.Result{}, 0, 0, nil)

	if scored.Score <= 0 {
		t.Errorf("Score = %v, want > 0", scored.Score)
	}
	if scored.Breakdown.Base != 50.0 {
		t.Errorf("Base = %v, want 50.0", scored.Breakdown.Base)
	}
	if scored.Breakdown.Recency <= 0 {
		t.Errorf("Recency = %v, want > 0", scored.Breakdown.Recency)
	}
	if scored.Breakdown.Quality <= 0 {
		t.Errorf("Quality = %v, want > 0", scored.Breakdown.Quality)
	}
}

func TestScoreItem_RecencyAffectsScore(t *testing.T) {
	s := NewDefault()

	recent := s.ScoreItem(recentItem(), filter.Result{}, 0, 0, nil)
	old := s.ScoreItem(oldItem(), filter.Result{}, 0, 0, nil)

	if recent.Breakdown.Recency <= old.Breakdown.Recency {
		t.Errorf("recent.Recency = %v, want > old.Recency = %v", recent.Breakdown.Recency, old.Breakdown.Recency)
	}
	if recent.Score <= old.Score {
		t.Errorf("recent.Score = %v, want > old.Score = %v", recent.Score, old.Score)
	}
}

func TestScoreItem_ContentQualityAffectsScore(t *testing.T) {
	s := NewDefault()

	now := time.Now()
	full := recentItem()
	full.PublishedAt = now
	minimal := minimalItem()
	minimal.PublishedAt = now

	fullScored := s.ScoreItem(full, filter.Result{}, 0, 0, nil)
	minimalScored := s.ScoreItem(minimal, filter.Result{}, 0, 0, nil)

	if fullScored.Breakdown.Quality <= minimalScored.Breakdown.Quality {
		t.Errorf("full.Quality = %v, want > minimal.Quality = %v", fullScored.Breakdown.Quality, minimalScored.Breakdown.Quality)
	}
}

func TestScoreItem_PriorityAffectsScore(t *testing.T) {
	s := NewDefault()
	item := recentItem()

	high := s.ScoreItem(item, filter.Result{}, 1, 0, nil)
	normal := s.ScoreItem(item, filter.Result{}, 2, 0, nil)
	low := s.ScoreItem(item, filter.Result{}, 3, 0, nil)

	if !(high.Breakdown.Priority > normal.Breakdown.Priority && normal.Breakdown.Priority > low.Breakdown.Priority) {
		t.Errorf("expected high > normal > low priority scores, got %v, %v, %v",
			high.Breakdown.Priority, normal.Breakdown.Priority, low.Breakdown.Priority)
	}
}

func TestScoreItem_FilterResultAffectsScore(t *testing.T) {
	s := NewDefault()
	item := recentItem()

	withFilter := filter.Result{ScoreModifier: 50.0, Highlighted: true}
	scoredWith := s.ScoreItem(item, withFilter, 0, 0, nil)
	scoredWithout := s.ScoreItem(item, filter.Result{}, 0, 0, nil)

	if scoredWith.Breakdown.Filter != 50.0 {
		t.Errorf("Filter = %v, want 50.0", scoredWith.Breakdown.Filter)
	}
	if scoredWith.Breakdown.Highlight <= 0 {
		t.Errorf("Highlight = %v, want > 0", scoredWith.Breakdown.Highlight)
	}
	if scoredWith.Score <= scoredWithout.Score {
		t.Errorf("scoredWith.Score = %v, want > scoredWithout.Score = %v", scoredWith.Score, scoredWithout.Score)
	}
}

func TestScoreItem_CustomScorer(t *testing.T) {
	s := NewDefault()
	s.RegisterCustomScorer(func(item *entity.CollectedItem, ctx map[string]any) float64 {
		if strings.Contains(strings.ToLower(item.Title), "ai") || strings.Contains(strings.ToLower(item.Content), "artificial") {
			return 25.0
		}
		return 0.0
	})

	scored := s.ScoreItem(recentItem(), filter.Result{}, 0, 0, nil)
	if scored.Breakdown.Custom != 0.0 {
		t.Errorf("Custom = %v, want 0.0 for non-AI item", scored.Breakdown.Custom)
	}

	aiItem := &entity.CollectedItem{
		GUID:        "ai-item",
		Title:       "AI Revolution",
		Content:     "Artificial intelligence is changing...",
		PublishedAt: time.Now(),
	}
	aiScored := s.ScoreItem(aiItem, filter.Result{}, 0, 0, nil)
	if aiScored.Breakdown.Custom != 25.0 {
		t.Errorf("Custom = %v, want 25.0 for AI item", aiScored.Breakdown.Custom)
	}
}

func TestRankItems(t *testing.T) {
	s := NewDefault()
	items := []*entity.CollectedItem{oldItem(), minimalItem(), recentItem()}

	scored := make([]Scored, 0, len(items))
	for _, it := range items {
		scored = append(scored, s.ScoreItem(it, filter.Result{}, 0, 0, nil))
	}
	ranked := RankItems(scored)

	if ranked[0].Item.GUID != "recent-item" {
		t.Errorf("ranked[0].GUID = %q, want %q", ranked[0].Item.GUID, "recent-item")
	}
	for i := 0; i < len(ranked)-1; i++ {
		if ranked[i].Score < ranked[i+1].Score {
			t.Errorf("ranked items not in descending score order at index %d", i)
		}
	}
}

func TestScoreItem_CustomWeights(t *testing.T) {
	weights := Weights{Recency: 100.0, Priority: 0, Quality: 0, Highlight: 0}
	s := New(weights)

	scored := s.ScoreItem(recentItem(), filter.Result{}, 0, 0, nil)
	if scored.Breakdown.Recency <= 50 {
		t.Errorf("Recency = %v, want > 50 due to high weight", scored.Breakdown.Recency)
	}
}

func TestBreakdown_Total(t *testing.T) {
	b := Breakdown{
		Base:      50.0,
		Filter:    25.0,
		Recency:   15.0,
		Priority:  10.0,
		Quality:   5.0,
		Highlight: 30.0,
		Custom:    10.0,
	}
	if got := b.Total(); got != 145.0 {
		t.Errorf("Total() = %v, want 145.0", got)
	}
}
