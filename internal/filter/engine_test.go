package filter

import (
	"testing"

	"sentinelpi/internal/domain/entity"
)

func sampleItem() *entity.CollectedItem {
	return &entity.CollectedItem{
		GUID:    "test-guid-123",
		Title:   "Breaking News: AI Startup Raises $50M in Series A",
		Content: "A new artificial intelligence company has secured funding...",
		Summary: "AI startup funding news",
		Author:  "John Reporter",
		URL:     "https://example.com/ai-startup-funding",
	}
}

func keywordsFilter(id string, field string, keywords []string, action entity.FilterAction, scoreModifier float64) entity.Filter {
	f := entity.Filter{
		ID:            id,
		Name:          id,
		Enabled:       true,
		Priority:      100,
		Actions:       []entity.FilterAction{action},
		ScoreModifier: scoreModifier,
		Condition: entity.Condition{
			Kind:     entity.ConditionKeywords,
			Field:    field,
			Keywords: keywords,
		},
	}
	return f
}

func TestEngine_ProcessItem_Highlight(t *testing.T) {
	f := keywordsFilter("test-filter", "title", []string{"AI"}, entity.ActionHighlight, 50.0)
	engine := NewEngine([]entity.Filter{f})

	result := engine.ProcessItem(sampleItem())

	if !result.Highlighted {
		t.Error("expected Highlighted = true")
	}
	if result.ScoreModifier != 50.0 {
		t.Errorf("ScoreModifier = %v, want 50.0", result.ScoreModifier)
	}
}

func TestEngine_ProcessItem_Exclude(t *testing.T) {
	f := keywordsFilter("test-filter", "title", []string{"Breaking News"}, entity.ActionExclude, 0)
	f.Priority = 1
	engine := NewEngine([]entity.Filter{f})

	result := engine.ProcessItem(sampleItem())

	if !result.Excluded {
		t.Error("expected Excluded = true")
	}
}

func TestEngine_ProcessItem_Tag(t *testing.T) {
	f := entity.Filter{
		ID:      "test-filter",
		Name:    "Tag Funding",
		Enabled: true,
		Actions: []entity.FilterAction{entity.ActionTag},
		Tags:    []string{"funding"},
		Condition: entity.Condition{
			Kind:     entity.ConditionKeywords,
			Field:    "all",
			Keywords: []string{"funding", "Series A"},
		},
	}
	engine := NewEngine([]entity.Filter{f})

	result := engine.ProcessItem(sampleItem())

	found := false
	for _, tag := range result.Tags {
		if tag == "funding" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected tags to contain %q, got %v", "funding", result.Tags)
	}
}

func TestEngine_ProcessItem_Tag_MatchesSummaryAndAuthorUnderFieldAll(t *testing.T) {
	f := entity.Filter{
		ID:      "test-filter-reporter",
		Name:    "Tag Reporter",
		Enabled: true,
		Actions: []entity.FilterAction{entity.ActionTag},
		Tags:    []string{"by-reporter"},
		Condition: entity.Condition{
			Kind:     entity.ConditionKeywords,
			Field:    "all",
			Keywords: []string{"John Reporter"},
		},
	}
	engine := NewEngine([]entity.Filter{f})

	result := engine.ProcessItem(sampleItem())

	found := false
	for _, tag := range result.Tags {
		if tag == "by-reporter" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected field=all to match a keyword only present in Author, got tags %v", result.Tags)
	}
}

func TestEngine_ProcessItem_Alert(t *testing.T) {
	f := entity.Filter{
		ID:            "test-filter",
		Name:          "Alert Major Funding",
		Enabled:       true,
		Actions:       []entity.FilterAction{entity.ActionAlert},
		ScoreModifier: 100.0,
		AlertSeverity: "notice",
		Condition: entity.Condition{
			Kind:    entity.ConditionRegex,
			Field:   "title",
			Pattern: `\$\d+M`,
		},
	}
	engine := NewEngine([]entity.Filter{f})

	result := engine.ProcessItem(sampleItem())

	if len(result.Alerts) != 1 {
		t.Fatalf("len(Alerts) = %d, want 1", len(result.Alerts))
	}
	if result.Alerts[0].Severity != "notice" {
		t.Errorf("Severity = %q, want %q", result.Alerts[0].Severity, "notice")
	}
	if result.Alerts[0].MatchedValue != "$50M" {
		t.Errorf("MatchedValue = %q, want %q", result.Alerts[0].MatchedValue, "$50M")
	}
}

func TestEngine_ProcessItem_DisabledFilterIgnored(t *testing.T) {
	f := keywordsFilter("test-filter", "title", []string{"AI"}, entity.ActionExclude, 0)
	f.Enabled = false
	engine := NewEngine([]entity.Filter{f})

	result := engine.ProcessItem(sampleItem())

	if result.Excluded {
		t.Error("expected Excluded = false for disabled filter")
	}
}

func TestEngine_ProcessItem_InvalidRegexDisablesOnlyThatFilter(t *testing.T) {
	bad := entity.Filter{
		ID:      "bad-regex",
		Name:    "Bad Regex",
		Enabled: true,
		Actions: []entity.FilterAction{entity.ActionExclude},
		Condition: entity.Condition{
			Kind:    entity.ConditionRegex,
			Pattern: "(unclosed",
		},
	}
	good := keywordsFilter("good-filter", "title", []string{"AI"}, entity.ActionHighlight, 10)

	engine := NewEngine([]entity.Filter{bad, good})
	if len(engine.filters) != 1 {
		t.Fatalf("expected invalid filter to be dropped, got %d filters", len(engine.filters))
	}

	result := engine.ProcessItem(sampleItem())
	if !result.Highlighted {
		t.Error("expected the remaining valid filter to still evaluate")
	}
}

func TestEngine_ProcessItem_PriorityOrderingAndShortCircuit(t *testing.T) {
	lowPriorityExclude := keywordsFilter("exclude", "title", []string{"AI"}, entity.ActionExclude, 0)
	lowPriorityExclude.Priority = 1
	highPriorityHighlight := keywordsFilter("highlight", "title", []string{"AI"}, entity.ActionHighlight, 999)
	highPriorityHighlight.Priority = 100

	engine := NewEngine([]entity.Filter{highPriorityHighlight, lowPriorityExclude})
	result := engine.ProcessItem(sampleItem())

	if !result.Excluded {
		t.Fatal("expected exclude filter (lower priority) to run first and short-circuit")
	}
	if result.ScoreModifier != 0 {
		t.Errorf("ScoreModifier = %v, want 0 (short-circuited before accumulating)", result.ScoreModifier)
	}
}
