// Package filter evaluates a user's configured Filter rules against a
// collected item, producing the actions and score adjustments the rest of
// the pipeline (scorer, dispatcher) consumes.
package filter

import (
	"log/slog"
	"sort"

	"sentinelpi/internal/domain/entity"
)

// Result is the accumulated outcome of running every enabled filter over
// an item.
type Result struct {
	Excluded      bool
	ScoreModifier float64
	Tags          []string
	Highlighted   bool
	Alerts        []MatchedAlert
}

// MatchedAlert records a filter that requested an alert, for the
// dispatcher's aggregation window.
type MatchedAlert struct {
	FilterID      string
	FilterName    string
	Severity      string
	MatchedValue  string
}

// Engine holds a set of compiled filters, sorted ascending by
// (priority, id) so evaluation order is deterministic.
type Engine struct {
	filters []entity.Filter
}

// NewEngine compiles every regex condition up front (spec behavior:
// a malformed pattern disables only that filter, never the whole set)
// and sorts filters into evaluation order.
func NewEngine(filters []entity.Filter) *Engine {
	compiled := make([]entity.Filter, 0, len(filters))
	for _, f := range filters {
		if !f.Enabled {
			continue
		}
		if err := f.Condition.Compile(); err != nil {
			slog.Warn("disabling filter with invalid condition",
				slog.String("filter_id", f.ID),
				slog.String("filter_name", f.Name),
				slog.Any("error", err))
			continue
		}
		compiled = append(compiled, f)
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		if compiled[i].Priority != compiled[j].Priority {
			return compiled[i].Priority < compiled[j].Priority
		}
		return compiled[i].ID < compiled[j].ID
	})
	return &Engine{filters: compiled}
}

// ProcessItem runs every filter in priority order, short-circuiting on the
// first exclude match. Highlight/tag/alert actions accumulate across every
// filter that matches before (or instead of) an exclude.
func (e *Engine) ProcessItem(item *entity.CollectedItem) Result {
	var result Result
	for i := range e.filters {
		f := &e.filters[i]
		matched, value := f.Condition.Evaluate(item)
		if !matched {
			continue
		}

		for _, action := range f.Actions {
			switch action {
			case entity.ActionExclude:
				result.Excluded = true
			case entity.ActionHighlight:
				result.Highlighted = true
			case entity.ActionTag:
				result.Tags = append(result.Tags, f.Tags...)
			case entity.ActionAlert:
				result.Alerts = append(result.Alerts, MatchedAlert{
					FilterID:     f.ID,
					FilterName:   f.Name,
					Severity:     f.AlertSeverity,
					MatchedValue: value,
				})
			}
		}

		if result.Excluded {
			return result
		}

		result.ScoreModifier += f.ScoreModifier
	}
	return result
}
