// Package scorer ranks collected items by a weighted, explainable
// relevance score combining recency, source priority, content quality,
// filter hits, and learned user preference.
package scorer

import (
	"math"
	"sort"
	"time"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/filter"
)

const (
	baseScore         = 50.0
	recencyHalfLife   = 24 * time.Hour
	missingDateFactor = 0.5
)

// Weights controls the contribution of each scoring factor. Zero-value
// Weights is invalid; use DefaultWeights.
type Weights struct {
	Recency   float64
	Priority  float64
	Quality   float64
	Highlight float64
}

// DefaultWeights returns the station's default scoring weight table.
func DefaultWeights() Weights {
	return Weights{Recency: 20, Priority: 10, Quality: 10, Highlight: 30}
}

// Breakdown explains how a Score was assembled, surfaced to the dashboard
// so a user can see why an item ranked where it did.
type Breakdown struct {
	Base       float64
	Recency    float64
	Priority   float64
	Quality    float64
	Filter     float64
	Highlight  float64
	Preference float64
	Custom     float64
}

// Total sums every component. Kept separate from Score.Total so callers
// constructing a Breakdown directly (tests, persistence round-trips) get
// the same arithmetic.
func (b Breakdown) Total() float64 {
	return b.Base + b.Recency + b.Priority + b.Quality + b.Filter + b.Highlight + b.Preference + b.Custom
}

// Scored pairs an item with its computed score and the breakdown that
// produced it.
type Scored struct {
	Item      *entity.CollectedItem
	Score     float64
	Breakdown Breakdown
}

// CustomScorer is a registered plug-in contributing an additional additive
// term, keyed by item and an opaque context map (e.g. source config).
type CustomScorer func(item *entity.CollectedItem, ctx map[string]any) float64

// Scorer computes relevance scores using a fixed weight set plus any
// registered custom scorers.
type Scorer struct {
	weights Weights
	custom  []CustomScorer
}

// New constructs a Scorer with the given weights.
func New(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// NewDefault constructs a Scorer using DefaultWeights().
func NewDefault() *Scorer {
	return New(DefaultWeights())
}

// RegisterCustomScorer adds a plug-in contributing Σ custom_scorer(item, ctx).
func (s *Scorer) RegisterCustomScorer(fn CustomScorer) {
	s.custom = append(s.custom, fn)
}

// ScoreItem computes the full additive score for item given the filter
// result that ran over it, its source's priority, the current
// preference-learner contribution, and a context map for custom scorers.
func (s *Scorer) ScoreItem(item *entity.CollectedItem, filterResult filter.Result, sourcePriority int, preferenceScore float64, ctx map[string]any) Scored {
	b := Breakdown{
		Base:       baseScore,
		Recency:    s.weights.Recency * recencyFactor(item.PublishedAt),
		Priority:   s.weights.Priority * priorityFactor(sourcePriority),
		Quality:    s.weights.Quality * qualityFactor(item),
		Filter:     filterResult.ScoreModifier,
		Preference: preferenceScore,
	}
	if filterResult.Highlighted {
		b.Highlight = s.weights.Highlight
	}
	for _, fn := range s.custom {
		b.Custom += fn(item, ctx)
	}

	return Scored{Item: item, Score: b.Total(), Breakdown: b}
}

// recencyFactor implements exponential half-life decay,
// clamped to [0, 1]. A zero PublishedAt (unknown publish time) scores the
// neutral default rather than penalizing the item as infinitely old.
func recencyFactor(publishedAt time.Time) float64 {
	if publishedAt.IsZero() {
		return missingDateFactor
	}
	age := time.Since(publishedAt)
	if age < 0 {
		age = 0
	}
	ageHours := age.Hours()
	factor := math.Exp(-math.Ln2 * ageHours / recencyHalfLife.Hours())
	if factor > 1 {
		factor = 1
	}
	if factor < 0 {
		factor = 0
	}
	return factor
}

// priorityFactor maps a source's 1-3 priority tier to the 1.0/0.5/0.2
// weighting table; anything outside that range contributes nothing.
func priorityFactor(priority int) float64 {
	switch priority {
	case 1:
		return 1.0
	case 2:
		return 0.5
	case 3:
		return 0.2
	default:
		return 0
	}
}

// qualityFactor is a content-quality heuristic: longer bodies and the
// presence of an image, author, or summary each push it toward 1.0.
func qualityFactor(item *entity.CollectedItem) float64 {
	var score float64
	const maxLengthBonus = 0.5

	contentLen := len(item.Content)
	lengthScore := float64(contentLen) / 2000.0
	if lengthScore > maxLengthBonus {
		lengthScore = maxLengthBonus
	}
	score += lengthScore

	if item.ImageURL != "" {
		score += 0.2
	}
	if item.Author != "" {
		score += 0.15
	}
	if item.Summary != "" {
		score += 0.15
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// RankItems performs a stable sort by (score desc, published_at desc,
// guid asc).
func RankItems(items []Scored) []Scored {
	ranked := make([]Scored, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].Item.PublishedAt.Equal(ranked[j].Item.PublishedAt) {
			return ranked[i].Item.PublishedAt.After(ranked[j].Item.PublishedAt)
		}
		return ranked[i].Item.GUID < ranked[j].Item.GUID
	})
	return ranked
}
