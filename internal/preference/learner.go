// Package preference learns per-user feature weights from UserActions and
// contributes a preference_score the scorer folds into its total.
package preference

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/repository"
)

// Config controls the learner's update and decay behavior, mirroring
// the original Python implementation's LearningConfig defaults.
type Config struct {
	Enabled              bool
	LearningRate         float64
	DecayHalfLife        time.Duration
	MinActionsRequired   int
	MaxPreferenceScore   float64
	MaxFeaturesPerAction int
}

// DefaultConfig returns the learner's default tuning parameters.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		LearningRate:         0.1,
		DecayHalfLife:        30 * 24 * time.Hour,
		MinActionsRequired:   20,
		MaxPreferenceScore:   25.0,
		MaxFeaturesPerAction: 10,
	}
}

// feature is a single (type, value) pair extracted from an item.
type feature struct {
	Type  entity.FeatureType
	Value string
}

// stagedDelta accumulates weight updates for a feature below the
// activation gate, so nothing is lost once the gate opens.
type stagedDelta struct {
	Type  entity.FeatureType
	Value string
	Delta float64
}

// Learner records UserActions, updates persisted per-feature weights once
// active, and computes each item's current preference_score with
// read-time decay.
type Learner struct {
	config Config
	repo   repository.PreferenceRepository

	mu     sync.Mutex
	staged map[string]*stagedDelta // key: type+"\x00"+value
}

func New(repo repository.PreferenceRepository, config Config) *Learner {
	return &Learner{
		config: config,
		repo:   repo,
		staged: make(map[string]*stagedDelta),
	}
}

func stagingKey(t entity.FeatureType, value string) string {
	return string(t) + "\x00" + value
}

// extractFeatures derives up to MaxFeaturesPerAction keyword features plus
// one source feature, one author feature, and one category feature.
// Keyword, author and category values are lower-cased for case-insensitive
// matching; the source ID is kept as is.
func (l *Learner) extractFeatures(item *entity.Item, category string) []feature {
	features := make([]feature, 0, l.config.MaxFeaturesPerAction+3)

	for i, kw := range item.Keywords {
		if i >= l.config.MaxFeaturesPerAction {
			break
		}
		features = append(features, feature{Type: entity.FeatureKeyword, Value: strings.ToLower(kw)})
	}

	if item.SourceID != "" {
		features = append(features, feature{Type: entity.FeatureSource, Value: item.SourceID})
	}
	if item.Author != "" {
		features = append(features, feature{Type: entity.FeatureAuthor, Value: strings.ToLower(item.Author)})
	}
	if category != "" {
		features = append(features, feature{Type: entity.FeatureCategory, Value: strings.ToLower(category)})
	}

	return features
}

// RecordAction applies the update rule for a single action: every
// extracted feature's weight is nudged by learning_rate*signal and
// clamped to ±MaxPreferenceScore. Below the activation gate, deltas are
// staged in memory rather than persisted, so early actions are not
// wasted once learning activates.
func (l *Learner) RecordAction(ctx context.Context, action entity.UserAction, item *entity.Item, category string) error {
	if !l.config.Enabled {
		return nil
	}

	if err := l.repo.RecordAction(ctx, &action); err != nil {
		return fmt.Errorf("preference: record action: %w", err)
	}

	signal, ok := entity.ActionSignals[action.Action]
	if !ok {
		return fmt.Errorf("preference: unknown action type %q", action.Action)
	}

	total, err := l.repo.CountActions(ctx)
	if err != nil {
		return fmt.Errorf("preference: count actions: %w", err)
	}

	features := l.extractFeatures(item, category)
	delta := l.config.LearningRate * signal

	if total < l.config.MinActionsRequired {
		l.stageDeltas(features, delta)
		return nil
	}

	// Gate just opened or was already open: materialize any staged
	// deltas plus the current action's delta in one pass.
	if err := l.materializeStaged(ctx, features, delta); err != nil {
		return fmt.Errorf("preference: materialize: %w", err)
	}
	return nil
}

func (l *Learner) stageDeltas(features []feature, delta float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range features {
		key := stagingKey(f.Type, f.Value)
		s, ok := l.staged[key]
		if !ok {
			s = &stagedDelta{Type: f.Type, Value: f.Value}
			l.staged[key] = s
		}
		s.Delta += delta
	}
}

// materializeStaged applies every staged delta (the first time this is
// called after the gate opens) plus the current action's own delta,
// writing the result through to the repository, then clears the stage.
func (l *Learner) materializeStaged(ctx context.Context, features []feature, currentDelta float64) error {
	l.mu.Lock()
	toApply := make(map[string]*stagedDelta, len(l.staged)+len(features))
	for k, v := range l.staged {
		toApply[k] = v
	}
	l.staged = make(map[string]*stagedDelta)
	l.mu.Unlock()

	for _, f := range features {
		key := stagingKey(f.Type, f.Value)
		s, ok := toApply[key]
		if !ok {
			s = &stagedDelta{Type: f.Type, Value: f.Value}
			toApply[key] = s
		}
		s.Delta += currentDelta
	}

	now := time.Now()
	for _, s := range toApply {
		existing, err := l.repo.Get(ctx, s.Type, s.Value)
		if err != nil {
			return err
		}
		weight := 0.0
		if existing != nil {
			weight = existing.Score
		}
		weight = clamp(weight+s.Delta, l.config.MaxPreferenceScore)

		if err := l.repo.Upsert(ctx, &entity.UserPreference{
			Type:      s.Type,
			Value:     s.Value,
			Score:     weight,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func clamp(weight, max float64) float64 {
	if weight > max {
		return max
	}
	if weight < -max {
		return -max
	}
	return weight
}

// PreferenceScore computes preference_score(item) as the decayed sum of
// every matching feature's persisted weight. Decay is read-time only
// never written back. Returns 0 when the learner is
// disabled or inactive (below MinActionsRequired).
func (l *Learner) PreferenceScore(ctx context.Context, item *entity.Item, category string) (float64, error) {
	if !l.config.Enabled {
		return 0, nil
	}

	total, err := l.repo.CountActions(ctx)
	if err != nil {
		return 0, fmt.Errorf("preference: count actions: %w", err)
	}
	if total < l.config.MinActionsRequired {
		return 0, nil
	}

	features := l.extractFeatures(item, category)
	now := time.Now()

	var score float64
	for _, f := range features {
		pref, err := l.repo.Get(ctx, f.Type, f.Value)
		if err != nil {
			return 0, fmt.Errorf("preference: get %s/%s: %w", f.Type, f.Value, err)
		}
		if pref == nil {
			continue
		}
		score += decayedWeight(pref.Score, pref.UpdatedAt, now, l.config.DecayHalfLife)
	}
	return score, nil
}

func decayedWeight(weight float64, updatedAt, now time.Time, halfLife time.Duration) float64 {
	age := now.Sub(updatedAt)
	if age <= 0 {
		return weight
	}
	ageDays := age.Hours() / 24
	halfLifeDays := halfLife.Hours() / 24
	return weight * math.Pow(2, -ageDays/halfLifeDays)
}

// Summary reports the learner's current activation state for the
// dashboard/API.
func (l *Learner) Summary(ctx context.Context) (*entity.PreferenceSummary, error) {
	total, err := l.repo.CountActions(ctx)
	if err != nil {
		return nil, fmt.Errorf("preference: count actions: %w", err)
	}

	summary := &entity.PreferenceSummary{
		TotalActions:       total,
		MinActionsRequired: l.config.MinActionsRequired,
		IsActive:           total >= l.config.MinActionsRequired,
		PreferencesByType:  make(map[entity.FeatureType]int),
	}

	prefs, err := l.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("preference: list: %w", err)
	}
	for _, p := range prefs {
		summary.PreferencesByType[p.Type]++
		if p.Score > 0 {
			summary.PositivePreferences++
		} else if p.Score < 0 {
			summary.NegativePreferences++
		}
	}
	return summary, nil
}
