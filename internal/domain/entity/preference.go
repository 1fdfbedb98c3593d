package entity

import "time"

// ActionType is the kind of user interaction recorded against an item.
type ActionType string

const (
	ActionStar    ActionType = "star"
	ActionArchive ActionType = "archive"
	ActionRead    ActionType = "read"
	ActionDelete  ActionType = "delete"
	ActionIgnore  ActionType = "ignore"
)

// ActionSignals maps each action to the base preference weight it
// contributes to a scored item's preference adjustment.
var ActionSignals = map[ActionType]float64{
	ActionStar:    1.0,
	ActionArchive: 0.5,
	ActionRead:    0.3,
	ActionDelete:  -0.8,
	ActionIgnore:  -0.2,
}

// UserAction is a single recorded interaction, the input to the
// preference learner.
type UserAction struct {
	ID        string
	ItemID    string
	Action    ActionType
	Timestamp time.Time
}

// FeatureType discriminates what a UserPreference's Value names.
type FeatureType string

const (
	FeatureKeyword FeatureType = "keyword"
	FeatureSource  FeatureType = "source"
	FeatureAuthor  FeatureType = "author"
	FeatureCategory FeatureType = "category"
)

// UserPreference is a learned weight for a single (type, value) feature,
// e.g. (keyword, "kubernetes") -> 4.2.
type UserPreference struct {
	Type      FeatureType
	Value     string
	Score     float64
	UpdatedAt time.Time
}

// PreferenceSummary reports the learner's current activation state.
type PreferenceSummary struct {
	TotalActions        int
	MinActionsRequired   int
	IsActive             bool
	PositivePreferences  int
	NegativePreferences  int
	PreferencesByType    map[FeatureType]int
}
