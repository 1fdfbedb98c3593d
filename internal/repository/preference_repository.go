package repository

import (
	"context"

	"sentinelpi/internal/domain/entity"
)

// PreferenceRepository persists learned preference weights and the
// running count of recorded user actions that gates learning activation.
type PreferenceRepository interface {
	Get(ctx context.Context, featureType entity.FeatureType, value string) (*entity.UserPreference, error)
	List(ctx context.Context) ([]*entity.UserPreference, error)
	Upsert(ctx context.Context, pref *entity.UserPreference) error

	RecordAction(ctx context.Context, action *entity.UserAction) error
	CountActions(ctx context.Context) (int, error)
}
