package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/repository"
)

type PreferenceRepo struct{ db dbConn }

func NewPreferenceRepo(db dbConn) repository.PreferenceRepository {
	return &PreferenceRepo{db: db}
}

func (repo *PreferenceRepo) Get(ctx context.Context, featureType entity.FeatureType, value string) (*entity.UserPreference, error) {
	query := `SELECT feature_type, feature_key, weight, updated_at FROM user_preferences
		WHERE feature_type = ? AND feature_key = ?`
	var pref entity.UserPreference
	var featureTypeStr string
	err := repo.db.QueryRowContext(ctx, query, string(featureType), value).
		Scan(&featureTypeStr, &pref.Value, &pref.Score, &pref.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	pref.Type = entity.FeatureType(featureTypeStr)
	return &pref, nil
}

func (repo *PreferenceRepo) List(ctx context.Context) ([]*entity.UserPreference, error) {
	query := `SELECT feature_type, feature_key, weight, updated_at FROM user_preferences ORDER BY weight DESC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var prefs []*entity.UserPreference
	for rows.Next() {
		var pref entity.UserPreference
		var featureTypeStr string
		if err := rows.Scan(&featureTypeStr, &pref.Value, &pref.Score, &pref.UpdatedAt); err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		pref.Type = entity.FeatureType(featureTypeStr)
		prefs = append(prefs, &pref)
	}
	return prefs, rows.Err()
}

func (repo *PreferenceRepo) Upsert(ctx context.Context, pref *entity.UserPreference) error {
	query := `INSERT INTO user_preferences (feature_type, feature_key, weight, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (feature_type, feature_key) DO UPDATE SET weight = excluded.weight, updated_at = excluded.updated_at`
	_, err := repo.db.ExecContext(ctx, query, string(pref.Type), pref.Value, pref.Score, pref.UpdatedAt)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (repo *PreferenceRepo) RecordAction(ctx context.Context, action *entity.UserAction) error {
	query := `INSERT INTO user_actions (item_id, action, occurred_at) VALUES (?, ?, ?)`
	_, err := repo.db.ExecContext(ctx, query, action.ItemID, string(action.Action), action.Timestamp)
	if err != nil {
		return fmt.Errorf("RecordAction: %w", err)
	}
	return nil
}

func (repo *PreferenceRepo) CountActions(ctx context.Context) (int, error) {
	var count int
	err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_actions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountActions: %w", err)
	}
	return count, nil
}
