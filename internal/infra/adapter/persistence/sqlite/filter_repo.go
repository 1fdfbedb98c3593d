package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/repository"
)

type FilterRepo struct{ db dbConn }

func NewFilterRepo(db dbConn) repository.FilterRepository {
	return &FilterRepo{db: db}
}

const filterColumns = `id, name, enabled, priority, condition_json, actions_json,
	tags_json, score_modifier, alert_severity`

func scanFilter(scan func(dest ...any) error) (*entity.Filter, error) {
	var f entity.Filter
	var conditionJSON, actionsJSON, tagsJSON string
	var enabled bool

	if err := scan(&f.ID, &f.Name, &enabled, &f.Priority, &conditionJSON,
		&actionsJSON, &tagsJSON, &f.ScoreModifier, &f.AlertSeverity); err != nil {
		return nil, err
	}
	f.Enabled = enabled

	if err := json.Unmarshal([]byte(conditionJSON), &f.Condition); err != nil {
		return nil, fmt.Errorf("scanFilter: unmarshal condition: %w", err)
	}
	if actionsJSON != "" {
		if err := json.Unmarshal([]byte(actionsJSON), &f.Actions); err != nil {
			return nil, fmt.Errorf("scanFilter: unmarshal actions: %w", err)
		}
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &f.Tags); err != nil {
			return nil, fmt.Errorf("scanFilter: unmarshal tags: %w", err)
		}
	}
	return &f, nil
}

func (repo *FilterRepo) List(ctx context.Context) ([]*entity.Filter, error) {
	query := `SELECT ` + filterColumns + ` FROM filters ORDER BY priority ASC, id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	filters := make([]*entity.Filter, 0, 16)
	for rows.Next() {
		f, err := scanFilter(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

func (repo *FilterRepo) Get(ctx context.Context, id string) (*entity.Filter, error) {
	query := `SELECT ` + filterColumns + ` FROM filters WHERE id = ? LIMIT 1`
	row := repo.db.QueryRowContext(ctx, query, id)
	f, err := scanFilter(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return f, nil
}

func (repo *FilterRepo) Create(ctx context.Context, f *entity.Filter) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	conditionJSON, err := json.Marshal(f.Condition)
	if err != nil {
		return fmt.Errorf("Create: marshal condition: %w", err)
	}
	actionsJSON, err := json.Marshal(f.Actions)
	if err != nil {
		return fmt.Errorf("Create: marshal actions: %w", err)
	}
	tagsJSON, err := json.Marshal(f.Tags)
	if err != nil {
		return fmt.Errorf("Create: marshal tags: %w", err)
	}
	const query = `
INSERT INTO filters (id, name, enabled, priority, condition_json, actions_json,
	tags_json, score_modifier, alert_severity)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = repo.db.ExecContext(ctx, query,
		f.ID, f.Name, f.Enabled, f.Priority, string(conditionJSON), string(actionsJSON),
		string(tagsJSON), f.ScoreModifier, f.AlertSeverity)
	if err != nil {
		return fmt.Errorf("Create: ExecContext: %w", err)
	}
	return nil
}

func (repo *FilterRepo) Update(ctx context.Context, f *entity.Filter) error {
	conditionJSON, err := json.Marshal(f.Condition)
	if err != nil {
		return fmt.Errorf("Update: marshal condition: %w", err)
	}
	actionsJSON, err := json.Marshal(f.Actions)
	if err != nil {
		return fmt.Errorf("Update: marshal actions: %w", err)
	}
	tagsJSON, err := json.Marshal(f.Tags)
	if err != nil {
		return fmt.Errorf("Update: marshal tags: %w", err)
	}
	const query = `
UPDATE filters SET
	name = ?, enabled = ?, priority = ?, condition_json = ?, actions_json = ?,
	tags_json = ?, score_modifier = ?, alert_severity = ?
WHERE id = ?`
	res, err := repo.db.ExecContext(ctx, query,
		f.Name, f.Enabled, f.Priority, string(conditionJSON), string(actionsJSON),
		string(tagsJSON), f.ScoreModifier, f.AlertSeverity, f.ID)
	if err != nil {
		return fmt.Errorf("Update: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Update: no rows affected")
	}
	return nil
}

func (repo *FilterRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM filters WHERE id = ?`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Delete: no rows affected")
	}
	return nil
}
