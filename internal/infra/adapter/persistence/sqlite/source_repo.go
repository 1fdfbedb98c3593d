package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/pkg/search"
	"sentinelpi/internal/repository"
)

type SourceRepo struct{ db dbConn }

func NewSourceRepo(db dbConn) repository.SourceRepository {
	return &SourceRepo{db: db}
}

func scanSource(scan func(dest ...any) error) (*entity.Source, error) {
	var s entity.Source
	var configJSON string
	var lastCheckAt, lastSuccessAt sql.NullTime
	var enabled bool

	if err := scan(&s.ID, &s.Name, &s.URL, &s.Type, &s.Category, &s.Priority,
		&s.IntervalMinutes, &enabled, &configJSON, &lastCheckAt, &lastSuccessAt,
		&s.ConsecutiveErrors, &s.CreatedAt); err != nil {
		return nil, err
	}

	s.Enabled = enabled
	if lastCheckAt.Valid {
		s.LastCheckAt = &lastCheckAt.Time
	}
	if lastSuccessAt.Valid {
		s.LastSuccessAt = &lastSuccessAt.Time
	}
	if configJSON != "" {
		if err := json.Unmarshal([]byte(configJSON), &s.Config); err != nil {
			return nil, fmt.Errorf("scanSource: unmarshal config: %w", err)
		}
	}
	return &s, nil
}

const sourceColumns = `id, name, url, type, category, priority, interval_minutes, enabled,
	config_json, last_check_at, last_success_at, consecutive_errors, created_at`

func (repo *SourceRepo) Get(ctx context.Context, id string) (*entity.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = ? LIMIT 1`
	row := repo.db.QueryRowContext(ctx, query, id)
	source, err := scanSource(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return source, nil
}

func (repo *SourceRepo) List(ctx context.Context) ([]*entity.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources ORDER BY priority DESC, name ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, 32)
	for rows.Next() {
		source, err := scanSource(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows.Err: %w", err)
	}
	return sources, nil
}

// ListDue returns enabled sources whose IsDue(now) evaluates true. Backoff
// logic lives on entity.Source so this reads every enabled source rather
// than re-deriving the schedule in SQL.
func (repo *SourceRepo) ListDue(ctx context.Context, now time.Time) ([]*entity.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE enabled = 1
		ORDER BY priority ASC, last_check_at IS NOT NULL, last_check_at ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListDue: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	due := make([]*entity.Source, 0, 32)
	for rows.Next() {
		source, err := scanSource(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("ListDue: Scan: %w", err)
		}
		if source.IsDue(now) {
			due = append(due, source)
		}
	}
	return due, rows.Err()
}

func (repo *SourceRepo) Search(ctx context.Context, keyword string) ([]*entity.Source, error) {
	ctx, cancel := context.WithTimeout(ctx, search.DefaultSearchTimeout)
	defer cancel()

	query := `SELECT ` + sourceColumns + ` FROM sources WHERE name LIKE ? OR url LIKE ? ORDER BY name ASC`
	param := "%" + keyword + "%"
	rows, err := repo.db.QueryContext(ctx, query, param, param)
	if err != nil {
		return nil, fmt.Errorf("Search: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, 16)
	for rows.Next() {
		source, err := scanSource(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("Search: Scan: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (repo *SourceRepo) Create(ctx context.Context, s *entity.Source) error {
	configJSON, err := json.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("Create: marshal config: %w", err)
	}
	const query = `
INSERT INTO sources (id, name, url, type, category, priority, interval_minutes,
	enabled, config_json, last_check_at, last_success_at, consecutive_errors, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = repo.db.ExecContext(ctx, query,
		s.ID, s.Name, s.URL, s.Type, s.Category, s.Priority, s.IntervalMinutes,
		s.Enabled, string(configJSON), s.LastCheckAt, s.LastSuccessAt, s.ConsecutiveErrors, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("Create: ExecContext: %w", err)
	}
	return nil
}

func (repo *SourceRepo) Update(ctx context.Context, s *entity.Source) error {
	configJSON, err := json.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("Update: marshal config: %w", err)
	}
	const query = `
UPDATE sources SET
	name = ?, url = ?, type = ?, category = ?, priority = ?, interval_minutes = ?,
	enabled = ?, config_json = ?, last_check_at = ?, last_success_at = ?, consecutive_errors = ?
WHERE id = ?`
	res, err := repo.db.ExecContext(ctx, query,
		s.Name, s.URL, s.Type, s.Category, s.Priority, s.IntervalMinutes,
		s.Enabled, string(configJSON), s.LastCheckAt, s.LastSuccessAt, s.ConsecutiveErrors, s.ID)
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

func (repo *SourceRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sources WHERE id = ?`
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

func (repo *SourceRepo) TouchChecked(ctx context.Context, id string, checkedAt time.Time, success bool) error {
	if success {
		const query = `UPDATE sources SET last_check_at = ?, last_success_at = ?, consecutive_errors = 0 WHERE id = ?`
		_, err := repo.db.ExecContext(ctx, query, checkedAt, checkedAt, id)
		return err
	}
	const query = `UPDATE sources SET last_check_at = ?, consecutive_errors = consecutive_errors + 1 WHERE id = ?`
	_, err := repo.db.ExecContext(ctx, query, checkedAt, id)
	return err
}
