package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/repository"
)

type AlertRepo struct{ db dbConn }

func NewAlertRepo(db dbConn) repository.AlertRepository {
	return &AlertRepo{db: db}
}

func (repo *AlertRepo) Create(ctx context.Context, a *entity.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	const query = `
INSERT INTO alerts (id, filter_id, item_id, severity, message, raised_at, dispatched)
VALUES (?, ?, ?, ?, ?, ?, 0)`
	_, err := repo.db.ExecContext(ctx, query, a.ID, a.FilterID, a.ItemID, a.Severity.String(), a.Message, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("Create: ExecContext: %w", err)
	}
	return nil
}

func (repo *AlertRepo) MarkDispatched(ctx context.Context, id string) error {
	const query = `UPDATE alerts SET dispatched = 1 WHERE id = ?`
	_, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("MarkDispatched: ExecContext: %w", err)
	}
	return nil
}

func (repo *AlertRepo) ListUndispatched(ctx context.Context) ([]*entity.Alert, error) {
	const query = `SELECT id, filter_id, item_id, severity, message, raised_at FROM alerts
		WHERE dispatched = 0 ORDER BY raised_at ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListUndispatched: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	alerts := make([]*entity.Alert, 0, 16)
	for rows.Next() {
		var a entity.Alert
		var severity string
		if err := rows.Scan(&a.ID, &a.FilterID, &a.ItemID, &severity, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListUndispatched: Scan: %w", err)
		}
		a.Severity = entity.ParseSeverity(severity)
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}
