package repository

import (
	"context"

	"sentinelpi/internal/domain/entity"
)

// AlertRepository persists alerts raised by the filter engine, ahead of
// and independent from the dispatcher's in-memory aggregation window —
// so a raised alert survives a restart even if it was never dispatched.
type AlertRepository interface {
	Create(ctx context.Context, a *entity.Alert) error
	MarkDispatched(ctx context.Context, id string) error
	ListUndispatched(ctx context.Context) ([]*entity.Alert, error)
}
