package repository

import (
	"context"

	"sentinelpi/internal/domain/entity"
)

// FilterRepository persists the user-defined rules the filter engine
// evaluates against every collected item.
type FilterRepository interface {
	List(ctx context.Context) ([]*entity.Filter, error)
	Get(ctx context.Context, id string) (*entity.Filter, error)
	Create(ctx context.Context, f *entity.Filter) error
	Update(ctx context.Context, f *entity.Filter) error
	Delete(ctx context.Context, id string) error
}
