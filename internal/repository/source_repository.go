package repository

import (
	"context"
	"time"

	"sentinelpi/internal/domain/entity"
)

// SourceRepository persists and retrieves monitored sources.
type SourceRepository interface {
	Get(ctx context.Context, id string) (*entity.Source, error)
	List(ctx context.Context) ([]*entity.Source, error)
	ListDue(ctx context.Context, now time.Time) ([]*entity.Source, error)
	Search(ctx context.Context, keyword string) ([]*entity.Source, error)
	Create(ctx context.Context, source *entity.Source) error
	Update(ctx context.Context, source *entity.Source) error
	Delete(ctx context.Context, id string) error
	TouchChecked(ctx context.Context, id string, checkedAt time.Time, success bool) error
}
