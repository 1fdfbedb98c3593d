package repository

import (
	"context"
	"time"

	"sentinelpi/internal/domain/entity"
)

// ItemWithSource represents a collected item along with its source name.
type ItemWithSource struct {
	Item       *entity.Item
	SourceName string
}

// ItemSearchFilters contains optional filters for item search.
type ItemSearchFilters struct {
	SourceID   *string    // Optional: filter by source ID
	From       *time.Time // Optional: items published >= this date
	To         *time.Time // Optional: items published <= this date
	MinScore   *float64   // Optional: items scored >= this value
	Starred    *bool      // Optional: only starred / only non-starred
	Archived   *bool      // Optional: only archived / only active
	ExcludeDup bool        // Optional: exclude items marked as duplicates
}

// ItemRepository persists and retrieves collected items.
type ItemRepository interface {
	List(ctx context.Context) ([]*entity.Item, error)
	ListWithSource(ctx context.Context) ([]ItemWithSource, error)
	ListWithSourcePaginated(ctx context.Context, offset, limit int) ([]ItemWithSource, error)
	CountItems(ctx context.Context) (int64, error)

	Get(ctx context.Context, id string) (*entity.Item, error)
	GetWithSource(ctx context.Context, id string) (*entity.Item, string, error)
	GetByContentHash(ctx context.Context, hash string) (*entity.Item, error)
	GetBySourceAndGUID(ctx context.Context, sourceID, guid string) (*entity.Item, error)

	Search(ctx context.Context, keyword string) ([]*entity.Item, error)
	SearchWithFilters(ctx context.Context, keywords []string, filters ItemSearchFilters) ([]*entity.Item, error)

	Create(ctx context.Context, item *entity.Item) error
	Update(ctx context.Context, item *entity.Item) error
	Delete(ctx context.Context, id string) error

	ExistsByContentHash(ctx context.Context, hash string) (bool, error)
	ExistsByContentHashBatch(ctx context.Context, hashes []string) (map[string]bool, error)
}
