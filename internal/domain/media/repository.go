package media

import (
	"context"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AssetFilter selects catalog records for listing
type AssetFilter struct {
	PoolOnly bool
	Source   Source
	Tier     Tier
	Page     int
	PageSize int
	SortBy   string // column name; unknown columns fall back to created_at
	SortAsc  bool
}

// Normalize applies paging defaults and caps the page size
func (f AssetFilter) Normalize() AssetFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// Offset returns the number of rows to skip for the filter's page
func (f AssetFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// AssetReader loads individual catalog records
type AssetReader interface {
	// FindByID returns shared.ErrNotFound when no record has the ID
	FindByID(ctx context.Context, id uuid.UUID) (*Asset, error)

	// FindByKey finds the record owning key in any of its derivative slots
	FindByKey(ctx context.Context, tier Tier, key string) (*Asset, error)
}

// AssetFinder lists and counts catalog records
type AssetFinder interface {
	List(ctx context.Context, filter AssetFilter) ([]Asset, int64, error)

	// ExistsByKey reports whether any record references key in any slot
	ExistsByKey(ctx context.Context, tier Tier, key string) (bool, error)
}

// AssetWriter persists catalog records
type AssetWriter interface {
	Save(ctx context.Context, asset *Asset) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AssetRepository combines all catalog record capabilities
type AssetRepository interface {
	AssetReader
	AssetFinder
	AssetWriter
}
