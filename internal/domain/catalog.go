package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Category groups catalog items. Items reference it by id only.
type Category struct {
	ID   int64
	Name string // Unique category name
}

// Item is a catalog product. Stock is mutated exclusively through
// ReserveStock/ReleaseStock so it can never go negative.
type Item struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int64
	Active      bool
	CategoryID  int64
	// CategoryName is joined on reads for presentation; it is not a
	// back-pointer and is ignored on writes.
	CategoryName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ItemFilter narrows and orders catalog listings.
type ItemFilter struct {
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	InStock    bool
	SortBy     string // "name", "price" or "date"
	SortOrder  string // "asc" or "desc"
}

// ItemRepository defines data access for catalog items
type ItemRepository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id int64) (*Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ItemFilter) ([]*Item, error)

	// ReserveStock atomically decrements stock by quantity, failing with
	// ErrInsufficientStock when fewer than quantity units remain.
	ReserveStock(ctx context.Context, itemID, quantity int64) error
	// ReleaseStock atomically increments stock by quantity.
	ReleaseStock(ctx context.Context, itemID, quantity int64) error
}

// CategoryRepository defines data access for categories
type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	GetByID(ctx context.Context, id int64) (*Category, error)
	GetByName(ctx context.Context, name string) (*Category, error)
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*Category, error)
	// CountItems reports how many items still reference the category.
	CountItems(ctx context.Context, categoryID int64) (int64, error)
}
