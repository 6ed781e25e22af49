package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/pkg/cache"
)

const (
	itemCachePrefix     = "items:"
	categoryCacheKey    = "categories:list"
	catalogCacheTTL     = 30 * time.Second
	maxItemNameLength   = 200
	maxDescriptionChars = 2000
)

// CatalogService manages items and categories. Listings are cached briefly;
// any write invalidates the affected prefix.
type CatalogService struct {
	items      domain.ItemRepository
	categories domain.CategoryRepository
	cache      *cache.Cache
	logger     *slog.Logger
}

// NewCatalogService creates a catalog service
func NewCatalogService(items domain.ItemRepository, categories domain.CategoryRepository, c *cache.Cache, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.New()
	}
	return &CatalogService{items: items, categories: categories, cache: c, logger: logger}
}

// ListItems returns catalog items matching the filter.
func (s *CatalogService) ListItems(ctx context.Context, filter domain.ItemFilter) ([]*domain.Item, error) {
	key := itemListKey(filter)
	if cached, ok := s.cache.Get(key); ok {
		if items, ok := cached.([]*domain.Item); ok {
			return items, nil
		}
	}

	items, err := s.items.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, items, catalogCacheTTL)
	return items, nil
}

// GetItem returns one item by id.
func (s *CatalogService) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	return s.items.GetByID(ctx, id)
}

// CreateItem validates and stores a new item.
func (s *CatalogService) CreateItem(ctx context.Context, item *domain.Item) error {
	if err := s.validateItem(ctx, item); err != nil {
		return err
	}
	item.Active = true
	if err := s.items.Create(ctx, item); err != nil {
		return err
	}
	s.cache.Invalidate(itemCachePrefix)
	s.logger.Info("item created", slog.Int64("item_id", item.ID), slog.String("name", item.Name))
	return nil
}

// UpdateItem validates and stores changed item fields. Stock is not written
// here; only the inventory ledger moves stock.
func (s *CatalogService) UpdateItem(ctx context.Context, item *domain.Item) error {
	if err := s.validateItem(ctx, item); err != nil {
		return err
	}
	if _, err := s.items.GetByID(ctx, item.ID); err != nil {
		return err
	}
	if err := s.items.Update(ctx, item); err != nil {
		return err
	}
	s.cache.Invalidate(itemCachePrefix)
	return nil
}

// DeleteItem deactivates an item. Order lines keep their snapshots, so
// nothing is physically removed.
func (s *CatalogService) DeleteItem(ctx context.Context, id int64) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(itemCachePrefix)
	s.logger.Info("item deactivated", slog.Int64("item_id", id))
	return nil
}

func (s *CatalogService) validateItem(ctx context.Context, item *domain.Item) error {
	if item.Name == "" || len(item.Name) > maxItemNameLength {
		return fmt.Errorf("item name must be 1-%d characters: %w", maxItemNameLength, domain.ErrValidation)
	}
	if len(item.Description) > maxDescriptionChars {
		return fmt.Errorf("description too long: %w", domain.ErrValidation)
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("price must not be negative: %w", domain.ErrValidation)
	}
	if item.Stock < 0 {
		return fmt.Errorf("stock must not be negative: %w", domain.ErrValidation)
	}
	if _, err := s.categories.GetByID(ctx, item.CategoryID); err != nil {
		return fmt.Errorf("category %d does not exist: %w", item.CategoryID, domain.ErrValidation)
	}
	return nil
}

// ListCategories returns all categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	if cached, ok := s.cache.Get(categoryCacheKey); ok {
		if cats, ok := cached.([]*domain.Category); ok {
			return cats, nil
		}
	}
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(categoryCacheKey, cats, catalogCacheTTL)
	return cats, nil
}

// GetCategory returns one category by id.
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return s.categories.GetByID(ctx, id)
}

// CreateCategory stores a new category.
func (s *CatalogService) CreateCategory(ctx context.Context, category *domain.Category) error {
	if category.Name == "" {
		return fmt.Errorf("category name must not be empty: %w", domain.ErrValidation)
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return err
	}
	s.cache.Delete(categoryCacheKey)
	return nil
}

// UpdateCategory renames a category.
func (s *CatalogService) UpdateCategory(ctx context.Context, category *domain.Category) error {
	if category.Name == "" {
		return fmt.Errorf("category name must not be empty: %w", domain.ErrValidation)
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return err
	}
	s.cache.Delete(categoryCacheKey)
	s.cache.Invalidate(itemCachePrefix)
	return nil
}

// DeleteCategory removes a category that no item references.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	count, err := s.categories.CountItems(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("category has %d items: %w", count, domain.ErrConflict)
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(categoryCacheKey)
	return nil
}

func itemListKey(f domain.ItemFilter) string {
	key := itemCachePrefix + "list"
	if f.CategoryID != nil {
		key += fmt.Sprintf(":cat=%d", *f.CategoryID)
	}
	if f.MinPrice != nil {
		key += ":min=" + f.MinPrice.String()
	}
	if f.MaxPrice != nil {
		key += ":max=" + f.MaxPrice.String()
	}
	if f.InStock {
		key += ":instock"
	}
	if f.SortBy != "" {
		key += ":sort=" + f.SortBy + "," + f.SortOrder
	}
	return key
}
