package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
)

// PostgresItemRepository implements domain.ItemRepository using PostgreSQL.
// It is the only code that touches the stock column.
type PostgresItemRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresItemRepository creates a new item repository
func NewPostgresItemRepository(db *sql.DB, logger *slog.Logger) *PostgresItemRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresItemRepository{db: db, logger: logger}
}

const itemColumns = `i.id, i.name, i.description, i.price, i.stock, i.active, i.category_id, c.name, i.created_at, i.updated_at`

func scanItem(row interface{ Scan(dest ...any) error }) (*domain.Item, error) {
	item := &domain.Item{}
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Price,
		&item.Stock,
		&item.Active,
		&item.CategoryID,
		&item.CategoryName,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Create inserts a new catalog item
func (r *PostgresItemRepository) Create(ctx context.Context, item *domain.Item) error {
	query := `
		INSERT INTO items (name, description, price, stock, active, category_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx, query,
		item.Name,
		item.Description,
		item.Price,
		item.Stock,
		item.Active,
		item.CategoryID,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create item",
			slog.String("name", item.Name),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// GetByID retrieves an item with its category name joined
func (r *PostgresItemRepository) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items i
		JOIN categories c ON c.id = i.category_id
		WHERE i.id = $1
	`

	item, err := scanItem(executorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// Update saves item fields. Stock is not written here; it only moves
// through ReserveStock and ReleaseStock.
func (r *PostgresItemRepository) Update(ctx context.Context, item *domain.Item) error {
	query := `
		UPDATE items
		SET name = $1, description = $2, price = $3, active = $4,
		    category_id = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`

	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx, query,
		item.Name,
		item.Description,
		item.Price,
		item.Active,
		item.CategoryID,
		item.ID,
	).Scan(&item.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("item %d: %w", item.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

// Delete deactivates an item. Rows stay behind order lines that reference
// them, so removal is a soft delete.
func (r *PostgresItemRepository) Delete(ctx context.Context, id int64) error {
	result, err := executorFrom(ctx, r.db).ExecContext(
		ctx, `UPDATE items SET active = false, updated_at = now() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns active items matching the filter
func (r *PostgresItemRepository) List(ctx context.Context, filter domain.ItemFilter) ([]*domain.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items i
		JOIN categories c ON c.id = i.category_id
		WHERE i.active = true
	`
	args := []any{}

	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		query += fmt.Sprintf(" AND i.category_id = $%d", len(args))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		query += fmt.Sprintf(" AND i.price >= $%d", len(args))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		query += fmt.Sprintf(" AND i.price <= $%d", len(args))
	}
	if filter.InStock {
		query += " AND i.stock > 0"
	}

	order := "i.name"
	switch filter.SortBy {
	case "price":
		order = "i.price"
	case "date":
		order = "i.created_at"
	}
	if filter.SortOrder == "desc" {
		order += " DESC"
	}
	query += " ORDER BY " + order

	rows, err := executorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list items", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReserveStock decrements stock by quantity only when enough remains. The
// conditional UPDATE takes a row lock, so concurrent checkouts against the
// same item serialize and at most one passes a check only one can satisfy.
func (r *PostgresItemRepository) ReserveStock(ctx context.Context, itemID, quantity int64) error {
	result, err := executorFrom(ctx, r.db).ExecContext(
		ctx,
		`UPDATE items SET stock = stock - $2, updated_at = now() WHERE id = $1 AND stock >= $2`,
		itemID, quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a missing item from a shortfall.
		var exists bool
		err := executorFrom(ctx, r.db).QueryRowContext(
			ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, itemID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check item existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
		}
		return fmt.Errorf("item %d: %w", itemID, domain.ErrInsufficientStock)
	}
	return nil
}

// ReleaseStock increments stock by quantity
func (r *PostgresItemRepository) ReleaseStock(ctx context.Context, itemID, quantity int64) error {
	result, err := executorFrom(ctx, r.db).ExecContext(
		ctx,
		`UPDATE items SET stock = stock + $2, updated_at = now() WHERE id = $1`,
		itemID, quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	return nil
}
