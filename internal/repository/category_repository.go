package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
)

// PostgresCategoryRepository implements domain.CategoryRepository
type PostgresCategoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCategoryRepository creates a new category repository
func NewPostgresCategoryRepository(db *sql.DB, logger *slog.Logger) *PostgresCategoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCategoryRepository{db: db, logger: logger}
}

// Create inserts a category
func (r *PostgresCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, category.Name,
	).Scan(&category.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category %q already exists: %w", category.Name, domain.ErrConflict)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// GetByID retrieves a category by id
func (r *PostgresCategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	category := &domain.Category{}
	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx, `SELECT id, name FROM categories WHERE id = $1`, id,
	).Scan(&category.ID, &category.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// GetByName retrieves a category by its unique name
func (r *PostgresCategoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	category := &domain.Category{}
	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx, `SELECT id, name FROM categories WHERE name = $1`, name,
	).Scan(&category.ID, &category.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %q: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}
	return category, nil
}

// Update renames a category
func (r *PostgresCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	result, err := executorFrom(ctx, r.db).ExecContext(
		ctx, `UPDATE categories SET name = $1 WHERE id = $2`, category.Name, category.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category %q already exists: %w", category.Name, domain.ErrConflict)
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("category %d: %w", category.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a category. Callers must verify it has no items first.
func (r *PostgresCategoryRepository) Delete(ctx context.Context, id int64) error {
	result, err := executorFrom(ctx, r.db).ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns all categories ordered by name
func (r *PostgresCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	rows, err := executorFrom(ctx, r.db).QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		category := &domain.Category{}
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// CountItems reports how many items still reference the category
func (r *PostgresCategoryRepository) CountItems(ctx context.Context, categoryID int64) (int64, error) {
	var count int64
	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx, `SELECT COUNT(*) FROM items WHERE category_id = $1`, categoryID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}
