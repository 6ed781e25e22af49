package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
)

// PostgresShippingMethodRepository implements domain.ShippingMethodRepository
type PostgresShippingMethodRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresShippingMethodRepository creates a new shipping method repository
func NewPostgresShippingMethodRepository(db *sql.DB, logger *slog.Logger) *PostgresShippingMethodRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresShippingMethodRepository{db: db, logger: logger}
}

// Create inserts a shipping method
func (r *PostgresShippingMethodRepository) Create(ctx context.Context, method *domain.ShippingMethod) error {
	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx,
		`INSERT INTO shipping_methods (name, description, price) VALUES ($1, $2, $3) RETURNING id`,
		method.Name, method.Description, method.Price,
	).Scan(&method.ID)
	if err != nil {
		return fmt.Errorf("failed to create shipping method: %w", err)
	}
	return nil
}

// GetByID retrieves a shipping method
func (r *PostgresShippingMethodRepository) GetByID(ctx context.Context, id int64) (*domain.ShippingMethod, error) {
	method := &domain.ShippingMethod{}
	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx, `SELECT id, name, description, price FROM shipping_methods WHERE id = $1`, id,
	).Scan(&method.ID, &method.Name, &method.Description, &method.Price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("shipping method %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get shipping method: %w", err)
	}
	return method, nil
}

// Update saves name, description and price
func (r *PostgresShippingMethodRepository) Update(ctx context.Context, method *domain.ShippingMethod) error {
	result, err := executorFrom(ctx, r.db).ExecContext(
		ctx,
		`UPDATE shipping_methods SET name = $1, description = $2, price = $3 WHERE id = $4`,
		method.Name, method.Description, method.Price, method.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update shipping method: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("shipping method %d: %w", method.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a shipping method. Callers must verify no orders use it.
func (r *PostgresShippingMethodRepository) Delete(ctx context.Context, id int64) error {
	result, err := executorFrom(ctx, r.db).ExecContext(
		ctx, `DELETE FROM shipping_methods WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete shipping method: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("shipping method %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns all shipping methods ordered by price
func (r *PostgresShippingMethodRepository) List(ctx context.Context) ([]*domain.ShippingMethod, error) {
	rows, err := executorFrom(ctx, r.db).QueryContext(
		ctx, `SELECT id, name, description, price FROM shipping_methods ORDER BY price`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipping methods: %w", err)
	}
	defer rows.Close()

	var methods []*domain.ShippingMethod
	for rows.Next() {
		method := &domain.ShippingMethod{}
		if err := rows.Scan(&method.ID, &method.Name, &method.Description, &method.Price); err != nil {
			return nil, fmt.Errorf("failed to scan shipping method: %w", err)
		}
		methods = append(methods, method)
	}
	return methods, rows.Err()
}

// CountOrders reports how many orders reference the method
func (r *PostgresShippingMethodRepository) CountOrders(ctx context.Context, methodID int64) (int64, error) {
	var count int64
	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx, `SELECT COUNT(*) FROM orders WHERE shipping_method_id = $1`, methodID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}
