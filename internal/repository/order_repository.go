package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
)

// PostgresOrderRepository implements domain.OrderRepository
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresOrderRepository creates a new order repository
func NewPostgresOrderRepository(db *sql.DB, logger *slog.Logger) *PostgresOrderRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresOrderRepository{db: db, logger: logger}
}

// Create inserts an order snapshot
func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (user_id, status, shipping_method_id, total)
		VALUES ($1, $2, $3, $4)
		RETURNING id, placed_at
	`

	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx, query,
		order.UserID,
		order.Status,
		order.ShippingMethodID,
		order.Total,
	).Scan(&order.ID, &order.PlacedAt)

	if err != nil {
		r.logger.Error("failed to create order",
			slog.Int64("user_id", order.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// AddLine inserts one immutable snapshot line
func (r *PostgresOrderRepository) AddLine(ctx context.Context, line *domain.OrderLine) error {
	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx,
		`INSERT INTO order_lines (order_id, item_id, quantity, unit_price) VALUES ($1, $2, $3, $4) RETURNING id`,
		line.OrderID, line.ItemID, line.Quantity, line.UnitPrice,
	).Scan(&line.ID)
	if err != nil {
		return fmt.Errorf("failed to add order line: %w", err)
	}
	return nil
}

func (r *PostgresOrderRepository) loadLines(ctx context.Context, orderID int64) ([]*domain.OrderLine, error) {
	query := `
		SELECT ol.id, ol.order_id, ol.item_id, i.name, ol.quantity, ol.unit_price
		FROM order_lines ol
		JOIN items i ON i.id = ol.item_id
		WHERE ol.order_id = $1
		ORDER BY ol.id
	`

	rows, err := executorFrom(ctx, r.db).QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}
	defer rows.Close()

	var lines []*domain.OrderLine
	for rows.Next() {
		line := &domain.OrderLine{}
		err := rows.Scan(&line.ID, &line.OrderID, &line.ItemID, &line.ItemName, &line.Quantity, &line.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

const orderColumns = `o.id, o.user_id, o.status, o.shipping_method_id, o.total, o.placed_at, sm.name, sm.price`

func scanOrder(row interface{ Scan(dest ...any) error }) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.ShippingMethodID,
		&order.Total,
		&order.PlacedAt,
		&order.ShippingName,
		&order.ShippingPrice,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetByID retrieves an order with shipping data and lines loaded
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		JOIN shipping_methods sm ON sm.id = o.shipping_method_id
		WHERE o.id = $1
	`

	order, err := scanOrder(executorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	order.Lines, err = r.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// List returns orders newest first, restricted to one user when userID > 0
func (r *PostgresOrderRepository) List(ctx context.Context, userID int64) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		JOIN shipping_methods sm ON sm.id = o.shipping_method_id
	`
	args := []any{}
	if userID > 0 {
		query += ` WHERE o.user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY o.placed_at DESC`

	rows, err := executorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		order.Lines, err = r.loadLines(ctx, order.ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// UpdateStatus writes the new status as a compare-and-set: the row only
// changes while its stored status still matches from. Two writers racing on
// the same transition both read the old status, but only one UPDATE matches;
// the loser sees zero rows and fails with ErrInvalidTransition.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus) error {
	result, err := executorFrom(ctx, r.db).ExecContext(
		ctx, `UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`, id, from, to,
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		var current domain.OrderStatus
		err := executorFrom(ctx, r.db).QueryRowContext(
			ctx, `SELECT status FROM orders WHERE id = $1`, id,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read order status: %w", err)
		}
		return fmt.Errorf("%s -> %s: %w", current, to, domain.ErrInvalidTransition)
	}
	return nil
}

// CountActiveByUser reports how many non-terminal orders the user owns
func (r *PostgresOrderRepository) CountActiveByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1 AND status NOT IN ($2, $3)`,
		userID, domain.StatusDelivered, domain.StatusCancelled,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active orders: %w", err)
	}
	return count, nil
}
