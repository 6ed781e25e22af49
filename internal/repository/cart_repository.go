package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
)

// PostgresCartRepository implements domain.CartRepository. Only open lines
// (order_id IS NULL) are ever returned or mutated; closed lines belong to
// their order's history.
type PostgresCartRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCartRepository creates a new cart repository
func NewPostgresCartRepository(db *sql.DB, logger *slog.Logger) *PostgresCartRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCartRepository{db: db, logger: logger}
}

const cartColumns = `cl.id, cl.user_id, cl.item_id, cl.quantity, cl.order_id, i.name, i.price`

func scanCartLine(row interface{ Scan(dest ...any) error }) (*domain.CartLine, error) {
	line := &domain.CartLine{}
	err := row.Scan(
		&line.ID,
		&line.UserID,
		&line.ItemID,
		&line.Quantity,
		&line.OrderID,
		&line.ItemName,
		&line.UnitPrice,
	)
	if err != nil {
		return nil, err
	}
	return line, nil
}

// Add inserts a new open cart line
func (r *PostgresCartRepository) Add(ctx context.Context, line *domain.CartLine) error {
	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx,
		`INSERT INTO cart_lines (user_id, item_id, quantity) VALUES ($1, $2, $3) RETURNING id`,
		line.UserID, line.ItemID, line.Quantity,
	).Scan(&line.ID)
	if err != nil {
		r.logger.Error("failed to add cart line",
			slog.Int64("user_id", line.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to add cart line: %w", err)
	}
	return nil
}

// OpenLine fetches one open line owned by the user
func (r *PostgresCartRepository) OpenLine(ctx context.Context, userID, lineID int64) (*domain.CartLine, error) {
	query := `
		SELECT ` + cartColumns + `
		FROM cart_lines cl
		JOIN items i ON i.id = cl.item_id
		WHERE cl.id = $1 AND cl.user_id = $2 AND cl.order_id IS NULL
	`

	line, err := scanCartLine(executorFrom(ctx, r.db).QueryRowContext(ctx, query, lineID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cart line %d: %w", lineID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cart line: %w", err)
	}
	return line, nil
}

// OpenLineByItem fetches the user's open line for an item, if any
func (r *PostgresCartRepository) OpenLineByItem(ctx context.Context, userID, itemID int64) (*domain.CartLine, error) {
	query := `
		SELECT ` + cartColumns + `
		FROM cart_lines cl
		JOIN items i ON i.id = cl.item_id
		WHERE cl.user_id = $1 AND cl.item_id = $2 AND cl.order_id IS NULL
	`

	line, err := scanCartLine(executorFrom(ctx, r.db).QueryRowContext(ctx, query, userID, itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cart line for item %d: %w", itemID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cart line: %w", err)
	}
	return line, nil
}

// ListOpen returns the user's open cart lines with item data joined
func (r *PostgresCartRepository) ListOpen(ctx context.Context, userID int64) ([]*domain.CartLine, error) {
	query := `
		SELECT ` + cartColumns + `
		FROM cart_lines cl
		JOIN items i ON i.id = cl.item_id
		WHERE cl.user_id = $1 AND cl.order_id IS NULL
		ORDER BY cl.id
	`

	rows, err := executorFrom(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}
	defer rows.Close()

	var lines []*domain.CartLine
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// UpdateQuantity changes the quantity of an open line
func (r *PostgresCartRepository) UpdateQuantity(ctx context.Context, lineID, quantity int64) error {
	result, err := executorFrom(ctx, r.db).ExecContext(
		ctx, `UPDATE cart_lines SET quantity = $2 WHERE id = $1 AND order_id IS NULL`, lineID, quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to update cart line: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("cart line %d: %w", lineID, domain.ErrNotFound)
	}
	return nil
}

// Remove deletes an open line
func (r *PostgresCartRepository) Remove(ctx context.Context, lineID int64) error {
	result, err := executorFrom(ctx, r.db).ExecContext(
		ctx, `DELETE FROM cart_lines WHERE id = $1 AND order_id IS NULL`, lineID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("cart line %d: %w", lineID, domain.ErrNotFound)
	}
	return nil
}

// AttachToOrder closes an open line by assigning it an order id
func (r *PostgresCartRepository) AttachToOrder(ctx context.Context, lineID, orderID int64) error {
	result, err := executorFrom(ctx, r.db).ExecContext(
		ctx, `UPDATE cart_lines SET order_id = $2 WHERE id = $1 AND order_id IS NULL`, lineID, orderID,
	)
	if err != nil {
		return fmt.Errorf("failed to attach cart line: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("cart line %d already closed: %w", lineID, domain.ErrConflict)
	}
	return nil
}
