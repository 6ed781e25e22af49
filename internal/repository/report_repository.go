package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/storefront/internal/domain"
)

// PostgresReportRepository implements domain.ReportRepository with SQL
// aggregation over the order snapshot tables.
type PostgresReportRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresReportRepository creates a new report repository
func NewPostgresReportRepository(db *sql.DB, logger *slog.Logger) *PostgresReportRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReportRepository{db: db, logger: logger}
}

// SalesSummary aggregates non-cancelled orders placed in [start, end]
func (r *PostgresReportRepository) SalesSummary(ctx context.Context, start, end time.Time) (*domain.SalesSummary, error) {
	query := `
		SELECT COALESCE(SUM(total), 0), COUNT(*)
		FROM orders
		WHERE placed_at >= $1 AND placed_at <= $2 AND status <> $3
	`

	summary := &domain.SalesSummary{StartDate: start, EndDate: end}
	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx, query, start, end, domain.StatusCancelled,
	).Scan(&summary.TotalRevenue, &summary.TotalOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to build sales summary: %w", err)
	}

	if summary.TotalOrders > 0 {
		summary.AverageOrderValue = summary.TotalRevenue.
			Div(decimal.NewFromInt(summary.TotalOrders)).
			Round(2)
	}
	return summary, nil
}

// TopItems returns the best-selling items by quantity in [start, end]
func (r *PostgresReportRepository) TopItems(ctx context.Context, start, end time.Time, limit int) ([]*domain.TopItem, error) {
	query := `
		SELECT ol.item_id, i.name, SUM(ol.quantity), SUM(ol.quantity * ol.unit_price)
		FROM order_lines ol
		JOIN items i ON i.id = ol.item_id
		JOIN orders o ON o.id = ol.order_id
		WHERE o.placed_at >= $1 AND o.placed_at <= $2 AND o.status <> $3
		GROUP BY ol.item_id, i.name
		ORDER BY SUM(ol.quantity) DESC
		LIMIT $4
	`

	rows, err := executorFrom(ctx, r.db).QueryContext(ctx, query, start, end, domain.StatusCancelled, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top items: %w", err)
	}
	defer rows.Close()

	var items []*domain.TopItem
	for rows.Next() {
		item := &domain.TopItem{}
		if err := rows.Scan(&item.ItemID, &item.ItemName, &item.TotalQuantity, &item.TotalRevenue); err != nil {
			return nil, fmt.Errorf("failed to scan top item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Revenue splits order value between completed and cancelled in [start, end]
func (r *PostgresReportRepository) Revenue(ctx context.Context, start, end time.Time) (*domain.RevenueReport, error) {
	query := `
		SELECT
			COALESCE(SUM(total), 0),
			COALESCE(SUM(total) FILTER (WHERE status = $3), 0)
		FROM orders
		WHERE placed_at >= $1 AND placed_at <= $2
	`

	report := &domain.RevenueReport{StartDate: start, EndDate: end}
	err := executorFrom(ctx, r.db).QueryRowContext(
		ctx, query, start, end, domain.StatusCancelled,
	).Scan(&report.TotalRevenue, &report.CancelledRevenue)
	if err != nil {
		return nil, fmt.Errorf("failed to build revenue report: %w", err)
	}

	report.NetRevenue = report.TotalRevenue.Sub(report.CancelledRevenue)
	return report, nil
}
