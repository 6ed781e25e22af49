package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SalesSummary aggregates non-cancelled orders over a period.
type SalesSummary struct {
	StartDate         time.Time
	EndDate           time.Time
	TotalRevenue      decimal.Decimal
	TotalOrders       int64
	AverageOrderValue decimal.Decimal
}

// TopItem is one row of the best-sellers report.
type TopItem struct {
	ItemID        int64
	ItemName      string
	TotalQuantity int64
	TotalRevenue  decimal.Decimal
}

// RevenueReport splits revenue between completed and cancelled orders.
type RevenueReport struct {
	StartDate        time.Time
	EndDate          time.Time
	TotalRevenue     decimal.Decimal
	CancelledRevenue decimal.Decimal
	NetRevenue       decimal.Decimal
}

// ReportRepository runs the aggregation queries behind staff reports.
type ReportRepository interface {
	SalesSummary(ctx context.Context, start, end time.Time) (*SalesSummary, error)
	TopItems(ctx context.Context, start, end time.Time, limit int) ([]*TopItem, error)
	Revenue(ctx context.Context, start, end time.Time) (*RevenueReport, error)
}
