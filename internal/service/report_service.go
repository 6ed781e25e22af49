package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/storefront/internal/domain"
)

const (
	defaultReportWindow = 30 * 24 * time.Hour
	defaultTopItems     = 10
	maxTopItems         = 100
)

// ReportService runs the staff sales reports. Periods default to the last
// 30 days when unset.
type ReportService struct {
	reports domain.ReportRepository
	logger  *slog.Logger
}

// NewReportService creates a report service
func NewReportService(reports domain.ReportRepository, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{reports: reports, logger: logger}
}

// SalesSummary aggregates non-cancelled orders over the period.
func (s *ReportService) SalesSummary(ctx context.Context, start, end time.Time) (*domain.SalesSummary, error) {
	start, end, err := normalizePeriod(start, end)
	if err != nil {
		return nil, err
	}
	return s.reports.SalesSummary(ctx, start, end)
}

// TopItems returns the best sellers by quantity over the period.
func (s *ReportService) TopItems(ctx context.Context, start, end time.Time, limit int) ([]*domain.TopItem, error) {
	start, end, err := normalizePeriod(start, end)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTopItems
	}
	if limit > maxTopItems {
		limit = maxTopItems
	}
	return s.reports.TopItems(ctx, start, end, limit)
}

// Revenue splits revenue between completed and cancelled orders.
func (s *ReportService) Revenue(ctx context.Context, start, end time.Time) (*domain.RevenueReport, error) {
	start, end, err := normalizePeriod(start, end)
	if err != nil {
		return nil, err
	}
	return s.reports.Revenue(ctx, start, end)
}

func normalizePeriod(start, end time.Time) (time.Time, time.Time, error) {
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.Add(-defaultReportWindow)
	}
	if start.After(end) {
		return start, end, fmt.Errorf("period start after end: %w", domain.ErrValidation)
	}
	return start, end, nil
}
