package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/service"
)

type SalesSummaryResponse struct {
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	TotalRevenue      string    `json:"totalRevenue"`
	TotalOrders       int64     `json:"totalOrders"`
	AverageOrderValue string    `json:"averageOrderValue"`
}

type TopItemResponse struct {
	ItemID        int64  `json:"itemId"`
	ItemName      string `json:"itemName"`
	TotalQuantity int64  `json:"totalQuantity"`
	TotalRevenue  string `json:"totalRevenue"`
}

type RevenueReportResponse struct {
	StartDate        time.Time `json:"startDate"`
	EndDate          time.Time `json:"endDate"`
	TotalRevenue     string    `json:"totalRevenue"`
	CancelledRevenue string    `json:"cancelledRevenue"`
	NetRevenue       string    `json:"netRevenue"`
}

// ReportsHandler serves the staff sales reports.
type ReportsHandler struct {
	reports *service.ReportService
	guard   *security.Guard
	logger  *slog.Logger
}

// NewReportsHandler creates a reports handler
func NewReportsHandler(reports *service.ReportService, guard *security.Guard, logger *slog.Logger) *ReportsHandler {
	return &ReportsHandler{reports: reports, guard: guard, logger: logger}
}

// SalesSummary handles GET /api/reports/sales
func (h *ReportsHandler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard, domain.RoleAdmin, domain.RoleManager); err != nil {
		respondError(w, h.logger, err)
		return
	}
	start, end, err := parsePeriod(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	summary, err := h.reports.SalesSummary(r.Context(), start, end)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, SalesSummaryResponse{
		StartDate:         summary.StartDate,
		EndDate:           summary.EndDate,
		TotalRevenue:      summary.TotalRevenue.StringFixed(2),
		TotalOrders:       summary.TotalOrders,
		AverageOrderValue: summary.AverageOrderValue.StringFixed(2),
	})
}

// TopItems handles GET /api/reports/top-items
func (h *ReportsHandler) TopItems(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard, domain.RoleAdmin, domain.RoleManager); err != nil {
		respondError(w, h.logger, err)
		return
	}
	start, end, err := parsePeriod(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := h.reports.TopItems(r.Context(), start, end, limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	out := make([]TopItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, TopItemResponse{
			ItemID:        item.ItemID,
			ItemName:      item.ItemName,
			TotalQuantity: item.TotalQuantity,
			TotalRevenue:  item.TotalRevenue.StringFixed(2),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// Revenue handles GET /api/reports/revenue
func (h *ReportsHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard, domain.RoleAdmin, domain.RoleManager); err != nil {
		respondError(w, h.logger, err)
		return
	}
	start, end, err := parsePeriod(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	report, err := h.reports.Revenue(r.Context(), start, end)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, RevenueReportResponse{
		StartDate:        report.StartDate,
		EndDate:          report.EndDate,
		TotalRevenue:     report.TotalRevenue.StringFixed(2),
		CancelledRevenue: report.CancelledRevenue.StringFixed(2),
		NetRevenue:       report.NetRevenue.StringFixed(2),
	})
}

// parsePeriod reads optional RFC 3339 date bounds from the query string.
func parsePeriod(r *http.Request) (time.Time, time.Time, error) {
	var start, end time.Time
	q := r.URL.Query()

	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return start, end, fmt.Errorf("invalid start date: %w", domain.ErrValidation)
		}
		start = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return start, end, fmt.Errorf("invalid end date: %w", domain.ErrValidation)
		}
		end = t
	}
	return start, end, nil
}
