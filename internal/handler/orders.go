package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/service"
)

type CheckoutRequest struct {
	ShippingMethodID int64 `json:"shippingMethodId"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

type OrderLineResponse struct {
	ItemID    int64  `json:"itemId"`
	ItemName  string `json:"itemName"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

type OrderResponse struct {
	ID            int64               `json:"id"`
	Status        string              `json:"status"`
	Total         string              `json:"total"`
	PlacedAt      time.Time           `json:"placedAt"`
	ShippingName  string              `json:"shippingName,omitempty"`
	ShippingPrice string              `json:"shippingPrice,omitempty"`
	Lines         []OrderLineResponse `json:"lines,omitempty"`
}

func toOrderResponse(order *domain.Order) OrderResponse {
	out := OrderResponse{
		ID:       order.ID,
		Status:   string(order.Status),
		Total:    order.Total.StringFixed(2),
		PlacedAt: order.PlacedAt,
	}
	if order.ShippingName != "" {
		out.ShippingName = order.ShippingName
		out.ShippingPrice = order.ShippingPrice.StringFixed(2)
	}
	for _, line := range order.Lines {
		out.Lines = append(out.Lines, OrderLineResponse{
			ItemID:    line.ItemID,
			ItemName:  line.ItemName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
		})
	}
	return out
}

// OrdersHandler serves checkout, order reads and the status machine.
type OrdersHandler struct {
	orders *service.OrderService
	guard  *security.Guard
	logger *slog.Logger
}

// NewOrdersHandler creates an orders handler
func NewOrdersHandler(orders *service.OrderService, guard *security.Guard, logger *slog.Logger) *OrdersHandler {
	return &OrdersHandler{orders: orders, guard: guard, logger: logger}
}

// Checkout handles POST /api/orders
func (h *OrdersHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard, domain.RoleCustomer)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	var req CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	order, err := h.orders.Checkout(r.Context(), p, req.ShippingMethodID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(order))
}

// List handles GET /api/orders
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	orders, err := h.orders.List(r.Context(), p)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	out := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderResponse(order))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /api/orders/{id}
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	order, err := h.orders.Get(r.Context(), p, id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

// UpdateStatus handles PUT /api/orders/{id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard, domain.RoleAdmin, domain.RoleManager)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var req UpdateOrderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.orders.UpdateStatus(r.Context(), p, id, status); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cancel handles POST /api/orders/{id}/cancel
func (h *OrdersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.orders.Cancel(r.Context(), p, id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
