package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/service"
)

type AddToCartRequest struct {
	ItemID   int64 `json:"itemId"`
	Quantity int64 `json:"quantity"`
}

type UpdateCartLineRequest struct {
	Quantity int64 `json:"quantity"`
}

type CartLineResponse struct {
	ID        int64  `json:"id"`
	ItemID    int64  `json:"itemId"`
	ItemName  string `json:"itemName"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

type CartResponse struct {
	Lines []CartLineResponse `json:"lines"`
	Total string             `json:"total"`
}

// CartHandler serves the customer's cart.
type CartHandler struct {
	cart   *service.CartService
	guard  *security.Guard
	logger *slog.Logger
}

// NewCartHandler creates a cart handler
func NewCartHandler(cart *service.CartService, guard *security.Guard, logger *slog.Logger) *CartHandler {
	return &CartHandler{cart: cart, guard: guard, logger: logger}
}

// View handles GET /api/cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard, domain.RoleCustomer)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	view, err := h.cart.View(r.Context(), p.UserID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	out := CartResponse{Lines: make([]CartLineResponse, 0, len(view.Lines)), Total: view.Total.StringFixed(2)}
	for _, line := range view.Lines {
		out.Lines = append(out.Lines, CartLineResponse{
			ID:        line.ID,
			ItemID:    line.ItemID,
			ItemName:  line.ItemName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// Add handles POST /api/cart
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard, domain.RoleCustomer)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	var req AddToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.cart.Add(r.Context(), p.UserID, req.ItemID, req.Quantity); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// UpdateLine handles PUT /api/cart/{id}
func (h *CartHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard, domain.RoleCustomer)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	lineID, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var req UpdateCartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.cart.UpdateQuantity(r.Context(), p.UserID, lineID, req.Quantity); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveLine handles DELETE /api/cart/{id}
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard, domain.RoleCustomer)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	lineID, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.cart.Remove(r.Context(), p.UserID, lineID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
