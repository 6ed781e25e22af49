package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/service"
)

type ShippingMethodPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
}

type ShippingMethodResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
}

func toShippingResponse(m *domain.ShippingMethod) ShippingMethodResponse {
	return ShippingMethodResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price.StringFixed(2),
	}
}

// ShippingHandler serves shipping-method reads and admin writes.
type ShippingHandler struct {
	shipping *service.ShippingService
	guard    *security.Guard
	logger   *slog.Logger
}

// NewShippingHandler creates a shipping handler
func NewShippingHandler(shipping *service.ShippingService, guard *security.Guard, logger *slog.Logger) *ShippingHandler {
	return &ShippingHandler{shipping: shipping, guard: guard, logger: logger}
}

// List handles GET /api/shipping-methods
func (h *ShippingHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard); err != nil {
		respondError(w, h.logger, err)
		return
	}

	methods, err := h.shipping.List(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	out := make([]ShippingMethodResponse, 0, len(methods))
	for _, m := range methods {
		out = append(out, toShippingResponse(m))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /api/shipping-methods/{id}
func (h *ShippingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard); err != nil {
		respondError(w, h.logger, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	method, err := h.shipping.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toShippingResponse(method))
}

// Create handles POST /api/shipping-methods
func (h *ShippingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard, domain.RoleAdmin); err != nil {
		respondError(w, h.logger, err)
		return
	}

	method, err := h.decodeMethod(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.shipping.Create(r.Context(), method); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toShippingResponse(method))
}

// Update handles PUT /api/shipping-methods/{id}
func (h *ShippingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard, domain.RoleAdmin); err != nil {
		respondError(w, h.logger, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	method, err := h.decodeMethod(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	method.ID = id
	if err := h.shipping.Update(r.Context(), method); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toShippingResponse(method))
}

// Delete handles DELETE /api/shipping-methods/{id}
func (h *ShippingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard, domain.RoleAdmin); err != nil {
		respondError(w, h.logger, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.shipping.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShippingHandler) decodeMethod(r *http.Request) (*domain.ShippingMethod, error) {
	var req ShippingMethodPayload
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		return nil, err
	}
	return &domain.ShippingMethod{Name: req.Name, Description: req.Description, Price: price}, nil
}
