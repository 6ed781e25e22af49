package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/service"
)

type UpdateProfileRequest struct {
	Email           *string `json:"email,omitempty"`
	FullName        *string `json:"fullName,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	DeliveryAddress *string `json:"deliveryAddress,omitempty"`
}

type PaymentMethodResponse struct {
	ID         int64  `json:"id"`
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
}

type ProfileResponse struct {
	User           UserResponse            `json:"user"`
	PaymentMethods []PaymentMethodResponse `json:"paymentMethods"`
}

// ProfileHandler serves the authenticated user's own account.
type ProfileHandler struct {
	profile *service.ProfileService
	guard   *security.Guard
	logger  *slog.Logger
}

// NewProfileHandler creates a profile handler
func NewProfileHandler(profile *service.ProfileService, guard *security.Guard, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profile: profile, guard: guard, logger: logger}
}

// Get handles GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	profile, err := h.profile.Get(r.Context(), p.UserID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	out := ProfileResponse{
		User:           toUserResponse(profile.User),
		PaymentMethods: make([]PaymentMethodResponse, 0, len(profile.PaymentMethods)),
	}
	for _, pm := range profile.PaymentMethods {
		out.PaymentMethods = append(out.PaymentMethods, PaymentMethodResponse{
			ID:         pm.ID,
			CardNumber: maskCard(pm.CardNumber),
			ExpiryDate: pm.ExpiryDate,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// Update handles PUT /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	user, err := h.profile.Update(r.Context(), p.UserID, service.ProfileUpdate{
		Email:           req.Email,
		FullName:        req.FullName,
		Phone:           req.Phone,
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(user))
}

// AddPaymentMethod handles POST /api/profile/payment-methods
func (h *ProfileHandler) AddPaymentMethod(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	var req CardPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	pm := &domain.PaymentMethod{
		CardNumber: req.CardNumber,
		ExpiryDate: req.ExpiryDate,
		CVC:        req.CVC,
	}
	if err := h.profile.AddPaymentMethod(r.Context(), p.UserID, pm); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": pm.ID})
}

// RemovePaymentMethod handles DELETE /api/profile/payment-methods/{id}
func (h *ProfileHandler) RemovePaymentMethod(w http.ResponseWriter, r *http.Request) {
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
	if err := h.profile.RemovePaymentMethod(r.Context(), p.UserID, id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// maskCard keeps only the last four digits.
func maskCard(number string) string {
	if len(number) <= 4 {
		return number
	}
	return "**** **** **** " + number[len(number)-4:]
}
