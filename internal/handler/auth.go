package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/security/middleware"
	"github.com/yourorg/storefront/internal/service"
)

// RegisterRequest is the self-service signup payload.
type RegisterRequest struct {
	Email           string       `json:"email"`
	Login           string       `json:"login"`
	Password        string       `json:"password"`
	FullName        string       `json:"fullName"`
	Phone           string       `json:"phone,omitempty"`
	DeliveryAddress string       `json:"deliveryAddress,omitempty"`
	Card            *CardPayload `json:"card,omitempty"`
}

// CardPayload is an optional stored card.
type CardPayload struct {
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVC        string `json:"cvc"`
}

type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    int64     `json:"userId"`
	Role      string    `json:"role"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// AuthHandler serves registration, login, logout and password changes.
type AuthHandler struct {
	auth   *service.AuthService
	guard  *security.Guard
	logger *slog.Logger
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(auth *service.AuthService, guard *security.Guard, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, guard: guard, logger: logger}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	input := service.RegisterInput{
		Email:           req.Email,
		Login:           req.Login,
		Password:        req.Password,
		FullName:        req.FullName,
		Phone:           req.Phone,
		DeliveryAddress: req.DeliveryAddress,
	}
	if req.Card != nil {
		input.Card = &domain.PaymentMethod{
			CardNumber: req.Card.CardNumber,
			ExpiryDate: req.Card.ExpiryDate,
			CVC:        req.Card.CVC,
		}
	}

	user, err := h.auth.Register(r.Context(), input)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": user.ID})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		UserID:    result.User.ID,
		Role:      string(result.User.Role),
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePrincipal(r, h.guard); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.auth.Logout(r.Context(), middleware.BearerToken(r)); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword handles POST /api/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.auth.ChangePassword(r.Context(), p.UserID, req.OldPassword, req.NewPassword); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
