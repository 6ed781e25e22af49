package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/service"
)

type CreateEmployeeRequest struct {
	Email    string `json:"email"`
	Login    string `json:"login"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type UpdateUserRequest struct {
	Email           *string `json:"email"`
	FullName        *string `json:"fullName"`
	Phone           *string `json:"phone"`
	DeliveryAddress *string `json:"deliveryAddress"`
}

type UserResponse struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	FullName        string    `json:"fullName,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	DeliveryAddress string    `json:"deliveryAddress,omitempty"`
	Role            string    `json:"role"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		FullName:        u.FullName,
		Phone:           u.Phone,
		DeliveryAddress: u.DeliveryAddress,
		Role:            string(u.Role),
		CreatedAt:       u.CreatedAt,
	}
}

// UsersHandler is the staff account-administration surface.
type UsersHandler struct {
	users  *service.UserService
	guard  *security.Guard
	logger *slog.Logger
}

// NewUsersHandler creates a users handler
func NewUsersHandler(users *service.UserService, guard *security.Guard, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{users: users, guard: guard, logger: logger}
}

// List handles GET /api/users
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard, domain.RoleAdmin, domain.RoleManager)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	users, err := h.users.List(r.Context(), p)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /api/users/{id}
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	user, err := h.users.Get(r.Context(), p, id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(user))
}

// Create handles POST /api/users
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard, domain.RoleAdmin)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	var req CreateEmployeeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	user, err := h.users.CreateEmployee(r.Context(), p, service.EmployeeInput{
		Email:    req.Email,
		Login:    req.Login,
		Password: req.Password,
		FullName: req.FullName,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toUserResponse(user))
}

// Update handles PUT /api/users/{id}
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard, domain.RoleAdmin)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var req UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	user, err := h.users.Update(r.Context(), p, id, service.ProfileUpdate{
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

// ChangeRole handles PUT /api/users/{id}/role
func (h *UsersHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	p, err := requirePrincipal(r, h.guard, domain.RoleAdmin)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var req ChangeRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.users.ChangeRole(r.Context(), p, id, domain.Role(req.Role)); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/users/{id}
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.users.Delete(r.Context(), p, id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
