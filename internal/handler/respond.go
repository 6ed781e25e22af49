package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/security/middleware"
)

type errorResponse struct {
	Error string `json:"error"`
}

var (
	errInvalidPrice  = fmt.Errorf("invalid price: %w", domain.ErrValidation)
	errInvalidFilter = fmt.Errorf("invalid filter parameter: %w", domain.ErrValidation)
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondError translates the domain error taxonomy into HTTP status codes.
// State conflicts (duplicates, stock shortfalls, illegal transitions) map to
// 400 alongside validation failures.
func respondError(w http.ResponseWriter, log *slog.Logger, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		log.Error("request failed", slog.String("error", err.Error()))
		respondJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	respondJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", domain.ErrValidation)
	}
	return nil
}

// pathID parses the named path segment as an id.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %w", name, domain.ErrValidation)
	}
	return id, nil
}

// requirePrincipal enforces the operation's allowed-role set. An empty set
// requires authentication only.
func requirePrincipal(r *http.Request, guard *security.Guard, allowed ...domain.Role) (*security.Principal, error) {
	p := middleware.GetPrincipal(r.Context())
	if err := guard.Require(r.Context(), p, allowed...); err != nil {
		return nil, err
	}
	return p, nil
}
