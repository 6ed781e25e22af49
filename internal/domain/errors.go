package domain

import (
	"errors"
	"fmt"
)

// Outcome kinds shared by every service. Handlers map these to HTTP status
// codes with errors.Is; services wrap them with fmt.Errorf("...: %w", ...).
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
)

// Stock shortfalls and illegal status transitions are state conflicts, so
// both match ErrConflict at the boundary.
var (
	ErrInsufficientStock = fmt.Errorf("insufficient stock: %w", ErrConflict)
	ErrInvalidTransition = fmt.Errorf("invalid status transition: %w", ErrConflict)
)
