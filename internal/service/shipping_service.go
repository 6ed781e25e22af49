package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
)

// ShippingService manages the shipping-method reference data attached to
// orders at checkout.
type ShippingService struct {
	methods domain.ShippingMethodRepository
	logger  *slog.Logger
}

// NewShippingService creates a shipping method service
func NewShippingService(methods domain.ShippingMethodRepository, logger *slog.Logger) *ShippingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShippingService{methods: methods, logger: logger}
}

// List returns all shipping methods.
func (s *ShippingService) List(ctx context.Context) ([]*domain.ShippingMethod, error) {
	return s.methods.List(ctx)
}

// Get returns one shipping method by id.
func (s *ShippingService) Get(ctx context.Context, id int64) (*domain.ShippingMethod, error) {
	return s.methods.GetByID(ctx, id)
}

// Create stores a new shipping method.
func (s *ShippingService) Create(ctx context.Context, method *domain.ShippingMethod) error {
	if err := validateShippingMethod(method); err != nil {
		return err
	}
	return s.methods.Create(ctx, method)
}

// Update changes a shipping method. Orders keep the price they were placed
// with; the order total is snapshotted.
func (s *ShippingService) Update(ctx context.Context, method *domain.ShippingMethod) error {
	if err := validateShippingMethod(method); err != nil {
		return err
	}
	return s.methods.Update(ctx, method)
}

// Delete removes a shipping method that no order references.
func (s *ShippingService) Delete(ctx context.Context, id int64) error {
	count, err := s.methods.CountOrders(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("shipping method used by %d orders: %w", count, domain.ErrConflict)
	}
	return s.methods.Delete(ctx, id)
}

func validateShippingMethod(method *domain.ShippingMethod) error {
	if method.Name == "" {
		return fmt.Errorf("shipping method name must not be empty: %w", domain.ErrValidation)
	}
	if method.Price.IsNegative() {
		return fmt.Errorf("shipping price must not be negative: %w", domain.ErrValidation)
	}
	return nil
}
