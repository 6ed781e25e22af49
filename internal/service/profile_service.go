package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
)

// Profile bundles the account with its stored payment methods.
type Profile struct {
	User           *domain.User
	PaymentMethods []*domain.PaymentMethod
}

// ProfileUpdate carries the self-service editable fields. Nil pointers
// leave the current value unchanged.
type ProfileUpdate struct {
	Email           *string
	FullName        *string
	Phone           *string
	DeliveryAddress *string
}

// ProfileService is the customer-facing view of their own account.
type ProfileService struct {
	users    domain.UserRepository
	payments domain.PaymentMethodRepository
	logger   *slog.Logger
}

// NewProfileService creates a profile service
func NewProfileService(users domain.UserRepository, payments domain.PaymentMethodRepository, logger *slog.Logger) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{users: users, payments: payments, logger: logger}
}

// Get returns the actor's own profile with payment methods.
func (s *ProfileService) Get(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	methods, err := s.payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, PaymentMethods: methods}, nil
}

// Update applies the provided fields to the actor's own account. A changed
// email must be well-formed and not in use.
func (s *ProfileService) Update(ctx context.Context, userID int64, update ProfileUpdate) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Email != nil && *update.Email != user.Email {
		if err := validateEmail(*update.Email); err != nil {
			return nil, err
		}
		if other, err := s.users.GetByEmail(ctx, *update.Email); err == nil && other.ID != userID {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		user.Email = *update.Email
	}
	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	if update.Phone != nil {
		user.Phone = *update.Phone
	}
	if update.DeliveryAddress != nil {
		user.DeliveryAddress = *update.DeliveryAddress
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AddPaymentMethod stores a card on the actor's account. The card is never
// charged or checked against a network.
func (s *ProfileService) AddPaymentMethod(ctx context.Context, userID int64, pm *domain.PaymentMethod) error {
	if pm.CardNumber == "" || pm.ExpiryDate == "" {
		return fmt.Errorf("card number and expiry are required: %w", domain.ErrValidation)
	}
	pm.UserID = userID
	if err := s.payments.Create(ctx, pm); err != nil {
		return err
	}
	s.logger.Debug("payment method stored", slog.Int64("user_id", userID))
	return nil
}

// RemovePaymentMethod drops one of the actor's stored cards.
func (s *ProfileService) RemovePaymentMethod(ctx context.Context, userID, paymentMethodID int64) error {
	return s.payments.Remove(ctx, userID, paymentMethodID)
}
