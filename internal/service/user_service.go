package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/security/audit"
)

// EmployeeInput is an admin's request to create a staff account.
type EmployeeInput struct {
	Email    string
	Login    string
	Password string
	FullName string
	Role     domain.Role
}

// UserService is the staff-facing account administration surface. Managers
// are scoped to customer accounts; admins see everything.
type UserService struct {
	tx          domain.TxManager
	users       domain.UserRepository
	credentials domain.CredentialRepository
	orders      domain.OrderRepository
	hasher      passwordHasher
	audit       *audit.Logger
	logger      *slog.Logger
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
}

// NewUserService creates a user administration service
func NewUserService(
	tx domain.TxManager,
	users domain.UserRepository,
	credentials domain.CredentialRepository,
	orders domain.OrderRepository,
	hasher passwordHasher,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		tx:          tx,
		users:       users,
		credentials: credentials,
		orders:      orders,
		hasher:      hasher,
		audit:       auditLog,
		logger:      logger,
	}
}

// List returns accounts visible to the actor: all for admins, customers
// only for managers.
func (s *UserService) List(ctx context.Context, actor *security.Principal) ([]*domain.User, error) {
	if actor.Role == domain.RoleManager {
		return s.users.List(ctx, domain.RoleCustomer)
	}
	return s.users.List(ctx, "")
}

// Get returns one account, applying the manager customer-only scope.
func (s *UserService) Get(ctx context.Context, actor *security.Principal, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleManager && user.Role != domain.RoleCustomer {
		return nil, fmt.Errorf("managers may only view customers: %w", domain.ErrForbidden)
	}
	return user, nil
}

// CreateEmployee creates a staff account with the given role.
func (s *UserService) CreateEmployee(ctx context.Context, actor *security.Principal, input EmployeeInput) (*domain.User, error) {
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}
	if input.Login == "" {
		return nil, fmt.Errorf("login must not be empty: %w", domain.ErrValidation)
	}
	if len(input.Password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, domain.ErrValidation)
	}
	if _, err := domain.ParseRole(string(input.Role)); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        input.Email,
		FullName:     input.FullName,
		PasswordHash: hash,
		Role:         input.Role,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
			return fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		if _, err := s.credentials.GetByLogin(ctx, input.Login); err == nil {
			return fmt.Errorf("login already taken: %w", domain.ErrConflict)
		}
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		return s.credentials.Create(ctx, &domain.Credential{Login: input.Login, UserID: user.ID})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("employee created",
		slog.Int64("user_id", user.ID),
		slog.String("role", string(user.Role)),
		slog.Int64("created_by", actor.UserID),
	)
	return user, nil
}

// Update applies contact-field edits to another account. The same
// nil-leaves-unchanged semantics as the self-service profile update apply.
func (s *UserService) Update(ctx context.Context, actor *security.Principal, userID int64, update ProfileUpdate) (*domain.User, error) {
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
	s.logger.Info("user updated",
		slog.Int64("user_id", userID),
		slog.Int64("updated_by", actor.UserID),
	)
	return user, nil
}

// ChangeRole assigns a new role to an account.
func (s *UserService) ChangeRole(ctx context.Context, actor *security.Principal, userID int64, role domain.Role) error {
	if _, err := domain.ParseRole(string(role)); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == role {
		return nil
	}

	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	s.audit.LogRoleChange(ctx, actor.UserID, userID, string(role))
	return nil
}

// Delete removes an account that has no order still in flight.
func (s *UserService) Delete(ctx context.Context, actor *security.Principal, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if actor.Role == domain.RoleManager && user.Role != domain.RoleCustomer {
		return fmt.Errorf("managers may only delete customers: %w", domain.ErrForbidden)
	}

	active, err := s.orders.CountActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("user has %d active orders: %w", active, domain.ErrConflict)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("user deleted",
		slog.Int64("user_id", userID),
		slog.Int64("deleted_by", actor.UserID),
	)
	return nil
}
