package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/observability/metrics"
	"github.com/yourorg/storefront/internal/security/audit"
	"github.com/yourorg/storefront/internal/security/auth"
)

const minPasswordLength = 8

// SessionStore records issued tokens for logout and audit. Verification
// never consults it.
type SessionStore interface {
	Record(ctx context.Context, token string, userID int64, role domain.Role, ttl time.Duration) error
	Revoke(ctx context.Context, token string) error
	Get(ctx context.Context, token string) (*auth.Session, error)
}

// RegisterInput is a self-service registration request.
type RegisterInput struct {
	Email           string
	Login           string
	Password        string
	FullName        string
	Phone           string
	DeliveryAddress string
	// Card optionally stores an initial payment method.
	Card *domain.PaymentMethod
}

// LoginResult carries the issued token alongside the account.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthService handles registration, login and credential changes.
type AuthService struct {
	tx          domain.TxManager
	users       domain.UserRepository
	credentials domain.CredentialRepository
	payments    domain.PaymentMethodRepository
	hasher      *auth.Hasher
	tokens      *auth.TokenManager
	sessions    SessionStore
	audit       *audit.Logger
	logger      *slog.Logger
}

// NewAuthService creates an auth service
func NewAuthService(
	tx domain.TxManager,
	users domain.UserRepository,
	credentials domain.CredentialRepository,
	payments domain.PaymentMethodRepository,
	hasher *auth.Hasher,
	tokens *auth.TokenManager,
	sessions SessionStore,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		tx:          tx,
		users:       users,
		credentials: credentials,
		payments:    payments,
		hasher:      hasher,
		tokens:      tokens,
		sessions:    sessions,
		audit:       auditLog,
		logger:      logger,
	}
}

// Register creates a customer account with its login handle, all in one
// transaction. Duplicate email or login yields ErrConflict.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}
	if input.Login == "" {
		return nil, fmt.Errorf("login must not be empty: %w", domain.ErrValidation)
	}
	if len(input.Password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, domain.ErrValidation)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:           input.Email,
		FullName:        input.FullName,
		Phone:           input.Phone,
		DeliveryAddress: input.DeliveryAddress,
		PasswordHash:    hash,
		Role:            domain.RoleCustomer,
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
		cred := &domain.Credential{Login: input.Login, UserID: user.ID}
		if err := s.credentials.Create(ctx, cred); err != nil {
			return err
		}
		if input.Card != nil {
			input.Card.UserID = user.ID
			if err := s.payments.Create(ctx, input.Card); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.Int64("user_id", user.ID))
	return user, nil
}

// Login authenticates by login handle and password and issues a token. The
// failure reason is never distinguished to the caller.
func (s *AuthService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	cred, err := s.credentials.GetByLogin(ctx, login)
	if err != nil {
		metrics.ObserveLogin("failure")
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthenticated)
	}

	user, err := s.users.GetByID(ctx, cred.UserID)
	if err != nil {
		metrics.ObserveLogin("failure")
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthenticated)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		metrics.ObserveLogin("failure")
		s.audit.LogLogin(ctx, user.ID, "rejected")
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthenticated)
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	// The session registry only backs logout and audit, so a recording
	// failure must not block the login.
	if err := s.sessions.Record(ctx, token, user.ID, user.Role, s.tokens.TTL()); err != nil {
		s.logger.Warn("session not recorded", slog.String("error", err.Error()))
	}

	metrics.ObserveLogin("success")
	s.audit.LogLogin(ctx, user.ID, "success")
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout revokes the session record for a token. Logging out twice with the
// same token fails the second time, like any other stale session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("missing token: %w", domain.ErrUnauthenticated)
	}
	if _, err := s.sessions.Get(ctx, token); err != nil {
		return fmt.Errorf("session already ended: %w", domain.ErrUnauthenticated)
	}
	return s.sessions.Revoke(ctx, token)
}

// ChangePassword replaces the user's password after verifying the old one.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, domain.ErrValidation)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(user.PasswordHash, oldPassword) {
		return fmt.Errorf("wrong password: %w", domain.ErrUnauthenticated)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address: %w", domain.ErrValidation)
	}
	return nil
}
