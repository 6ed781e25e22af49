package security

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security/auth"
)

// DenialAuditor receives a record of every authorization denial. The audit
// logger satisfies it; an interface keeps this package free of the audit
// package's middleware dependency.
type DenialAuditor interface {
	LogDenied(ctx context.Context, userID int64, reason string)
}

// Principal is the authenticated identity and role derived from a verified
// token.
type Principal struct {
	UserID int64
	Email  string
	Role   domain.Role
}

// Guard is the per-request access gate. It knows nothing about which roles
// may do what; callers declare the allowed set per operation.
type Guard struct {
	tokens  *auth.TokenManager
	denials DenialAuditor
	logger  *slog.Logger
}

// NewGuard creates an access guard. denials may be nil.
func NewGuard(tokens *auth.TokenManager, denials DenialAuditor, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{tokens: tokens, denials: denials, logger: logger}
}

// Authenticate verifies a raw bearer token and builds the principal. Any
// verification failure, a bad role claim included, yields ErrUnauthenticated.
func (g *Guard) Authenticate(token string) (*Principal, error) {
	if token == "" {
		return nil, fmt.Errorf("missing token: %w", domain.ErrUnauthenticated)
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		g.logger.Debug("token rejected", slog.String("error", err.Error()))
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthenticated)
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("invalid role claim: %w", domain.ErrUnauthenticated)
	}

	return &Principal{UserID: claims.UserID, Email: claims.Email, Role: role}, nil
}

// Require checks the principal's role against the operation's declared
// allowed set. An empty set means authentication alone suffices. Denials go
// to the audit trail.
func (g *Guard) Require(ctx context.Context, p *Principal, allowed ...domain.Role) error {
	if p == nil {
		return fmt.Errorf("authentication required: %w", domain.ErrUnauthenticated)
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, role := range allowed {
		if p.Role == role {
			return nil
		}
	}
	g.logger.Warn("role not permitted",
		slog.Int64("user_id", p.UserID),
		slog.String("role", string(p.Role)),
	)
	if g.denials != nil {
		g.denials.LogDenied(ctx, p.UserID, fmt.Sprintf("role %s not permitted", p.Role))
	}
	return fmt.Errorf("role %s not permitted: %w", p.Role, domain.ErrForbidden)
}

// Check authenticates a token and enforces the allowed-role set in one step.
func (g *Guard) Check(ctx context.Context, token string, allowed ...domain.Role) (*Principal, error) {
	p, err := g.Authenticate(token)
	if err != nil {
		return nil, err
	}
	if err := g.Require(ctx, p, allowed...); err != nil {
		return nil, err
	}
	return p, nil
}
