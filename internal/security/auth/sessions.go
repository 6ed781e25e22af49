package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/infrastructure/redis"
)

// Session is the server-side record of an issued token, kept for logout and
// audit. Token verification never consults it; the claim path is
// authoritative.
type Session struct {
	UserID   int64       `json:"user_id"`
	Role     domain.Role `json:"role"`
	IssuedAt time.Time   `json:"issued_at"`
}

// SessionRegistry stores sessions in Redis keyed by token value, expiring
// together with the token.
type SessionRegistry struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewSessionRegistry creates a session registry
func NewSessionRegistry(redisClient *redis.Client, logger *slog.Logger) *SessionRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRegistry{redis: redisClient, logger: logger}
}

func sessionKey(token string) string { return "session:" + token }

// Record stores a session with TTL matching the token lifetime
func (r *SessionRegistry) Record(ctx context.Context, token string, userID int64, role domain.Role, ttl time.Duration) error {
	data, err := json.Marshal(Session{UserID: userID, Role: role, IssuedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.redis.Set(ctx, sessionKey(token), string(data), ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	r.logger.Debug("session recorded", slog.Int64("user_id", userID))
	return nil
}

// Revoke drops the session record at logout
func (r *SessionRegistry) Revoke(ctx context.Context, token string) error {
	if err := r.redis.Delete(ctx, sessionKey(token)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Get returns the session for a token, or domain.ErrNotFound when it has
// been revoked or expired.
func (r *SessionRegistry) Get(ctx context.Context, token string) (*Session, error) {
	data, err := r.redis.Get(ctx, sessionKey(token))
	if err != nil {
		return nil, fmt.Errorf("session: %w", domain.ErrNotFound)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}
