package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/storefront/internal/security/middleware"
)

// Logger writes structured audit records for sensitive storefront actions.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, userID int64, action, resource string, resourceID int64, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.Int64("resource_id", resourceID),
		slog.Int64("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", middleware.GetRequestID(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogLogin(ctx context.Context, userID int64, status string) {
	al.LogAction(ctx, userID, "login", "session", 0, status, "")
}

func (al *Logger) LogCheckout(ctx context.Context, userID, orderID int64, status, details string) {
	al.LogAction(ctx, userID, "checkout", "order", orderID, status, details)
}

func (al *Logger) LogCancel(ctx context.Context, userID, orderID int64, status, details string) {
	al.LogAction(ctx, userID, "cancel", "order", orderID, status, details)
}

func (al *Logger) LogRoleChange(ctx context.Context, actorID, targetID int64, newRole string) {
	al.LogAction(ctx, actorID, "role_change", "user", targetID, "applied", newRole)
}

func (al *Logger) LogDenied(ctx context.Context, userID int64, reason string) {
	al.LogAction(ctx, userID, "access_denied", "api", 0, "denied", reason)
}
