package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/security/auth"
	"github.com/yourorg/storefront/internal/security/ratelimit"
)

type PrincipalContextKey struct{}
type RequestIDContextKey struct{}

// Principal verifies a bearer token when one is present and stores the
// resulting principal in the request context. Requests without a valid
// token pass through anonymously; handlers decide whether authentication
// is required for their operation.
func Principal(guard *security.Guard, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := auth.ExtractToken(authHeader)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := guard.Authenticate(token)
			if err != nil {
				log.Debug("bearer token rejected", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal returns the authenticated principal, or nil for anonymous
// requests.
func GetPrincipal(ctx context.Context) *security.Principal {
	if p, ok := ctx.Value(PrincipalContextKey{}).(*security.Principal); ok {
		return p
	}
	return nil
}

// BearerToken returns the raw token from the request, or "".
func BearerToken(r *http.Request) string {
	token, err := auth.ExtractToken(r.Header.Get("Authorization"))
	if err != nil {
		return ""
	}
	return token
}

// RequestID attaches an id to the context and response headers and logs
// each completed request.
func RequestID(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := uuid.NewString()
			w.Header().Set("X-Request-ID", reqID)

			ctx := context.WithValue(r.Context(), RequestIDContextKey{}, reqID)
			start := time.Now()

			next.ServeHTTP(w, r.WithContext(ctx))

			log.Info("request completed",
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("duration_ms", time.Since(start)),
			)
		})
	}
}

// GetRequestID returns the request id from the context, or "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDContextKey{}).(string); ok {
		return id
	}
	return ""
}

// AuthRateLimit throttles the credential endpoints per client address to
// slow down guessing. Other routes pass through untouched.
func AuthRateLimit(limiter *ratelimit.Limiter, maxReqs int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/auth/login" && r.URL.Path != "/api/auth/register" {
				next.ServeHTTP(w, r)
				return
			}

			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if !limiter.AllowStrict(host, maxReqs, window) {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
