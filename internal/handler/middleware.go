package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const sessionKey contextKey = "session"

// CSRFHeader carries the CSRF token the client received at login.
const CSRFHeader = "X-CSRF-Token"

// SessionMiddleware extracts the caller's credentials into a domain.Session.
// The BFA cannot verify signatures (the backend owns the key), but a token
// that parses as a JWT and is already expired is rejected here instead of
// costing an upstream round trip. Opaque tokens are passed through.
func SessionMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return sessionMiddleware(logger, time.Now)
}

func sessionMiddleware(logger *zap.Logger, now func() time.Time) func(http.Handler) http.Handler {
	parser := jwt.NewParser()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}
			token := strings.TrimSpace(parts[1])

			if expired(parser, token, now()) {
				logger.Warn("auth: expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "session expired")
				return
			}

			sess := domain.Session{
				AccessToken: token,
				CSRFToken:   r.Header.Get(CSRFHeader),
			}
			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// expired reports whether token is a JWT whose exp claim is not after now.
func expired(parser *jwt.Parser, token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(now)
}

// SessionFromContext returns the session stored by SessionMiddleware.
func SessionFromContext(ctx context.Context) domain.Session {
	v, _ := ctx.Value(sessionKey).(domain.Session)
	return v
}
