package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bug6129/noteguard/internal/api"
	"github.com/bug6129/noteguard/internal/types"
)

// Typed context keys so handler packages can't collide with ours.
type contextKey string

const userContextKey contextKey = "authenticatedUser"

// Authenticate is middleware that runs the guard chain for every request and
// stores the resolved user in the request context. Every failure is a 401
// with the same generic message; the chain never reveals which step rejected.
func Authenticate(authService AuthService, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			user, err := authService.Authenticate(ctx, r.Header.Get("Authorization"))
			if err != nil {
				l.WarnContext(ctx, "Authentication failed", slog.Any("error", err))
				w.Header().Set("WWW-Authenticate", "Bearer")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			ctx = context.WithValue(ctx, userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole checks the authenticated user's role against a required role.
// Runs AFTER Authenticate: a 403 here means "we know who you are and you may
// not do this", as opposed to the guard's 401.
func RequireRole(required types.Role, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			user, ok := GetUserFromContext(ctx)
			if !ok {
				logger.ErrorContext(ctx, "RequireRole used without Authenticate")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			if !user.Role.AtLeast(required) {
				logger.WarnContext(ctx, "Role check failed",
					slog.String("required", string(required)),
					slog.String("actual", string(user.Role)),
				)
				api.ErrorResponse(w, r, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext returns the user stored by the Authenticate middleware.
func GetUserFromContext(ctx context.Context) (*types.User, bool) {
	user, ok := ctx.Value(userContextKey).(*types.User)
	return user, ok
}

// GetUserIDFromContext is a convenience accessor for handlers that only need
// the caller's ID.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	user, ok := GetUserFromContext(ctx)
	if !ok {
		return "", false
	}
	return user.ID.String(), true
}
