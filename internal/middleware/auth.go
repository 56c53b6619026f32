package middleware

import (
	"context"
	"errors"
	"net/http"

	"federation-service/internal/auth/backend"
	"federation-service/internal/logger"
)

// unexported, collision-proof context key
type userIDContextKeyType struct{}

var userIDKey = userIDContextKeyType{}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// AuthMiddleware accepts any credential issued by one of the backends.
type AuthMiddleware struct {
	backends *backend.Set
}

func NewAuthMiddleware(backends *backend.Set) *AuthMiddleware {
	return &AuthMiddleware{backends: backends}
}

// Authenticate returns the user id of the first backend that accepts r.
func (a *AuthMiddleware) Authenticate(r *http.Request) (string, bool) {
	for _, b := range a.backends.All() {
		id, err := b.Authenticate(r)
		if err == nil {
			return id, true
		}
		if !errors.Is(err, backend.ErrUnauthenticated) {
			logger.Error("authentication backend failed", map[string]any{
				"backend": b.Name(),
				"error":   err.Error(),
			})
		}
	}
	return "", false
}

func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := a.Authenticate(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
