package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "userID"

// GinRequireAuth is RequireAuth for gin routes. The user id is available
// both from the request context and via c.GetString(UserIDKey).
func GinRequireAuth(auth *AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			if id, ok := UserIDFromContext(r.Context()); ok {
				c.Set(UserIDKey, id)
			}
			c.Next()
		})

		auth.RequireAuth(next).ServeHTTP(c.Writer, c.Request)

		// RequireAuth answered without calling next
		if c.Writer.Written() && c.Writer.Status() == http.StatusUnauthorized {
			c.Abort()
		}
	}
}
