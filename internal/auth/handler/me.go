package handler

import (
	"net/http"

	"federation-service/internal/logger"
	"federation-service/internal/middleware"
	"federation-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserHandler serves the authenticated user's own profile.
type UserHandler struct {
	users store.UserStore
}

func NewUserHandler(users store.UserStore) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(c *gin.Context) {
	id, err := uuid.Parse(c.GetString(middleware.UserIDKey))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "unauthorized"})
		return
	}

	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		logger.Error("load current user failed", map[string]any{
			"user_id": id.String(),
			"error":   err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
		return
	}
	if user == nil || !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "unauthorized"})
		return
	}

	providers := make([]string, 0)
	for _, a := range user.OAuthAccounts() {
		providers = append(providers, a.OAuthName)
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":        user.ID.String(),
		"email":          user.Email,
		"is_verified":    user.IsVerified,
		"oauth_accounts": providers,
	})
}
