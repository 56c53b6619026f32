package handler

import (
	"context"
	"errors"
	"net/http"

	"federation-service/internal/auth"
	"federation-service/internal/auth/backend"
	"federation-service/internal/auth/flow"
	"federation-service/internal/logger"

	"github.com/gin-gonic/gin"
)

// Handler exposes one OAuth flow per provider under /oauth/:provider.
type Handler struct {
	flows          map[string]*flow.Flow
	defaultBackend string
	cookie         *backend.Cookie
}

// NewHandler builds the OAuth routes. cookie may be nil when the cookie
// backend is not configured; logout then only acknowledges.
func NewHandler(flows []*flow.Flow, defaultBackend string, cookie *backend.Cookie) *Handler {
	byName := make(map[string]*flow.Flow, len(flows))
	for _, f := range flows {
		byName[f.ProviderName()] = f
	}
	return &Handler{
		flows:          byName,
		defaultBackend: defaultBackend,
		cookie:         cookie,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	oauth := r.Group("/oauth/:provider")
	oauth.GET("/authorize", h.authorize)
	oauth.GET("/callback", h.callback)
	oauth.POST("/callback", h.callbackForm)
	oauth.POST("/authorize-code", h.authorizeCode)

	r.POST("/auth/logout", h.Logout)
}

func (h *Handler) flow(c *gin.Context) (*flow.Flow, bool) {
	f, ok := h.flows[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "unknown oauth provider"})
		return nil, false
	}
	return f, true
}

func (h *Handler) authorize(c *gin.Context) {
	f, ok := h.flow(c)
	if !ok {
		return
	}

	u, err := f.Initiate(c.Request.Context(), flow.InitiateRequest{
		Backend:     c.DefaultQuery("authentication_backend", h.defaultBackend),
		Scopes:      c.QueryArray("scopes"),
		CallbackURL: callbackURL(c),
	})
	if err != nil {
		writeError(c, f.ProviderName(), err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authorization_url": u})
}

// callback serves the provider redirect.
func (h *Handler) callback(c *gin.Context) {
	h.complete(c, c.Query("error"), c.Query("code"), c.Query("state"))
}

// callbackForm serves providers that deliver the callback as a form post.
func (h *Handler) callbackForm(c *gin.Context) {
	h.complete(c, c.PostForm("error"), c.PostForm("code"), c.PostForm("state"))
}

func (h *Handler) complete(c *gin.Context, providerErr, code, stateToken string) {
	f, ok := h.flow(c)
	if !ok {
		return
	}

	if providerErr != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"provider": f.ProviderName(),
			"error":    providerErr,
		})
		c.JSON(http.StatusBadRequest, gin.H{"detail": auth.CodeProviderError})
		return
	}

	resp, err := f.CompleteCode(c.Request.Context(), code, stateToken, callbackURL(c))
	if err != nil {
		writeError(c, f.ProviderName(), err)
		return
	}
	writeResponse(c, resp)
}

// authorizeCode serves clients that ran the provider redirect themselves.
func (h *Handler) authorizeCode(c *gin.Context) {
	f, ok := h.flow(c)
	if !ok {
		return
	}

	code := c.PostForm("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": auth.CodeBadRequest})
		return
	}
	backendName := c.PostForm("authentication_backend")
	if backendName == "" {
		backendName = c.DefaultQuery("authentication_backend", h.defaultBackend)
	}

	resp, err := f.ExchangeCode(c.Request.Context(), code, backendName, callbackURL(c))
	if err != nil {
		writeError(c, f.ProviderName(), err)
		return
	}
	writeResponse(c, resp)
}

// Logout drops the cookie session if there is one. It always succeeds.
func (h *Handler) Logout(c *gin.Context) {
	if h.cookie != nil {
		cleared, err := h.cookie.Logout(context.WithoutCancel(c.Request.Context()), c.Request)
		if err != nil {
			logger.Error("session delete failed", map[string]any{
				"error": err.Error(),
			})
		}
		if cleared != nil {
			http.SetCookie(c.Writer, cleared)
		}
	}
	c.Status(http.StatusNoContent)
}

func writeResponse(c *gin.Context, resp *backend.Response) {
	for _, ck := range resp.Cookies {
		http.SetCookie(c.Writer, ck)
	}
	if resp.Body == nil {
		c.Status(resp.Status)
		return
	}
	c.JSON(resp.Status, resp.Body)
}

// writeError answers flow failures with a detail code and hides
// everything else behind a 500.
func writeError(c *gin.Context, providerName string, err error) {
	if code, ok := auth.ErrorCode(err); ok {
		fields := map[string]any{
			"provider": providerName,
			"code":     code,
		}
		if !errors.Is(err, auth.ErrInactiveUser) {
			fields["error"] = err.Error()
		}
		logger.Warn("oauth request rejected", fields)
		c.JSON(http.StatusBadRequest, gin.H{"detail": code})
		return
	}

	logger.Error("oauth request failed", map[string]any{
		"provider": providerName,
		"error":    err.Error(),
	})
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
}

// callbackURL rebuilds the provider callback URL from the request.
func callbackURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + c.Request.Host + "/oauth/" + c.Param("provider") + "/callback"
}
