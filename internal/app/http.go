package app

import (
	"context"
	"net/http"

	"federation-service/internal/auth"
	"federation-service/internal/auth/backend"
	"federation-service/internal/auth/flow"
	"federation-service/internal/auth/handler"
	"federation-service/internal/auth/linking"
	"federation-service/internal/auth/provider"
	"federation-service/internal/auth/state"
	"federation-service/internal/config"
	"federation-service/internal/db"
	"federation-service/internal/logger"
	"federation-service/internal/middleware"
	"federation-service/internal/session"
	"federation-service/internal/store"

	"github.com/gin-gonic/gin"
)

// services is everything the router needs, independent of where users
// and sessions are stored.
type services struct {
	users          store.UserStore
	sessions       session.Store
	registry       *provider.Registry
	redirects      map[string]string
	defaultBackend string
}

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	registry, redirects, err := setupProviders(ctx, cfg)
	if err != nil {
		infra.Close()
		return nil, nil, err
	}

	router, err := newRouter(cfg, services{
		users:          db.NewUserStore(infra.DB),
		sessions:       session.NewRedisStore(infra.Redis.Client),
		registry:       registry,
		redirects:      redirects,
		defaultBackend: cfg.DefaultBackend,
	})
	if err != nil {
		infra.Close()
		return nil, nil, err
	}

	return router, infra.Close, nil
}

func newRouter(cfg config.Config, svc services) (*gin.Engine, error) {
	codec, err := state.NewCodec(cfg.StateSecret, state.WithLifetime(cfg.StateLifetime))
	if err != nil {
		return nil, err
	}

	bearer, err := backend.NewBearer(cfg.JWTSecret, cfg.JWTLifetime)
	if err != nil {
		return nil, err
	}
	cookie := backend.NewCookie(svc.sessions, cfg.SessionTTL, session.CookieOptions{
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	backends, err := backend.NewSet(bearer, cookie)
	if err != nil {
		return nil, err
	}

	linker := linking.New(svc.users, linking.WithAfterRegister(logRegistration))

	flows := make([]*flow.Flow, 0)
	for _, p := range svc.registry.All() {
		var opts []flow.Option
		if u := svc.redirects[p.Name()]; u != "" {
			opts = append(opts, flow.WithRedirectURL(u))
		}
		flows = append(flows, flow.New(p, codec, linker, backends, opts...))
	}

	authHandler := handler.NewHandler(flows, svc.defaultBackend, cookie)
	userHandler := handler.NewUserHandler(svc.users)
	authMiddleware := middleware.NewAuthMiddleware(backends)

	router := gin.New()
	router.Use(gin.Recovery())

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(middleware.GinRequireAuth(authMiddleware))
	api.GET("/me", userHandler.Me)

	for _, route := range router.Routes() {
		logger.Debug("route registered", map[string]any{
			"method": route.Method,
			"path":   route.Path,
		})
	}

	return router, nil
}

func logRegistration(_ context.Context, user *auth.User) error {
	accounts := user.OAuthAccounts()
	fields := map[string]any{"user_id": user.ID.String()}
	if len(accounts) > 0 {
		fields["provider"] = accounts[0].OAuthName
	}
	logger.Info("user registered", fields)
	return nil
}
