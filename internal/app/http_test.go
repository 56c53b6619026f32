package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"federation-service/internal/auth/provider"
	"federation-service/internal/auth/provider/providertest"
	"federation-service/internal/config"
	"federation-service/internal/session"
	"federation-service/internal/store/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

func testConfig() config.Config {
	return config.Config{
		StateSecret:    "state-secret",
		StateLifetime:  time.Hour,
		JWTSecret:      "jwt-secret",
		JWTLifetime:    time.Hour,
		SessionTTL:     time.Hour,
		DefaultBackend: "jwt",
	}
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { rdb.Close() })

	p := providertest.New("google")
	p.AddCode("code", &oauth2.Token{AccessToken: "at"})
	p.AddIdentity("at", "g-1", "a@x.com")
	registry, err := provider.NewRegistry(p)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	users := memory.New()
	router, err := newRouter(testConfig(), services{
		users:          users,
		sessions:       session.NewRedisStore(rdb),
		registry:       registry,
		redirects:      map[string]string{"google": "https://app.example.com/cb"},
		defaultBackend: "jwt",
	})
	if err != nil {
		t.Fatalf("newRouter() error = %v", err)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/health = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/oauth/google/authorize", nil))
	var body map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if rr.Code != http.StatusOK || body["authorization_url"] == "" {
		t.Fatalf("authorize = %d %s", rr.Code, rr.Body.String())
	}

	// The state from the authorize step completes the flow with the
	// configured redirect URL.
	authURL, err := url.Parse(body["authorization_url"])
	if err != nil {
		t.Fatalf("authorization_url %q: %v", body["authorization_url"], err)
	}
	stateToken := authURL.Query().Get("state")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/oauth/google/callback?code=code&state="+stateToken, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("callback = %d %s", rr.Code, rr.Body.String())
	}
	if p.LastRedirectURL != "https://app.example.com/cb" {
		t.Errorf("exchange redirect = %q", p.LastRedirectURL)
	}
	if users.Len() != 1 {
		t.Errorf("users = %d, want 1", users.Len())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("/api/me without credentials = %d", rr.Code)
	}
}

