package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client), mini
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mini := newTestStore(t)
	ctx := context.Background()

	id, err := GenerateID()
	if err != nil {
		t.Fatalf("GenerateID() error = %v", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	in := Session{SessionID: id, UserID: "user-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	if err := store.Create(ctx, in); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ttl := mini.TTL(DefaultPrefix + id); ttl <= 0 || ttl > time.Hour {
		t.Errorf("ttl = %v, want (0, 1h]", ttl)
	}

	got, err := store.Get(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if got.UserID != "user-1" || !got.ExpiresAt.Equal(in.ExpiresAt) {
		t.Errorf("Get() = %+v, want %+v", got, in)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := store.Get(ctx, id); got != nil {
		t.Errorf("session still present after Delete")
	}
}

func TestRedisStoreExpiresWithTTL(t *testing.T) {
	store, mini := newTestStore(t)
	ctx := context.Background()

	s := Session{SessionID: "sid", UserID: "u", ExpiresAt: time.Now().Add(time.Minute)}
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	mini.FastForward(2 * time.Minute)

	if got, err := store.Get(ctx, "sid"); err != nil || got != nil {
		t.Fatalf("Get() after expiry = %v, %v; want nil, nil", got, err)
	}
}

func TestRedisStoreRejectsInvalidSessions(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   Session
		want error
	}{
		{"missing id", Session{UserID: "u", ExpiresAt: time.Now().Add(time.Hour)}, ErrMissingID},
		{"missing user", Session{SessionID: "s", ExpiresAt: time.Now().Add(time.Hour)}, ErrMissingID},
		{"already expired", Session{SessionID: "s", UserID: "u", ExpiresAt: time.Now().Add(-time.Second)}, ErrExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Create(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mini := newTestStore(t)
	mini.Close()

	if _, err := store.Get(context.Background(), "sid"); err == nil {
		t.Fatal("Get() should fail when redis is down")
	}
}

func TestCookies(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	c := NewCookie("sid", exp, CookieOptions{Secure: true})
	if c.Name != CookieName || c.Path != "/" || !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("NewCookie() = %+v", c)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := IDFromRequest(req); ok {
		t.Fatal("IDFromRequest() found a cookie on a bare request")
	}
	req.AddCookie(c)
	if id, ok := IDFromRequest(req); !ok || id != "sid" {
		t.Fatalf("IDFromRequest() = %q, %v", id, ok)
	}

	if cleared := ClearCookie(CookieOptions{}); cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Fatalf("ClearCookie() = %+v", cleared)
	}
}
