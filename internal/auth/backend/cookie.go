package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"federation-service/internal/auth"
	"federation-service/internal/session"
)

const CookieName = "cookie"

// Cookie logs users in with a server-side session and a session cookie.
type Cookie struct {
	store   session.Store
	ttl     time.Duration
	options session.CookieOptions
	now     func() time.Time
}

func NewCookie(store session.Store, ttl time.Duration, opts session.CookieOptions) *Cookie {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cookie{store: store, ttl: ttl, options: opts, now: time.Now}
}

func (c *Cookie) Name() string { return CookieName }

func (c *Cookie) LoginResponse(ctx context.Context, user *auth.User) (*Response, error) {
	id, err := session.GenerateID()
	if err != nil {
		return nil, err
	}

	now := c.now()
	sess := session.Session{
		SessionID: id,
		UserID:    user.ID.String(),
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	if err := c.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("backend: create session: %w", err)
	}

	return &Response{
		Status:  http.StatusNoContent,
		Cookies: []*http.Cookie{session.NewCookie(id, sess.ExpiresAt, c.options)},
	}, nil
}

func (c *Cookie) Authenticate(r *http.Request) (string, error) {
	id, ok := session.IDFromRequest(r)
	if !ok {
		return "", ErrUnauthenticated
	}

	sess, err := c.store.Get(r.Context(), id)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", ErrUnauthenticated
	}
	if sess.Expired(c.now()) {
		_ = c.store.Delete(r.Context(), id)
		return "", ErrUnauthenticated
	}
	return sess.UserID, nil
}

// Logout drops the session named by the request cookie, if any, and
// returns the cookie that clears it on the client.
func (c *Cookie) Logout(ctx context.Context, r *http.Request) (*http.Cookie, error) {
	if id, ok := session.IDFromRequest(r); ok {
		if err := c.store.Delete(ctx, id); err != nil {
			return nil, err
		}
	}
	return session.ClearCookie(c.options), nil
}
