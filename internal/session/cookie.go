package session

import (
	"net/http"
	"time"
)

// CookieName uses the __Host- prefix, so the cookie must be Secure,
// host-only and scoped to "/".
const CookieName = "__Host-session"

type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
}

func (o CookieOptions) sameSite() http.SameSite {
	if o.SameSite == 0 {
		return http.SameSiteLaxMode
	}
	return o.SameSite
}

// NewCookie builds the cookie carrying sessionID until expiresAt.
func NewCookie(sessionID string, expiresAt time.Time, opts CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.sameSite(),
	}
}

// ClearCookie builds a cookie that removes the session cookie.
func ClearCookie(opts CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.sameSite(),
	}
}

// IDFromRequest returns the session id carried by r, if any.
func IDFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
