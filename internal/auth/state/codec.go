// Package state signs and verifies the OAuth state token that carries the
// chosen authentication backend through the provider redirect.
package state

import (
	"errors"
	"fmt"
	"time"

	"federation-service/internal/auth"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Audience scopes state tokens so no other token signed with the same
	// secret verifies as one.
	Audience = "federation-service:oauth-state"

	DefaultLifetime = time.Hour
)

type claims struct {
	Backend string `json:"authentication_backend"`
	jwt.RegisteredClaims
}

// Codec is safe for concurrent use; it holds only immutable configuration.
type Codec struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

type Option func(*Codec)

func WithLifetime(d time.Duration) Option {
	return func(c *Codec) {
		if d > 0 {
			c.lifetime = d
		}
	}
}

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("state: secret is required")
	}
	c := &Codec{
		secret:   []byte(secret),
		lifetime: DefaultLifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue mints a state token naming the authentication backend.
func (c *Codec) Issue(backend string) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Backend: backend,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("state: sign: %w", err)
	}
	return signed, nil
}

// Verify checks signature, audience and expiry and returns the backend name.
// Every failure wraps auth.ErrInvalidState.
func (c *Codec) Verify(token string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	var cl claims
	_, err := parser.ParseWithClaims(token, &cl, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", auth.ErrInvalidState, err)
	}
	if cl.Backend == "" {
		return "", fmt.Errorf("%w: missing authentication backend", auth.ErrInvalidState)
	}
	return cl.Backend, nil
}
