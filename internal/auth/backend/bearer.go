package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"federation-service/internal/auth"

	"github.com/golang-jwt/jwt/v5"
)

const (
	BearerName = "jwt"

	// AccessAudience keeps access tokens and state tokens apart even
	// when both are signed with the same secret.
	AccessAudience = "federation-service:auth"
)

// Bearer issues HS256 access tokens and accepts them back in the
// Authorization header.
type Bearer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

type BearerOption func(*Bearer)

func WithBearerClock(now func() time.Time) BearerOption {
	return func(b *Bearer) { b.now = now }
}

func NewBearer(secret string, lifetime time.Duration, opts ...BearerOption) (*Bearer, error) {
	if secret == "" {
		return nil, errors.New("backend: jwt secret is required")
	}
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	b := &Bearer{secret: []byte(secret), lifetime: lifetime, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Bearer) Name() string { return BearerName }

func (b *Bearer) LoginResponse(_ context.Context, user *auth.User) (*Response, error) {
	now := b.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		Audience:  jwt.ClaimStrings{AccessAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(b.lifetime)),
	})
	signed, err := token.SignedString(b.secret)
	if err != nil {
		return nil, fmt.Errorf("backend: sign access token: %w", err)
	}

	return &Response{
		Status: http.StatusOK,
		Body: map[string]string{
			"access_token": signed,
			"token_type":   "bearer",
		},
	}, nil
}

func (b *Bearer) Authenticate(r *http.Request) (string, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return "", ErrUnauthenticated
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(AccessAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(b.now),
	)
	var claims jwt.RegisteredClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return "", ErrUnauthenticated
	}
	return claims.Subject, nil
}
