package identity

import (
	"context"
	"fmt"

	"federation-service/internal/auth"
	"federation-service/internal/auth/provider"
	"federation-service/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Resolver turns a provider token response into a normalized
// ExternalAccount. It performs no lookups against local users.
type Resolver struct {
	provider provider.OAuthProvider
}

func NewResolver(p provider.OAuthProvider) *Resolver {
	return &Resolver{provider: p}
}

// Resolve asks the provider who the token belongs to. Provider failures
// wrap auth.ErrProviderCommunication and are never retried: the code
// behind the token has already been spent.
func (r *Resolver) Resolve(ctx context.Context, token *oauth2.Token) (*auth.ExternalAccount, error) {
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s returned no access token", auth.ErrProviderCommunication, r.provider.Name())
	}

	id, email, err := r.provider.IDEmail(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrProviderCommunication, err)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: %s returned an empty account id", auth.ErrProviderCommunication, r.provider.Name())
	}
	// Users are joined by email, so an account without one cannot be linked.
	if email == "" {
		return nil, fmt.Errorf("%w: %s returned no email", auth.ErrProviderCommunication, r.provider.Name())
	}

	account := &auth.ExternalAccount{
		OAuthName:    r.provider.Name(),
		AccountID:    id,
		AccountEmail: email,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Claims:       r.claims(token),
	}
	if !token.Expiry.IsZero() {
		exp := token.Expiry
		account.ExpiresAt = &exp
	}

	return account, nil
}

// claims decodes the embedded id_token payload without verifying it.
// The payload is informational; a missing or garbled token yields an
// empty set.
func (r *Resolver) claims(token *oauth2.Token) map[string]any {
	out := map[string]any{}

	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return out
	}

	parsed := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, parsed); err != nil {
		logger.Debug("id_token claims not parseable", map[string]any{
			"provider": r.provider.Name(),
			"error":    err.Error(),
		})
		return out
	}

	for k, v := range parsed {
		out[k] = v
	}
	return out
}
