package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"federation-service/internal/logger"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const defaultHTTPTimeout = 10 * time.Second

// OIDC implements OAuthProvider for any OpenID Connect issuer.
// It returns identity facts only; no user/session decisions are made here.
type OIDC struct {
	name        string
	provider    *oidc.Provider
	oauthConfig oauth2.Config
	verifier    *oidc.IDTokenVerifier
	httpClient  *http.Client
}

// OIDCConfig carries the client registration for an OIDC issuer.
type OIDCConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// AuthURL overrides the discovered authorization endpoint, for issuers
	// whose browser-facing host differs from the back-channel host.
	AuthURL string
}

// NewOIDC initializes a provider using issuer discovery.
func NewOIDC(ctx context.Context, name, issuer string, cfg OIDCConfig) (*OIDC, error) {
	if name == "" || issuer == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("%s oauth config missing required fields", name)
	}

	httpClient := &http.Client{Timeout: defaultHTTPTimeout}

	oidcProvider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init %s oidc provider: %w", name, err)
	}

	ep := oidcProvider.Endpoint()
	if cfg.AuthURL != "" {
		ep.AuthURL = cfg.AuthURL
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}

	return &OIDC{
		name:     name,
		provider: oidcProvider,
		oauthConfig: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     ep,
			Scopes:       scopes,
		},
		verifier:   oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		httpClient: httpClient,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *OIDC) Name() string {
	return p.name
}

func (p *OIDC) AuthorizationURL(
	_ context.Context,
	redirectURL string,
	state string,
	scopes []string,
) (string, error) {
	cfg := p.config(redirectURL)
	if len(scopes) > 0 {
		cfg.Scopes = scopes
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

func (p *OIDC) AccessToken(
	ctx context.Context,
	code string,
	redirectURL string,
) (*oauth2.Token, error) {
	cfg := p.config(redirectURL)
	token, err := cfg.Exchange(oidc.ClientContext(ctx, p.httpClient), code)
	if err != nil {
		return nil, fmt.Errorf("%s token exchange failed: %w", p.name, err)
	}
	return token, nil
}

// IDEmail verifies the id_token when the provider returned one and
// falls back to the userinfo endpoint otherwise.
func (p *OIDC) IDEmail(
	ctx context.Context,
	token *oauth2.Token,
) (string, string, error) {
	ctx = oidc.ClientContext(ctx, p.httpClient)

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
	}

	if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
		idToken, err := p.verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return "", "", fmt.Errorf("%s id_token verification failed: %w", p.name, err)
		}
		if err := idToken.Claims(&claims); err != nil {
			return "", "", fmt.Errorf("%s id_token claims parse failed: %w", p.name, err)
		}
	}

	if claims.Subject == "" || claims.Email == "" {
		info, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
		if err != nil {
			return "", "", fmt.Errorf("%s userinfo request failed: %w", p.name, err)
		}
		if claims.Subject == "" {
			claims.Subject = info.Subject
		}
		if claims.Email == "" {
			claims.Email = info.Email
		}
	}

	if claims.Subject == "" || claims.Email == "" {
		return "", "", errors.New(p.name + " returned no subject or email")
	}

	logger.Debug("oidc identity resolved", map[string]any{
		"provider": p.name,
	})

	return claims.Subject, claims.Email, nil
}

func (p *OIDC) config(redirectURL string) oauth2.Config {
	cfg := p.oauthConfig
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return cfg
}
