package app

import (
	"context"

	"federation-service/internal/auth/provider"
	"federation-service/internal/auth/provider/github"
	"federation-service/internal/auth/provider/google"
	"federation-service/internal/auth/provider/keycloak"
	"federation-service/internal/config"
)

// providerSetup is one configured provider and its fixed redirect URL.
type providerSetup struct {
	provider    provider.OAuthProvider
	redirectURL string
}

func setupProviders(ctx context.Context, cfg config.Config) (*provider.Registry, map[string]string, error) {
	var setups []providerSetup

	if cfg.GoogleEnabled() {
		p, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.GoogleScopes)
		if err != nil {
			return nil, nil, err
		}
		setups = append(setups, providerSetup{p, cfg.GoogleRedirectURL})
	}

	if cfg.KeycloakEnabled() {
		p, err := keycloak.New(
			ctx,
			cfg.KeycloakIssuer,
			cfg.KeycloakClientID,
			cfg.KeycloakClientSecret,
			cfg.KeycloakRedirectURL,
			cfg.KeycloakPublicBaseURL,
		)
		if err != nil {
			return nil, nil, err
		}
		setups = append(setups, providerSetup{p, cfg.KeycloakRedirectURL})
	}

	if cfg.GitHubEnabled() {
		p, err := github.New(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURL)
		if err != nil {
			return nil, nil, err
		}
		setups = append(setups, providerSetup{p, cfg.GitHubRedirectURL})
	}

	list := make([]provider.OAuthProvider, 0, len(setups))
	redirects := make(map[string]string, len(setups))
	for _, s := range setups {
		list = append(list, s.provider)
		redirects[s.provider.Name()] = s.redirectURL
	}

	registry, err := provider.NewRegistry(list...)
	if err != nil {
		return nil, nil, err
	}
	return registry, redirects, nil
}
