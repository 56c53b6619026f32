package google

import (
	"context"
	"errors"

	"federation-service/internal/auth/provider"
)

const (
	providerName = "google"
	issuer       = "https://accounts.google.com"
)

// New initializes the Google provider through OIDC discovery.
func New(
	ctx context.Context,
	clientID string,
	clientSecret string,
	redirectURL string,
	scopes []string,
) (*provider.OIDC, error) {

	if clientID == "" || clientSecret == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	return provider.NewOIDC(ctx, providerName, issuer, provider.OIDCConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
	})
}
