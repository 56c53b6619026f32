package keycloak

import (
	"context"
	"errors"
	"strings"

	"federation-service/internal/auth/provider"
)

const providerName = "keycloak"

// New initializes a Keycloak OIDC provider using discovery.
// issuer must be the realm issuer URL, e.g.
// http://localhost:8081/realms/federation
//
// publicBaseURL, when set, replaces the host of the authorization endpoint
// so browsers are sent to the public address while back-channel calls
// keep using the issuer host.
func New(
	ctx context.Context,
	issuer string,
	clientID string,
	clientSecret string,
	redirectURL string,
	publicBaseURL string,
) (*provider.OIDC, error) {

	if issuer == "" || clientID == "" {
		return nil, errors.New("keycloak oauth config missing required fields")
	}

	var authURL string
	if publicBaseURL != "" {
		authURL = strings.TrimSuffix(publicBaseURL, "/") + realmPath(issuer) + "/protocol/openid-connect/auth"
	}

	return provider.NewOIDC(ctx, providerName, issuer, provider.OIDCConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		AuthURL:      authURL,
	})
}

// realmPath returns the "/realms/<name>" suffix of an issuer URL.
func realmPath(issuer string) string {
	i := strings.Index(issuer, "/realms/")
	if i < 0 {
		return ""
	}
	return strings.TrimSuffix(issuer[i:], "/")
}
