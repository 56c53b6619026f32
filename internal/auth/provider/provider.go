package provider

import (
	"context"

	"golang.org/x/oauth2"
)

// OAuthProvider defines the contract every external auth provider
// must implement. Implementations speak the provider protocol only and
// must not perform user creation, linking, or session management.
type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "google", "github").
	Name() string

	// AuthorizationURL returns the URL the user agent is sent to.
	// Empty scopes mean the provider defaults.
	AuthorizationURL(
		ctx context.Context,
		redirectURL string,
		state string,
		scopes []string,
	) (string, error)

	// AccessToken exchanges a single-use authorization code.
	AccessToken(
		ctx context.Context,
		code string,
		redirectURL string,
	) (*oauth2.Token, error)

	// IDEmail returns the provider-scoped account id and email
	// for the given token.
	IDEmail(
		ctx context.Context,
		token *oauth2.Token,
	) (id string, email string, err error)
}
