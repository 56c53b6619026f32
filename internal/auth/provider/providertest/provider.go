// Package providertest provides a scriptable OAuthProvider for tests.
package providertest

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// Provider is an in-memory OAuthProvider. Codes map to tokens and access
// tokens map to identities; everything else is a provider failure.
type Provider struct {
	ProviderName string
	AuthURL      string

	mu         sync.Mutex
	tokens     map[string]*oauth2.Token
	identities map[string]Identity

	// Err, when set, fails every provider call.
	Err error

	Calls struct {
		AuthorizationURL int
		AccessToken      int
		IDEmail          int
	}
	LastRedirectURL string
}

type Identity struct {
	ID    string
	Email string
}

func New(name string) *Provider {
	return &Provider{
		ProviderName: name,
		AuthURL:      "https://idp.example.com/authorize",
		tokens:       make(map[string]*oauth2.Token),
		identities:   make(map[string]Identity),
	}
}

// AddCode makes code exchangeable for token.
func (p *Provider) AddCode(code string, token *oauth2.Token) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[code] = token
}

// AddIdentity makes accessToken resolve to the given account.
func (p *Provider) AddIdentity(accessToken, id, email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identities[accessToken] = Identity{ID: id, Email: email}
}

func (p *Provider) Name() string { return p.ProviderName }

func (p *Provider) AuthorizationURL(_ context.Context, redirectURL, state string, scopes []string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls.AuthorizationURL++
	if p.Err != nil {
		return "", p.Err
	}
	q := url.Values{}
	q.Set("redirect_uri", redirectURL)
	q.Set("state", state)
	if len(scopes) > 0 {
		q.Set("scope", strings.Join(scopes, " "))
	}
	return p.AuthURL + "?" + q.Encode(), nil
}

func (p *Provider) AccessToken(_ context.Context, code, redirectURL string) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls.AccessToken++
	p.LastRedirectURL = redirectURL
	if p.Err != nil {
		return nil, p.Err
	}
	token, ok := p.tokens[code]
	if !ok {
		return nil, errors.New("invalid_grant")
	}
	// codes are single use
	delete(p.tokens, code)
	return token, nil
}

func (p *Provider) IDEmail(_ context.Context, token *oauth2.Token) (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls.IDEmail++
	if p.Err != nil {
		return "", "", p.Err
	}
	ident, ok := p.identities[token.AccessToken]
	if !ok {
		return "", "", errors.New("unknown access token")
	}
	return ident.ID, ident.Email, nil
}
