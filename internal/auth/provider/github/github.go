package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	githubendpoint "golang.org/x/oauth2/github"
)

const (
	providerName   = "github"
	defaultAPIBase = "https://api.github.com"
)

// Provider implements plain OAuth2 against GitHub. GitHub issues no
// id_token and may hide the account email, so IDEmail falls back to
// the emails API.
type Provider struct {
	oauthConfig oauth2.Config
	apiBase     string
	httpClient  *http.Client
}

type Option func(*Provider)

// WithEndpoints points the provider at a different GitHub deployment.
func WithEndpoints(authURL, tokenURL, apiBase string) Option {
	return func(p *Provider) {
		p.oauthConfig.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
		p.apiBase = apiBase
	}
}

func New(clientID, clientSecret, redirectURL string, opts ...Option) (*Provider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("github oauth config missing required fields")
	}

	p := &Provider{
		oauthConfig: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     githubendpoint.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) AuthorizationURL(
	_ context.Context,
	redirectURL string,
	state string,
	scopes []string,
) (string, error) {
	cfg := p.config(redirectURL)
	if len(scopes) > 0 {
		cfg.Scopes = scopes
	}
	return cfg.AuthCodeURL(state), nil
}

func (p *Provider) AccessToken(
	ctx context.Context,
	code string,
	redirectURL string,
) (*oauth2.Token, error) {
	cfg := p.config(redirectURL)
	token, err := cfg.Exchange(p.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("github token exchange failed: %w", err)
	}
	return token, nil
}

type githubUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *Provider) IDEmail(
	ctx context.Context,
	token *oauth2.Token,
) (string, string, error) {
	client := p.oauthConfig.Client(p.clientContext(ctx), token)

	var user githubUser
	if err := getJSON(ctx, client, p.apiBase+"/user", &user); err != nil {
		return "", "", err
	}
	if user.ID == 0 {
		return "", "", errors.New("github user response missing id")
	}

	email := user.Email
	if email == "" {
		var emails []githubEmail
		if err := getJSON(ctx, client, p.apiBase+"/user/emails", &emails); err != nil {
			return "", "", err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}
	if email == "" {
		return "", "", errors.New("github account has no verified primary email")
	}

	return strconv.FormatInt(user.ID, 10), email, nil
}

func (p *Provider) config(redirectURL string) oauth2.Config {
	cfg := p.oauthConfig
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return cfg
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("github: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github: request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github: %s returned status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("github: decode %s: %w", url, err)
	}
	return nil
}
