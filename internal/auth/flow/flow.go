// Package flow drives one provider's OAuth authorization-code flow: it
// starts the redirect and turns a callback into a logged-in local user.
package flow

import (
	"context"
	"errors"
	"fmt"

	"federation-service/internal/auth"
	"federation-service/internal/auth/backend"
	"federation-service/internal/auth/identity"
	"federation-service/internal/auth/linking"
	"federation-service/internal/auth/provider"
	"federation-service/internal/auth/state"
	"federation-service/internal/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const tracerName = "federation-service/internal/auth/flow"

// Flow is bound to a single provider. It is safe for concurrent use.
type Flow struct {
	provider    provider.OAuthProvider
	codec       *state.Codec
	resolver    *identity.Resolver
	linker      *linking.Engine
	backends    *backend.Set
	redirectURL string
	tracer      trace.Tracer
}

type Option func(*Flow)

// WithRedirectURL pins the redirect URL sent to the provider. Without it
// the callback URL supplied by the caller is used.
func WithRedirectURL(u string) Option {
	return func(f *Flow) { f.redirectURL = u }
}

// WithTracerProvider replaces the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Flow) { f.tracer = tp.Tracer(tracerName) }
}

func New(
	p provider.OAuthProvider,
	codec *state.Codec,
	linker *linking.Engine,
	backends *backend.Set,
	opts ...Option,
) *Flow {
	f := &Flow{
		provider: p,
		codec:    codec,
		resolver: identity.NewResolver(p),
		linker:   linker,
		backends: backends,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Flow) ProviderName() string { return f.provider.Name() }

// InitiateRequest starts a flow that will finish by logging in through
// Backend.
type InitiateRequest struct {
	Backend     string
	Scopes      []string
	CallbackURL string
}

// Initiate returns the provider authorization URL. The state token it
// embeds names the backend to finish with.
func (f *Flow) Initiate(ctx context.Context, req InitiateRequest) (u string, err error) {
	ctx, span := f.start(ctx, "oauth.initiate")
	defer func() { finish(span, err) }()
	span.SetAttributes(attribute.String("oauth.backend", req.Backend))

	if _, err := f.backends.Get(req.Backend); err != nil {
		return "", err
	}

	token, err := f.codec.Issue(req.Backend)
	if err != nil {
		return "", err
	}

	u, err = f.provider.AuthorizationURL(ctx, f.redirect(req.CallbackURL), token, req.Scopes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", auth.ErrProviderCommunication, err)
	}
	return u, nil
}

// Complete finishes a flow whose code was already exchanged upstream, for
// callers such as a gateway that performs the token exchange itself.
func (f *Flow) Complete(ctx context.Context, token *oauth2.Token, stateToken string) (resp *backend.Response, err error) {
	ctx, span := f.start(ctx, "oauth.complete")
	defer func() { finish(span, err) }()

	b, err := f.backendFromState(stateToken)
	if err != nil {
		return nil, err
	}
	return f.login(ctx, b, token)
}

// CompleteCode verifies the state, exchanges code and finishes the flow.
func (f *Flow) CompleteCode(ctx context.Context, code, stateToken, callbackURL string) (resp *backend.Response, err error) {
	ctx, span := f.start(ctx, "oauth.complete_code")
	defer func() { finish(span, err) }()

	b, err := f.backendFromState(stateToken)
	if err != nil {
		return nil, err
	}
	token, err := f.exchange(ctx, code, callbackURL)
	if err != nil {
		return nil, err
	}
	return f.login(ctx, b, token)
}

// ExchangeCode serves clients that ran the redirect themselves and post
// back only the code. A state token is minted locally so the completion
// path is the same as for redirect callbacks.
func (f *Flow) ExchangeCode(ctx context.Context, code, backendName, callbackURL string) (*backend.Response, error) {
	if _, err := f.backends.Get(backendName); err != nil {
		return nil, err
	}
	stateToken, err := f.codec.Issue(backendName)
	if err != nil {
		return nil, err
	}
	return f.CompleteCode(ctx, code, stateToken, callbackURL)
}

func (f *Flow) backendFromState(stateToken string) (backend.Backend, error) {
	name, err := f.codec.Verify(stateToken)
	if err != nil {
		return nil, err
	}
	return f.backends.Get(name)
}

func (f *Flow) exchange(ctx context.Context, code, callbackURL string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", auth.ErrProviderCommunication)
	}
	token, err := f.provider.AccessToken(ctx, code, f.redirect(callbackURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrProviderCommunication, err)
	}
	return token, nil
}

func (f *Flow) login(ctx context.Context, b backend.Backend, token *oauth2.Token) (*backend.Response, error) {
	account, err := f.resolver.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("oauth.backend", b.Name()))

	user, outcome, err := f.linker.Link(ctx, *account)
	span.SetAttributes(attribute.String("oauth.branch", string(outcome)))
	if errors.Is(err, auth.ErrInactiveUser) {
		logger.Warn("oauth login rejected for inactive user", map[string]any{
			"provider": account.OAuthName,
			"branch":   string(outcome),
		})
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	// The user is persisted; a client disconnect must not leave it
	// without a session.
	ctx = context.WithoutCancel(ctx)

	resp, err := b.LoginResponse(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("flow: login response: %w", err)
	}

	logger.Info("oauth login", map[string]any{
		"provider": account.OAuthName,
		"backend":  b.Name(),
		"branch":   string(outcome),
		"user_id":  user.ID.String(),
	})
	return resp, nil
}

func (f *Flow) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return f.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("oauth.provider", f.provider.Name()),
	))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (f *Flow) redirect(callbackURL string) string {
	if f.redirectURL != "" {
		return f.redirectURL
	}
	return callbackURL
}
