// Package linking decides which local user an external account belongs to
// and persists the result. It is the only place where identity-to-user
// mapping logic lives.
package linking

import (
	"context"
	"errors"
	"fmt"

	"federation-service/internal/auth"
	"federation-service/internal/auth/credentials"
	"federation-service/internal/logger"
	"federation-service/internal/store"
)

// Outcome names the branch that resolved the account.
type Outcome string

const (
	Refreshed  Outcome = "refreshed"  // existing link, credentials replaced
	Linked     Outcome = "linked"     // existing user found by email
	Registered Outcome = "registered" // new user created
)

// maxAttempts bounds retries after a concurrent writer won a uniqueness race.
const maxAttempts = 2

// AfterRegisterFunc runs once after a user is created. Its error is
// returned to the caller unchanged.
type AfterRegisterFunc func(ctx context.Context, user *auth.User) error

// afterRegisterError keeps hook failures out of the conflict retry.
type afterRegisterError struct{ err error }

func (e *afterRegisterError) Error() string { return e.err.Error() }

type Engine struct {
	users         store.UserStore
	hasher        credentials.Hasher
	afterRegister AfterRegisterFunc
}

type Option func(*Engine)

func WithAfterRegister(fn AfterRegisterFunc) Option {
	return func(e *Engine) { e.afterRegister = fn }
}

func WithHasher(h credentials.Hasher) Option {
	return func(e *Engine) { e.hasher = h }
}

func New(users store.UserStore, opts ...Option) *Engine {
	e := &Engine{
		users:  users,
		hasher: credentials.BcryptHasher{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Link reconciles account against storage and returns the owning user.
// Branches are tried in order: existing link, user with the same email,
// new user. Inactive users yield auth.ErrInactiveUser after the persist.
func (e *Engine) Link(ctx context.Context, account auth.ExternalAccount) (*auth.User, Outcome, error) {
	var (
		user    *auth.User
		outcome Outcome
		err     error
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		user, outcome, err = e.link(ctx, account)

		var hookErr *afterRegisterError
		if errors.As(err, &hookErr) {
			return nil, "", hookErr.err
		}
		if err == nil || !store.IsConflict(err) || attempt == maxAttempts {
			break
		}
		logger.Warn("oauth link lost a uniqueness race, retrying", map[string]any{
			"provider": account.OAuthName,
			"attempt":  attempt,
			"error":    err.Error(),
		})
	}
	if err != nil {
		return nil, "", err
	}

	if !user.IsActive {
		return nil, outcome, auth.ErrInactiveUser
	}

	return user, outcome, nil
}

func (e *Engine) link(ctx context.Context, account auth.ExternalAccount) (*auth.User, Outcome, error) {
	// 1. Existing link: refresh this account, keep every other one.
	user, err := e.users.GetByOAuthAccount(ctx, account.OAuthName, account.AccountID)
	if err != nil {
		return nil, "", fmt.Errorf("linking: lookup oauth account: %w", err)
	}
	if user != nil {
		user.PutOAuthAccount(account)
		if err := e.users.Update(ctx, user); err != nil {
			return nil, "", fmt.Errorf("linking: refresh oauth account: %w", err)
		}
		return user, Refreshed, nil
	}

	// 2. Local account with the same email: attach the new identity.
	if account.AccountEmail != "" {
		user, err = e.users.GetByEmail(ctx, account.AccountEmail)
		if err != nil {
			return nil, "", fmt.Errorf("linking: lookup email: %w", err)
		}
		if user != nil {
			user.PutOAuthAccount(account)
			if err := e.users.Update(ctx, user); err != nil {
				return nil, "", fmt.Errorf("linking: attach oauth account: %w", err)
			}
			return user, Linked, nil
		}
	}

	// 3. New user. The password is never used to sign in but the
	// column is required, so store the hash of a random one.
	password, err := credentials.GeneratePassword()
	if err != nil {
		return nil, "", err
	}
	hashed, err := e.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("linking: hash password: %w", err)
	}

	user = auth.NewUser(account.AccountEmail, hashed, account)
	if err := e.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("linking: create user: %w", err)
	}

	if e.afterRegister != nil {
		if err := e.afterRegister(ctx, user); err != nil {
			return nil, "", &afterRegisterError{err: err}
		}
	}

	return user, Registered, nil
}
