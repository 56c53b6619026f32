package store

import (
	"context"
	"errors"

	"federation-service/internal/auth"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateOAuthAccount means the (provider, account id) pair is
	// already bound to a different user.
	ErrDuplicateOAuthAccount = errors.New("oauth account already linked to another user")

	// ErrDuplicateEmail means another user already holds the email.
	ErrDuplicateEmail = errors.New("email already registered")

	ErrUserNotFound = errors.New("user not found")
)

// UserStore persists users together with their OAuth accounts.
// Lookups return (nil, nil) when nothing matches. Create and Update are
// each all-or-nothing, and implementations must enforce global uniqueness
// of both the email and every (provider, account id) pair.
type UserStore interface {
	Get(ctx context.Context, id uuid.UUID) (*auth.User, error)
	GetByEmail(ctx context.Context, email string) (*auth.User, error)
	GetByOAuthAccount(ctx context.Context, oauthName, accountID string) (*auth.User, error)
	Create(ctx context.Context, user *auth.User) error
	Update(ctx context.Context, user *auth.User) error
}

// IsConflict reports whether err is a uniqueness violation that a
// concurrent writer may have caused.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateOAuthAccount) || errors.Is(err, ErrDuplicateEmail)
}
