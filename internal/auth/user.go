package auth

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// User is a local account. OAuth accounts are keyed by provider and
// provider subject so refreshing one entry can never drop another.
type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	IsActive       bool
	IsVerified     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time

	accounts map[AccountKey]ExternalAccount
}

// NewUser returns an active user with a fresh id and the given accounts.
func NewUser(email, hashedPassword string, accounts ...ExternalAccount) *User {
	u := &User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: hashedPassword,
		IsActive:       true,
	}
	for _, a := range accounts {
		u.PutOAuthAccount(a)
	}
	return u
}

// PutOAuthAccount adds the account, replacing any entry with the same key.
// It reports whether an existing entry was replaced.
func (u *User) PutOAuthAccount(a ExternalAccount) bool {
	if u.accounts == nil {
		u.accounts = make(map[AccountKey]ExternalAccount)
	}
	_, replaced := u.accounts[a.Key()]
	u.accounts[a.Key()] = a
	return replaced
}

func (u *User) OAuthAccount(key AccountKey) (ExternalAccount, bool) {
	a, ok := u.accounts[key]
	return a, ok
}

// OAuthAccounts returns the linked accounts ordered by provider then subject.
func (u *User) OAuthAccounts() []ExternalAccount {
	out := make([]ExternalAccount, 0, len(u.accounts))
	for _, a := range u.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OAuthName != out[j].OAuthName {
			return out[i].OAuthName < out[j].OAuthName
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out
}

// Clone returns a deep copy; stores hand out clones so callers
// cannot mutate persisted state in place.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.accounts = nil
	for _, a := range u.accounts {
		c.PutOAuthAccount(a.clone())
	}
	return &c
}

func (a ExternalAccount) clone() ExternalAccount {
	if a.ExpiresAt != nil {
		t := *a.ExpiresAt
		a.ExpiresAt = &t
	}
	if a.Claims != nil {
		claims := make(map[string]any, len(a.Claims))
		for k, v := range a.Claims {
			claims[k] = v
		}
		a.Claims = claims
	}
	return a
}
