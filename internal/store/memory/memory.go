// Package memory is an in-process UserStore. It enforces the same
// uniqueness rules as the Postgres store and is used for tests and local runs.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"federation-service/internal/auth"
	"federation-service/internal/store"

	"github.com/google/uuid"
)

type Store struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*auth.User
	emails   map[string]uuid.UUID
	accounts map[auth.AccountKey]uuid.UUID
}

func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]*auth.User),
		emails:   make(map[string]uuid.UUID),
		accounts: make(map[auth.AccountKey]uuid.UUID),
	}
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id].Clone(), nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[normalize(email)]
	if !ok {
		return nil, nil
	}
	return s.users[id].Clone(), nil
}

func (s *Store) GetByOAuthAccount(_ context.Context, oauthName, accountID string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.accounts[auth.AccountKey{OAuthName: oauthName, AccountID: accountID}]
	if !ok {
		return nil, nil
	}
	return s.users[id].Clone(), nil
}

func (s *Store) Create(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[normalize(user.Email)]; taken {
		return store.ErrDuplicateEmail
	}
	if err := s.checkAccounts(user); err != nil {
		return err
	}

	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	s.put(user)
	return nil
}

func (s *Store) Update(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return store.ErrUserNotFound
	}
	if owner, taken := s.emails[normalize(user.Email)]; taken && owner != user.ID {
		return store.ErrDuplicateEmail
	}
	if err := s.checkAccounts(user); err != nil {
		return err
	}

	// Update never unlinks: stored accounts missing from user are kept.
	merged := user.Clone()
	for _, a := range existing.OAuthAccounts() {
		if _, ok := merged.OAuthAccount(a.Key()); !ok {
			merged.PutOAuthAccount(a)
		}
	}

	delete(s.emails, normalize(existing.Email))

	user.UpdatedAt = time.Now().UTC()
	merged.UpdatedAt = user.UpdatedAt
	s.put(merged)
	return nil
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *Store) checkAccounts(user *auth.User) error {
	for _, a := range user.OAuthAccounts() {
		if owner, taken := s.accounts[a.Key()]; taken && owner != user.ID {
			return store.ErrDuplicateOAuthAccount
		}
	}
	return nil
}

func (s *Store) put(user *auth.User) {
	c := user.Clone()
	s.users[c.ID] = c
	s.emails[normalize(c.Email)] = c.ID
	for _, a := range c.OAuthAccounts() {
		s.accounts[a.Key()] = c.ID
	}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
