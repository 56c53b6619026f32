// Package backend holds the authentication backends a completed OAuth flow
// can log a user in with. A backend turns a user into a login response and
// authenticates later requests carrying what it issued.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"federation-service/internal/auth"
)

// ErrUnauthenticated means the request carries no valid credential for
// the backend.
var ErrUnauthenticated = errors.New("unauthenticated")

// Response is written to the client as is. The flow never inspects it.
type Response struct {
	Status  int
	Body    any
	Cookies []*http.Cookie
}

type Backend interface {
	Name() string
	LoginResponse(ctx context.Context, user *auth.User) (*Response, error)
	Authenticate(r *http.Request) (userID string, err error)
}

// Set is an immutable name-to-backend lookup.
type Set struct {
	byName map[string]Backend
}

func NewSet(backends ...Backend) (*Set, error) {
	if len(backends) == 0 {
		return nil, errors.New("backend: at least one backend is required")
	}
	s := &Set{byName: make(map[string]Backend, len(backends))}
	for _, b := range backends {
		if _, dup := s.byName[b.Name()]; dup {
			return nil, fmt.Errorf("backend: duplicate name %q", b.Name())
		}
		s.byName[b.Name()] = b
	}
	return s, nil
}

// Get fails closed: unknown names wrap auth.ErrUnknownBackend.
func (s *Set) Get(name string) (Backend, error) {
	b, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", auth.ErrUnknownBackend, name)
	}
	return b, nil
}

// All returns the backends ordered by name.
func (s *Set) All() []Backend {
	out := make([]Backend, 0, len(s.byName))
	for _, b := range s.byName {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
