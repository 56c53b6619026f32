package provider

import (
	"fmt"
	"sort"
)

// Registry holds all configured OAuth providers and allows
// lookup by provider name. It performs no auth logic itself.
type Registry struct {
	providers map[string]OAuthProvider
}

// NewRegistry registers the given OAuth providers by name.
// Provider names must be unique.
func NewRegistry(list ...OAuthProvider) (*Registry, error) {
	m := make(map[string]OAuthProvider, len(list))
	for _, p := range list {
		if _, dup := m[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate oauth provider: %s", p.Name())
		}
		m[p.Name()] = p
	}
	return &Registry{providers: m}, nil
}

// Get returns the OAuth provider by name or an error if not registered.
func (r *Registry) Get(name string) (OAuthProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown oauth provider: %s", name)
	}
	return p, nil
}

// All returns the providers sorted by name.
func (r *Registry) All() []OAuthProvider {
	out := make([]OAuthProvider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
