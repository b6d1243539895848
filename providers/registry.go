package providers

import (
	"errors"
	"slices"

	"github.com/krau/skraper/pkg/fetch"
	"github.com/krau/skraper/pkg/provider"
)

var ErrProviderNotFound = errors.New("provider not found")

// Registry is an immutable, ordered set of providers sharing one fetch
// client. The With* methods return a new Registry.
type Registry struct {
	client    fetch.Client
	providers []provider.Provider
}

func New(client fetch.Client, ps ...provider.Provider) *Registry {
	return &Registry{
		client:    client,
		providers: slices.Clone(ps),
	}
}

// Available returns the providers in registration order.
func (r *Registry) Available() []provider.Provider {
	return slices.Clone(r.providers)
}

func (r *Registry) Client() fetch.Client {
	return r.client
}

func (r *Registry) Get(name string) (provider.Provider, error) {
	for _, p := range r.providers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, ErrProviderNotFound
}

// FindSuitable returns the first provider supporting rawURL, or nil.
func (r *Registry) FindSuitable(rawURL string) provider.Provider {
	for _, p := range r.providers {
		if p.Supports(rawURL) {
			return p
		}
	}
	return nil
}

func (r *Registry) WithProviders(ps ...provider.Provider) *Registry {
	return New(r.client, ps...)
}

func (r *Registry) WithClient(client fetch.Client) *Registry {
	return New(client, r.providers...)
}
