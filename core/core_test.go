package core

import (
	"context"
	"sync"
	"time"

	"github.com/krau/skraper/pkg/media"
	"github.com/krau/skraper/pkg/provider"
	"github.com/krau/skraper/providers"
)

type mockProvider struct {
	name    string
	hosts   []string
	resolve func(m media.Media) media.Media

	mu    sync.Mutex
	calls int
}

func (p *mockProvider) Name() string    { return p.name }
func (p *mockProvider) BaseURL() string { return "https://" + p.hosts[0] }
func (p *mockProvider) Supports(rawURL string) bool {
	return provider.MatchHost(rawURL, p.hosts...)
}

func (p *mockProvider) Resolve(_ context.Context, m media.Media) media.Media {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.resolve(m)
}

func (p *mockProvider) GetPosts(context.Context, string, int) ([]media.Post, error) {
	return nil, provider.ErrNotSupported
}

func (p *mockProvider) GetPageInfo(context.Context, string) (*media.PageInfo, error) {
	return nil, provider.ErrNotSupported
}

func (p *mockProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newRegistry(ps ...provider.Provider) *providers.Registry {
	return providers.New(nil, ps...)
}

type runCall struct {
	args    []string
	timeout time.Duration
}

type fakeRunner struct {
	mu    sync.Mutex
	code  int
	err   error
	calls []runCall
}

func (r *fakeRunner) Run(_ context.Context, args []string, timeout time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, runCall{args: args, timeout: timeout})
	return r.code, r.err
}

func (r *fakeRunner) Calls() []runCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]runCall(nil), r.calls...)
}
