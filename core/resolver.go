package core

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/krau/skraper/common/cache"
	"github.com/krau/skraper/pkg/media"
	"github.com/krau/skraper/pkg/provider"
)

const DefaultMaxHops = 5

// ProviderFinder is satisfied by *providers.Registry.
type ProviderFinder interface {
	FindSuitable(rawURL string) provider.Provider
}

// Resolver follows provider hops until a media URL is direct, stops
// changing, or the hop ceiling is reached. It never fails.
type Resolver struct {
	finder  ProviderFinder
	maxHops int
	cache   *cache.Cache[media.Media]
}

type ResolverOption func(*Resolver)

func WithMaxHops(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.maxHops = n
		}
	}
}

// WithCache memoizes resolved media by kind and input URL.
func WithCache(c *cache.Cache[media.Media]) ResolverOption {
	return func(r *Resolver) {
		r.cache = c
	}
}

func NewResolver(finder ProviderFinder, opts ...ResolverOption) *Resolver {
	r := &Resolver{finder: finder, maxHops: DefaultMaxHops}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Resolve(ctx context.Context, m media.Media) media.Media {
	resolved, _ := r.ResolveHops(ctx, m)
	return resolved
}

func cacheKey(m media.Media) string {
	return m.Kind.String() + "|" + m.URL
}

// ResolveHops is Resolve that also reports how many provider hops were made.
func (r *Resolver) ResolveHops(ctx context.Context, m media.Media) (media.Media, int) {
	if media.IsDirect(m.URL) {
		return m, 0
	}
	if cached, ok := r.cache.Get(cacheKey(m)); ok {
		return cached, 0
	}
	logger := log.FromContext(ctx).WithPrefix("resolver")

	current := m
	hops := 0
	for !media.IsDirect(current.URL) {
		if err := ctx.Err(); err != nil {
			logger.Debug("Resolution cancelled", "url", current.URL, "hops", hops)
			return current, hops
		}
		if hops >= r.maxHops {
			logger.Warn("Hop limit reached, returning last resolved media", "url", m.URL, "last", current.URL, "max_hops", r.maxHops)
			break
		}
		p := r.finder.FindSuitable(current.URL)
		if p == nil {
			break
		}
		next := p.Resolve(ctx, current)
		hops++
		if err := next.Validate(); err != nil {
			logger.Warn("Provider returned invalid media", "provider", p.Name(), "url", current.URL, "error", err)
			break
		}
		logger.Debug("Resolved hop", "provider", p.Name(), "from", current.URL, "to", next.URL)
		if next.URL == current.URL {
			current = next
			break
		}
		current = next
	}

	if current.URL != m.URL {
		if err := r.cache.Set(cacheKey(m), current); err != nil {
			logger.Debug("Failed to cache resolved media", "url", m.URL, "error", err)
		}
	}
	return current, hops
}
