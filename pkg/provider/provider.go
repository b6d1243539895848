package provider

import (
	"context"
	"errors"

	"github.com/krau/skraper/pkg/media"
)

// DefaultPostsLimit is used when GetPosts is called with a non-positive limit.
const DefaultPostsLimit = 50

// Provider encapsulates one site's scraping and media resolution.
//
// Resolve performs a single hop and never fails: when it cannot improve the
// reference it returns the input unchanged. Implementations must be safe
// for concurrent use.
type Provider interface {
	Name() string
	BaseURL() string
	Supports(rawURL string) bool
	Resolve(ctx context.Context, m media.Media) media.Media
	GetPosts(ctx context.Context, path string, limit int) ([]media.Post, error)
	GetPageInfo(ctx context.Context, path string) (*media.PageInfo, error)
}

// ConfigurableProvider receives its [providers.<name>] config table once,
// before first use.
type ConfigurableProvider interface {
	Provider
	Configure(cfg map[string]any) error
}

var (
	ErrNotSupported = errors.New("operation not supported by provider")
	ErrNotFound     = errors.New("page not found")
)

func Limit(limit int) int {
	if limit <= 0 {
		return DefaultPostsLimit
	}
	return limit
}
