package cache

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/ristretto/v2"
)

type Config struct {
	NumCounters int64
	MaxCost     int64
	TTL         time.Duration
}

// Cache is a ristretto cache with a fixed TTL and unit cost per item.
type Cache[V any] struct {
	c   *ristretto.Cache[string, V]
	ttl time.Duration
}

func New[V any](cfg Config) (*Cache[V], error) {
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = 1e5
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = 1e4
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
		OnReject: func(item *ristretto.Item[V]) {
			log.Debug("Cache item rejected", "key", item.Key)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return &Cache[V]{c: c, ttl: cfg.TTL}, nil
}

func (c *Cache[V]) Set(key string, value V) error {
	if c == nil {
		return nil
	}
	ok := c.c.SetWithTTL(key, value, 1, c.ttl)
	if !ok {
		return fmt.Errorf("failed to set value in cache")
	}
	c.c.Wait()
	return nil
}

func (c *Cache[V]) Get(key string) (V, bool) {
	if c == nil {
		var zero V
		return zero, false
	}
	return c.c.Get(key)
}

func (c *Cache[V]) Close() {
	if c != nil {
		c.c.Close()
	}
}
