package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c, err := New[string](Config{TTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if err := c.Set("video|https://a.example/1", "https://cdn.example/1.mp4"); err != nil {
		t.Fatal(err)
	}
	v, ok := c.Get("video|https://a.example/1")
	if !ok || v != "https://cdn.example/1.mp4" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("unexpected hit")
	}
}

func TestNilCache(t *testing.T) {
	var c *Cache[int]
	if err := c.Set("k", 1); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("nil cache must miss")
	}
	c.Close()
}
