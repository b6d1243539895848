package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/krau/skraper/common/cache"
	"github.com/krau/skraper/pkg/media"
)

func TestResolveDirectURLIsIdempotent(t *testing.T) {
	p := &mockProvider{name: "cdn", hosts: []string{"cdn.example"}, resolve: func(m media.Media) media.Media {
		return m.WithURL("https://cdn.example/other.mp4")
	}}
	r := NewResolver(newRegistry(p))
	for _, m := range []media.Media{
		media.Video("https://cdn.example/video.mp4", media.WithDuration(time.Second)),
		media.Image("https://cdn.example/a/b.JPG?size=large"),
		media.Unknown("https://cdn.example/file.bin#x"),
	} {
		got, hops := r.ResolveHops(context.Background(), m)
		if got != m || hops != 0 {
			t.Errorf("ResolveHops(%s) = %v, %d", m, got, hops)
		}
	}
	if p.Calls() != 0 {
		t.Errorf("provider called %d times for direct urls", p.Calls())
	}
}

func TestResolveWithoutProvider(t *testing.T) {
	r := NewResolver(newRegistry())
	m := media.Video("https://unknown.example/post/1")
	if got, hops := r.ResolveHops(context.Background(), m); got != m || hops != 0 {
		t.Fatalf("got %v after %d hops", got, hops)
	}
}

func TestResolveFollowsProviders(t *testing.T) {
	a := &mockProvider{name: "a", hosts: []string{"provider-a.example"}, resolve: func(m media.Media) media.Media {
		return m.WithURL("https://provider-b.example/embed/1")
	}}
	b := &mockProvider{name: "b", hosts: []string{"provider-b.example"}, resolve: func(m media.Media) media.Media {
		return media.Video("https://cdn.example/1.mp4", media.WithAspectRatio(1.5))
	}}
	r := NewResolver(newRegistry(a, b))
	got, hops := r.ResolveHops(context.Background(), media.Video("https://www.provider-a.example/post/1"))
	if got.URL != "https://cdn.example/1.mp4" || got.AspectRatio != 1.5 {
		t.Fatalf("unexpected result %+v", got)
	}
	if hops != 2 {
		t.Errorf("hops = %d, want 2", hops)
	}
}

func TestResolveStopsWithoutProgress(t *testing.T) {
	p := &mockProvider{name: "a", hosts: []string{"a.example"}, resolve: func(m media.Media) media.Media {
		return m.WithURL(m.URL)
	}}
	r := NewResolver(newRegistry(p))
	m := media.Image("https://a.example/page")
	if got, hops := r.ResolveHops(context.Background(), m); got.URL != m.URL || hops != 1 {
		t.Fatalf("got %v after %d hops", got, hops)
	}
}

func TestResolveCycleTerminates(t *testing.T) {
	n := 0
	next := func(host string) func(media.Media) media.Media {
		return func(m media.Media) media.Media {
			n++
			return m.WithURL(fmt.Sprintf("https://%s/page?n=%d", host, n))
		}
	}
	a := &mockProvider{name: "a", hosts: []string{"a.example"}, resolve: next("b.example")}
	b := &mockProvider{name: "b", hosts: []string{"b.example"}, resolve: next("a.example")}

	for _, limit := range []int{1, 3, DefaultMaxHops} {
		n = 0
		r := NewResolver(newRegistry(a, b), WithMaxHops(limit))
		got, hops := r.ResolveHops(context.Background(), media.Video("https://a.example/start"))
		if hops != limit {
			t.Errorf("limit %d: hops = %d", limit, hops)
		}
		if got.URL == "https://a.example/start" {
			t.Errorf("limit %d: expected the last resolved value, got the input", limit)
		}
	}
}

func TestResolveInvalidResultIsNoProgress(t *testing.T) {
	p := &mockProvider{name: "a", hosts: []string{"a.example"}, resolve: func(m media.Media) media.Media {
		return media.Media{Kind: media.KindVideo}
	}}
	r := NewResolver(newRegistry(p))
	m := media.Video("https://a.example/post")
	if got := r.Resolve(context.Background(), m); got != m {
		t.Fatalf("got %+v", got)
	}
}

func TestResolveCancelled(t *testing.T) {
	p := &mockProvider{name: "a", hosts: []string{"a.example"}, resolve: func(m media.Media) media.Media {
		return m.WithURL("https://cdn.example/x.mp4")
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := media.Video("https://a.example/post")
	got, hops := NewResolver(newRegistry(p)).ResolveHops(ctx, m)
	if got != m || hops != 0 || p.Calls() != 0 {
		t.Fatalf("cancelled resolve made progress: %v %d", got, hops)
	}
}

func TestResolveCache(t *testing.T) {
	c, err := cache.New[media.Media](cache.Config{TTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	p := &mockProvider{name: "a", hosts: []string{"a.example"}, resolve: func(m media.Media) media.Media {
		return m.WithURL("https://cdn.example/x.mp4")
	}}
	r := NewResolver(newRegistry(p), WithCache(c))
	m := media.Video("https://a.example/post")
	first := r.Resolve(context.Background(), m)
	second := r.Resolve(context.Background(), m)
	if first != second || second.URL != "https://cdn.example/x.mp4" {
		t.Fatalf("unexpected results %v %v", first, second)
	}
	if p.Calls() != 1 {
		t.Errorf("provider called %d times, want 1", p.Calls())
	}
	// the kind is part of the key
	r.Resolve(context.Background(), media.Image("https://a.example/post"))
	if p.Calls() != 2 {
		t.Errorf("provider called %d times, want 2", p.Calls())
	}
}
