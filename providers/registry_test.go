package providers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/krau/skraper/config"
	"github.com/krau/skraper/pkg/fetch/fetchtest"
	"github.com/krau/skraper/pkg/media"
	"github.com/krau/skraper/pkg/provider"
)

type stubProvider struct {
	name  string
	hosts []string
}

func (s stubProvider) Name() string    { return s.name }
func (s stubProvider) BaseURL() string { return "https://" + s.hosts[0] }
func (s stubProvider) Supports(rawURL string) bool {
	return provider.MatchHost(rawURL, s.hosts...)
}
func (s stubProvider) Resolve(_ context.Context, m media.Media) media.Media { return m }
func (s stubProvider) GetPosts(context.Context, string, int) ([]media.Post, error) {
	return nil, provider.ErrNotSupported
}
func (s stubProvider) GetPageInfo(context.Context, string) (*media.PageInfo, error) {
	return nil, provider.ErrNotSupported
}

func names(ps []provider.Provider) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name())
	}
	return out
}

func TestRegistry(t *testing.T) {
	first := stubProvider{name: "first", hosts: []string{"example.com"}}
	second := stubProvider{name: "second", hosts: []string{"example.com", "other.org"}}
	ps := []provider.Provider{first, second}
	reg := New(fetchtest.New(), ps...)

	ps[0] = second
	if got := reg.Available()[0].Name(); got != "first" {
		t.Fatalf("registry must copy its input, got %s first", got)
	}

	if p := reg.FindSuitable("https://sub.example.com/a"); p == nil || p.Name() != "first" {
		t.Errorf("expected first match, got %v", p)
	}
	if p := reg.FindSuitable("https://other.org/a"); p == nil || p.Name() != "second" {
		t.Errorf("expected second, got %v", p)
	}
	if p := reg.FindSuitable("https://nowhere.net"); p != nil {
		t.Errorf("expected nil, got %v", p.Name())
	}

	if _, err := reg.Get("missing"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}

	swapped := reg.WithProviders(second)
	if len(swapped.Available()) != 1 || len(reg.Available()) != 2 {
		t.Error("WithProviders must not modify the receiver")
	}
	client := fetchtest.New()
	if reg.WithClient(client).Client() != client || reg.Client() == client {
		t.Error("WithClient must return a new registry with the client")
	}
}

func testConfig() *config.Config {
	c := config.C()
	cp := *c
	return &cp
}

func TestBuiltinOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Ytdlp.Enable = false
	ps, err := Builtin(fetchtest.New(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"reddit", "twitter", "youtube", "telegram"}
	got := names(ps)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	cfg.Ytdlp.Enable = true
	cfg.Ytdlp.Hosts = []string{"vimeo.com"}
	ps, err = Builtin(fetchtest.New(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if last := ps[len(ps)-1]; last.Name() != "ytdlp" || !last.Supports("https://vimeo.com/1") {
		t.Errorf("expected ytdlp last, got %v", names(ps))
	}
}

func TestLoadWithPlugins(t *testing.T) {
	dir := t.TempDir()
	plugin := `registerProvider({
  metadata: { name: "example", version: "1.0.0" },
  hosts: ["example.com"],
  resolve: function (m) { return m; }
});`
	dup := `registerProvider({
  metadata: { name: "reddit", version: "1.0.0" },
  hosts: ["reddit.example"],
  resolve: function (m) { return m; }
});`
	for name, code := range map[string]string{"example.js": plugin, "dup.js": dup, "broken.js": "registerProvider("} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(code), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := testConfig()
	cfg.Ytdlp.Enable = false
	cfg.Providers.PluginEnable = true
	cfg.Providers.PluginDirs = []string{dir, filepath.Join(dir, "missing")}

	reg, err := Load(context.Background(), fetchtest.New(), cfg)
	if err != nil {
		t.Fatalf("plugin failures must not be fatal: %v", err)
	}
	got := names(reg.Available())
	if len(got) != 5 || got[4] != "example" {
		t.Fatalf("unexpected providers: %v", got)
	}
	if p := reg.FindSuitable("https://example.com/x"); p == nil || p.Name() != "example" {
		t.Error("plugin provider not found by host")
	}
}
