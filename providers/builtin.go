package providers

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"

	"github.com/krau/skraper/config"
	"github.com/krau/skraper/pkg/fetch"
	"github.com/krau/skraper/pkg/provider"
	"github.com/krau/skraper/providers/js"
	"github.com/krau/skraper/providers/reddit"
	"github.com/krau/skraper/providers/telegram"
	"github.com/krau/skraper/providers/twitter"
	"github.com/krau/skraper/providers/youtube"
	"github.com/krau/skraper/providers/ytdlp"
)

// Builtin returns the native providers in lookup order, each configured
// from its [providers.<name>] table.
func Builtin(client fetch.Client, cfg *config.Config) ([]provider.Provider, error) {
	ps := []provider.Provider{
		reddit.New(client),
		twitter.New(client),
		youtube.New(client),
		telegram.New(client),
	}
	if cfg.Ytdlp.Enable {
		yp := ytdlp.New(cfg.Ytdlp.Hosts, cfg.Ytdlp.Format)
		if cfg.Fetch.Proxy != "" {
			yp.Configure(map[string]any{"proxy": cfg.Fetch.Proxy})
		}
		ps = append(ps, yp)
	}
	for _, p := range ps {
		cp, ok := p.(provider.ConfigurableProvider)
		if !ok {
			continue
		}
		if err := cp.Configure(cfg.GetProviderConfigByName(p.Name())); err != nil {
			return nil, fmt.Errorf("failed to configure provider %s: %w", p.Name(), err)
		}
	}
	return ps, nil
}

// Load builds the registry from the builtin providers followed by JS plugins.
// Plugin failures are logged and skipped.
func Load(ctx context.Context, client fetch.Client, cfg *config.Config) (*Registry, error) {
	logger := log.FromContext(ctx).WithPrefix("providers")
	ps, err := Builtin(client, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Providers.PluginEnable {
		var errs *multierror.Error
		for _, dir := range cfg.Providers.PluginDirs {
			plugins, err := js.LoadPlugins(ctx, client, dir)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", dir, err))
			}
			ps = appendUnique(logger, ps, plugins)
		}
		if err := errs.ErrorOrNil(); err != nil {
			logger.Warn("Some plugins failed to load", "error", err)
		}
	}
	return New(client, ps...), nil
}

// appendUnique skips plugins whose name is already taken.
func appendUnique(logger *log.Logger, ps []provider.Provider, plugins []provider.Provider) []provider.Provider {
	seen := make(map[string]struct{}, len(ps))
	for _, p := range ps {
		seen[p.Name()] = struct{}{}
	}
	for _, p := range plugins {
		if _, ok := seen[p.Name()]; ok {
			logger.Warn("Duplicate provider name, plugin skipped", "provider", p.Name())
			continue
		}
		seen[p.Name()] = struct{}{}
		ps = append(ps, p)
	}
	return ps
}
