package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/krau/skraper/common/cache"
	"github.com/krau/skraper/config"
	"github.com/krau/skraper/core"
	"github.com/krau/skraper/logger"
	"github.com/krau/skraper/pkg/fetch"
	"github.com/krau/skraper/pkg/ffmpeg"
	"github.com/krau/skraper/pkg/media"
	"github.com/krau/skraper/providers"
)

// App holds everything a command needs, built once from the config.
type App struct {
	Config   *config.Config
	Client   *fetch.HTTPClient
	Registry *providers.Registry
	Resolver *core.Resolver
	Runner   ffmpeg.Runner

	cache     *cache.Cache[media.Media]
	logCloser io.Closer
}

// Init loads the config, installs the root logger into the returned context
// and wires the registry, resolver and ffmpeg runner.
func Init(ctx context.Context, configFile string) (context.Context, *App, error) {
	if err := config.Init(ctx, configFile); err != nil {
		return ctx, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.C()

	l, closer, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return ctx, nil, err
	}
	ctx = log.WithContext(ctx, l)
	log.SetDefault(l)

	client, err := fetch.New(
		fetch.WithProxy(cfg.Fetch.Proxy),
		fetch.WithTimeout(cfg.Fetch.ConnectTimeoutDuration(), cfg.Fetch.TimeoutDuration()),
		fetch.WithRetry(cfg.Fetch.Retry),
	)
	if err != nil {
		closer.Close()
		return ctx, nil, fmt.Errorf("failed to create http client: %w", err)
	}

	reg, err := providers.Load(ctx, client, cfg)
	if err != nil {
		closer.Close()
		return ctx, nil, err
	}

	resolveCache, err := cache.New[media.Media](cache.Config{
		NumCounters: cfg.Cache.NumCounters,
		MaxCost:     cfg.Cache.MaxCost,
		TTL:         cfg.Cache.TTLDuration(),
	})
	if err != nil {
		closer.Close()
		return ctx, nil, err
	}

	app := &App{
		Config:    cfg,
		Client:    client,
		Registry:  reg,
		Resolver:  core.NewResolver(reg, core.WithMaxHops(cfg.Resolve.MaxHops), core.WithCache(resolveCache)),
		Runner:    ffmpeg.NewCLI(cfg.Download.FFmpeg),
		cache:     resolveCache,
		logCloser: closer,
	}
	l.Debug("Initialized", "providers", len(reg.Available()), "proxy", cfg.Fetch.Proxy != "")
	return ctx, app, nil
}

// Downloader checks ffmpeg once and returns a downloader sharing the app's
// resolver and client.
func (a *App) Downloader(ctx context.Context, opts ...core.DownloaderOption) *core.Downloader {
	opts = append([]core.DownloaderOption{core.WithToolTimeout(a.Config.Download.ToolTimeoutDuration())}, opts...)
	d := core.NewDownloader(a.Resolver, a.Client, a.Runner, opts...)
	d.CheckTools(ctx)
	return d
}

func (a *App) Close() {
	a.cache.Close()
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}
