package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/xid"

	"github.com/krau/skraper/common/utils/fsutil"
	"github.com/krau/skraper/common/utils/ioutil"
	"github.com/krau/skraper/pkg/fetch"
	"github.com/krau/skraper/pkg/ffmpeg"
	"github.com/krau/skraper/pkg/media"
)

const DefaultToolTimeout = 10 * time.Minute

var ErrDestinationBusy = errors.New("destination is already being downloaded")

// MediaResolver is satisfied by *Resolver.
type MediaResolver interface {
	Resolve(ctx context.Context, m media.Media) media.Media
}

type DownloadInfo struct {
	// resolved url
	URL  string
	Path string
	// -1 when unknown
	Total int64
}

// ProgressTracker observes direct downloads. Transcodes only report start
// and done.
type ProgressTracker interface {
	OnStart(ctx context.Context, info DownloadInfo)
	OnProgress(ctx context.Context, info DownloadInfo, downloaded int64)
	OnDone(ctx context.Context, info DownloadInfo, err error)
}

type Downloader struct {
	resolver    MediaResolver
	client      fetch.Client
	runner      ffmpeg.Runner
	toolTimeout time.Duration
	progress    ProgressTracker

	processingMu sync.Mutex
	processing   map[string]struct{}
}

type DownloaderOption func(*Downloader)

func WithToolTimeout(d time.Duration) DownloaderOption {
	return func(dl *Downloader) {
		if d > 0 {
			dl.toolTimeout = d
		}
	}
}

func WithProgress(p ProgressTracker) DownloaderOption {
	return func(dl *Downloader) {
		dl.progress = p
	}
}

func NewDownloader(resolver MediaResolver, client fetch.Client, runner ffmpeg.Runner, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		resolver:    resolver,
		client:      client,
		runner:      runner,
		toolTimeout: DefaultToolTimeout,
		processing:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CheckTools warns when the transcode tool is not usable. Direct downloads
// keep working either way.
func (d *Downloader) CheckTools(ctx context.Context) {
	checker, ok := d.runner.(interface{ Check(context.Context) error })
	if !ok {
		return
	}
	if err := checker.Check(ctx); err != nil {
		log.FromContext(ctx).Warn("ffmpeg is not available, m3u8 and webm downloads will fail", "error", err)
	}
}

func (d *Downloader) acquire(dest string) bool {
	d.processingMu.Lock()
	defer d.processingMu.Unlock()
	if _, ok := d.processing[dest]; ok {
		return false
	}
	d.processing[dest] = struct{}{}
	return true
}

func (d *Downloader) release(dest string) {
	d.processingMu.Lock()
	delete(d.processing, dest)
	d.processingMu.Unlock()
}

// fileBase picks the name without extension: filename, else the input URL's
// base name, else the resolved URL's, else a fresh xid.
func fileBase(filename string, original, resolved string) string {
	for _, candidate := range []string{filename, media.BaseName(original), media.BaseName(resolved)} {
		if name := fsutil.NormalizePathname(candidate); name != "" {
			return name
		}
	}
	return xid.New().String()
}

// Download resolves m and writes it to destDir/filename.<ext>, returning the
// written path. For m3u8 and webm the file is produced by ffmpeg as .mp4;
// when ffmpeg fails that path is still returned together with the error.
func (d *Downloader) Download(ctx context.Context, m media.Media, destDir, filename string) (string, error) {
	logger := log.FromContext(ctx).WithPrefix("download")
	resolved := d.resolver.Resolve(ctx, m)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := media.Extension(resolved.URL)
	if ext == "" {
		ext = resolved.Kind.DefaultExtension()
	}
	base := filepath.Join(destDir, fileBase(filename, m.URL, resolved.URL))
	if !d.acquire(base) {
		return "", fmt.Errorf("%w: %s", ErrDestinationBusy, base)
	}
	defer d.release(base)

	if err := os.MkdirAll(destDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create destination dir: %w", err)
	}

	logger.Debug("Downloading", "url", resolved.URL, "kind", resolved.Kind, "ext", ext)
	switch ext {
	case "m3u8":
		return d.transcode(ctx, resolved.URL, base+".mp4", ffmpeg.RemuxHLSArgs)
	case "webm":
		return d.transcode(ctx, resolved.URL, base+".mp4", ffmpeg.TranscodeWebMArgs)
	default:
		return d.copy(ctx, resolved.URL, base, ext)
	}
}

func (d *Downloader) transcode(ctx context.Context, url, out string, args func(in, out string) []string) (string, error) {
	info := DownloadInfo{URL: url, Path: out, Total: -1}
	if d.progress != nil {
		d.progress.OnStart(ctx, info)
	}
	code, err := d.runner.Run(ctx, args(url, out), d.toolTimeout)
	if err == nil && code != 0 {
		err = &ffmpeg.ExitError{Args: args(url, out), ExitCode: code}
	}
	if d.progress != nil {
		d.progress.OnDone(ctx, info, err)
	}
	if err != nil {
		log.FromContext(ctx).Error("ffmpeg failed", "url", url, "output", out, "error", err)
	}
	return out, err
}

func withExt(base, ext string) string {
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// copy streams url into base.ext through a .part file. Without an extension
// the content is sniffed to pick one.
func (d *Downloader) copy(ctx context.Context, url, base, ext string) (string, error) {
	logger := log.FromContext(ctx)
	dest := withExt(base, ext)
	partPath := dest + ".part"

	body, size, err := d.client.Open(ctx, fetch.Get(url))
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer body.Close()

	file, err := fsutil.CreateFile(partPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	info := DownloadInfo{URL: url, Path: dest, Total: size}
	if d.progress != nil {
		d.progress.OnStart(ctx, info)
	}
	var downloaded int64
	wr := ioutil.NewProgressWriter(file, func(n int) {
		downloaded += int64(n)
		if d.progress != nil {
			d.progress.OnProgress(ctx, info, downloaded)
		}
	})
	_, err = ioutil.CopyWithContext(ctx, wr, body)
	if err != nil {
		if rmErr := file.CloseAndRemove(); rmErr != nil {
			logger.Error("Failed to remove partial file", "path", partPath, "error", rmErr)
		}
		err = fmt.Errorf("failed to copy %s: %w", url, err)
		if d.progress != nil {
			d.progress.OnDone(ctx, info, err)
		}
		return "", err
	}
	if err := file.Close(); err != nil {
		file.Remove()
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	if ext == "" {
		if sniffed := fsutil.DetectFileExt(partPath); sniffed != "" {
			dest = base + sniffed
			info.Path = dest
			logger.Debug("Detected file extension", "url", url, "ext", sniffed)
		}
	}
	if err := os.Rename(partPath, dest); err != nil {
		os.Remove(partPath)
		return "", fmt.Errorf("failed to move %s to %s: %w", partPath, dest, err)
	}
	if d.progress != nil {
		d.progress.OnDone(ctx, info, nil)
	}
	if downloaded == 0 {
		logger.Warn("Downloaded file is empty", "url", url, "path", dest)
	}
	return dest, nil
}

