package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/krau/skraper/pkg/fetch"
	"github.com/krau/skraper/pkg/fetch/fetchtest"
	"github.com/krau/skraper/pkg/ffmpeg"
	"github.com/krau/skraper/pkg/media"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func redirectingProvider(target string) *mockProvider {
	return &mockProvider{name: "provider-a", hosts: []string{"provider-a.example"}, resolve: func(m media.Media) media.Media {
		return m.WithURL(target)
	}}
}

func TestDownloadEndToEnd(t *testing.T) {
	dir := t.TempDir()
	client := fetchtest.New().Handle("https://cdn.example/video.mp4", "video bytes")
	runner := &fakeRunner{}
	d := NewDownloader(NewResolver(newRegistry(redirectingProvider("https://cdn.example/video.mp4"))), client, runner)

	path, err := d.Download(context.Background(), media.Video("https://provider-a.example/post/123"), dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "123.mp4"); path != want {
		t.Fatalf("path = %s, want %s", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "video bytes" {
		t.Errorf("content = %q", data)
	}
	if len(runner.Calls()) != 0 {
		t.Error("direct copy must not invoke ffmpeg")
	}
	if _, err := os.Stat(path + ".part"); !os.IsNotExist(err) {
		t.Error("part file left behind")
	}
}

func TestDownloadDefaultExtensions(t *testing.T) {
	tests := []struct {
		m    media.Media
		want string
	}{
		{media.Image("https://nowhere.example/pic"), "pic.png"},
		{media.Video("https://nowhere.example/clip"), "clip.mp4"},
		{media.Audio("https://nowhere.example/track"), "track.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.m.Kind.String(), func(t *testing.T) {
			dir := t.TempDir()
			client := fetchtest.New().Handle(tt.m.URL, "data")
			d := NewDownloader(NewResolver(newRegistry()), client, &fakeRunner{})
			path, err := d.Download(context.Background(), tt.m, dir, "")
			if err != nil {
				t.Fatal(err)
			}
			if path != filepath.Join(dir, tt.want) {
				t.Errorf("path = %s, want %s", path, tt.want)
			}
		})
	}
}

func TestDownloadRoutesToFFmpeg(t *testing.T) {
	tests := []struct {
		target string
		args   func(in, out string) []string
	}{
		{"https://cdn.example/live/index.m3u8", ffmpeg.RemuxHLSArgs},
		{"https://cdn.example/clip.webm", ffmpeg.TranscodeWebMArgs},
	}
	for _, tt := range tests {
		t.Run(media.Extension(tt.target), func(t *testing.T) {
			dir := t.TempDir()
			client := fetchtest.New()
			runner := &fakeRunner{}
			d := NewDownloader(NewResolver(newRegistry(redirectingProvider(tt.target))), client, runner, WithToolTimeout(DefaultToolTimeout/2))

			path, err := d.Download(context.Background(), media.Video("https://provider-a.example/post/123"), dir, "")
			if err != nil {
				t.Fatal(err)
			}
			want := filepath.Join(dir, "123.mp4")
			if path != want {
				t.Errorf("path = %s, want %s", path, want)
			}
			calls := runner.Calls()
			if len(calls) != 1 {
				t.Fatalf("ffmpeg called %d times", len(calls))
			}
			if !slices.Equal(calls[0].args, tt.args(tt.target, want)) {
				t.Errorf("args = %v", calls[0].args)
			}
			if calls[0].timeout != DefaultToolTimeout/2 {
				t.Errorf("timeout = %v", calls[0].timeout)
			}
			if len(client.Requests()) != 0 {
				t.Error("transcode must not fetch through the client")
			}
		})
	}
}

func TestDownloadTranscodeFailure(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{code: 1}
	d := NewDownloader(NewResolver(newRegistry()), fetchtest.New(), runner)
	path, err := d.Download(context.Background(), media.Video("https://cdn.example/stream.m3u8"), dir, "out")
	var exitErr *ffmpeg.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode != 1 {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if path != filepath.Join(dir, "out.mp4") {
		t.Errorf("the output path must still be returned, got %q", path)
	}
}

func TestDownloadFetchFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	d := NewDownloader(NewResolver(newRegistry()), fetchtest.New(), &fakeRunner{})
	_, err := d.Download(context.Background(), media.Image("https://cdn.example/missing.jpg"), dir, "")
	var se *fetch.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("unexpected files: %v", entries)
	}
}

func TestDownloadSniffsUnknown(t *testing.T) {
	dir := t.TempDir()
	client := fetchtest.New().Handle("https://cdn.example/blob", string(pngHeader))
	d := NewDownloader(NewResolver(newRegistry()), client, &fakeRunner{})
	path, err := d.Download(context.Background(), media.Unknown("https://cdn.example/blob"), dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "blob.png") {
		t.Fatalf("path = %s", path)
	}
	data, _ := os.ReadFile(path)
	if !bytes.Equal(data, pngHeader) {
		t.Error("content mismatch")
	}
}

func TestDownloadFallbackName(t *testing.T) {
	dir := t.TempDir()
	client := fetchtest.New().Handle("https://cdn.example/", "x")
	d := NewDownloader(NewResolver(newRegistry()), client, &fakeRunner{})
	path, err := d.Download(context.Background(), media.Image("https://cdn.example/"), dir, "")
	if err != nil {
		t.Fatal(err)
	}
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".png") || len(name) != len("cv37img5tppgl4002kb0.png") {
		t.Errorf("unexpected fallback name %s", name)
	}
}

func TestDownloadFilenameIsSanitized(t *testing.T) {
	dir := t.TempDir()
	client := fetchtest.New().Handle("https://cdn.example/a.jpg", "x")
	d := NewDownloader(NewResolver(newRegistry()), client, &fakeRunner{})
	path, err := d.Download(context.Background(), media.Image("https://cdn.example/a.jpg"), dir, "../escape")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("file written outside dir: %s", path)
	}
}

func TestDownloadDestinationBusy(t *testing.T) {
	dir := t.TempDir()
	d := NewDownloader(NewResolver(newRegistry()), fetchtest.New().Handle("https://cdn.example/a.jpg", "x"), &fakeRunner{})
	if !d.acquire(filepath.Join(dir, "a")) {
		t.Fatal("acquire failed")
	}
	if _, err := d.Download(context.Background(), media.Image("https://cdn.example/a.jpg"), dir, ""); !errors.Is(err, ErrDestinationBusy) {
		t.Fatalf("expected ErrDestinationBusy, got %v", err)
	}
	d.release(filepath.Join(dir, "a"))
	if _, err := d.Download(context.Background(), media.Image("https://cdn.example/a.jpg"), dir, ""); err != nil {
		t.Fatal(err)
	}
}

type recordingTracker struct {
	started, done int
	last          int64
	err           error
}

func (r *recordingTracker) OnStart(context.Context, DownloadInfo) { r.started++ }
func (r *recordingTracker) OnProgress(_ context.Context, _ DownloadInfo, n int64) {
	r.last = n
}
func (r *recordingTracker) OnDone(_ context.Context, _ DownloadInfo, err error) {
	r.done++
	r.err = err
}

func TestDownloadProgress(t *testing.T) {
	tracker := &recordingTracker{}
	client := fetchtest.New().Handle("https://cdn.example/a.jpg", "12345")
	d := NewDownloader(NewResolver(newRegistry()), client, &fakeRunner{}, WithProgress(tracker))
	if _, err := d.Download(context.Background(), media.Image("https://cdn.example/a.jpg"), t.TempDir(), ""); err != nil {
		t.Fatal(err)
	}
	if tracker.started != 1 || tracker.done != 1 || tracker.last != 5 || tracker.err != nil {
		t.Errorf("unexpected tracker state %+v", tracker)
	}
}
