package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/krau/skraper/pkg/media"
)

func newTestClient(t *testing.T) *HTTPClient {
	t.Helper()
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestFetchSendsDefaultHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Accept-Language") != DefaultAcceptLanguage {
			t.Errorf("unexpected accept-language %q", r.Header.Get("Accept-Language"))
		}
		if r.Header.Get("X-Test") != "1" {
			t.Errorf("missing per-request header")
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestClient(t).Fetch(context.Background(), Get(srv.URL, map[string]string{"X-Test": "1"}))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestFetchCarriesCookiesOnFirstRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session")
		if err != nil || c.Value != "abc" {
			http.Error(w, "no cookie", http.StatusForbidden)
			return
		}
		w.Write([]byte("done"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	body, err := newTestClient(t).Fetch(context.Background(), Get(srv.URL+"/start"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "done" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestFetchNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(t).Fetch(context.Background(), Get(srv.URL))
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("second"))
	}))
	defer srv.Close()

	c, err := New(WithRetry(2))
	if err != nil {
		t.Fatal(err)
	}
	body, err := c.Fetch(context.Background(), Get(srv.URL))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "second" || calls != 2 {
		t.Fatalf("body=%q calls=%d", body, calls)
	}
}

func TestOpenStreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5")
		w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	rc, size, err := newTestClient(t).Open(context.Background(), Get(srv.URL))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if size != 5 || string(data) != "bytes" {
		t.Fatalf("size=%d data=%q", size, data)
	}
}

func TestDocumentFollowsMetaRefresh(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><meta http-equiv="Refresh" content="0; URL=/b"></head></html>`))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>target</title></head></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	doc, err := Document(context.Background(), newTestClient(t), srv.URL+"/a", nil)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if doc.Find("title").Text() != "target" {
		t.Fatalf("meta refresh not followed")
	}
	if doc.Url == nil || doc.Url.Path != "/b" {
		t.Fatalf("unexpected document url %v", doc.Url)
	}
}

func TestJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"skraper","count":3}`))
	}))
	defer srv.Close()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	got, err := JSON[payload](context.Background(), newTestClient(t), srv.URL, nil)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if got.Name != "skraper" || got.Count != 3 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestBuildURL(t *testing.T) {
	after := "t3_x"
	var missing *string
	got := BuildURL("https://reddit.com/", "r/pics.json", map[string]any{
		"limit":   50,
		"after":   &after,
		"before":  missing,
		"skipped": nil,
		"empty":   "",
	})
	u, err := url.Parse(got)
	if err != nil {
		t.Fatal(err)
	}
	if u.Host != "reddit.com" || u.Path != "/r/pics.json" {
		t.Fatalf("unexpected url %s", got)
	}
	q := u.Query()
	if q.Get("limit") != "50" || q.Get("after") != "t3_x" || q.Has("before") || q.Has("skipped") || q.Has("empty") {
		t.Fatalf("unexpected query %s", u.RawQuery)
	}
}

func TestOpenGraphMedia(t *testing.T) {
	page := `<html><head>
<meta property="og:video" content="https://cdn.example/v.mp4">
<meta property="og:video:width" content="1280">
<meta property="og:video:height" content="720">
<meta property="og:image" content="https://cdn.example/thumb.jpg">
<meta property="og:audio:secure_url" content="https://cdn.example/a.mp3">
</head></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()
	c := newTestClient(t)
	ctx := context.Background()

	v := OpenGraphMedia(ctx, c, media.Video(srv.URL+"/watch"))
	if v.URL != "https://cdn.example/v.mp4" {
		t.Fatalf("unexpected video url %s", v.URL)
	}
	if v.AspectRatio != 1280.0/720.0 {
		t.Fatalf("unexpected aspect ratio %v", v.AspectRatio)
	}
	if v.Thumbnail == nil || v.Thumbnail.URL != "https://cdn.example/thumb.jpg" || v.Thumbnail.AspectRatio != 1280.0/720.0 {
		t.Fatalf("unexpected thumbnail %+v", v.Thumbnail)
	}

	a := OpenGraphMedia(ctx, c, media.Audio(srv.URL+"/track"))
	if a.URL != "https://cdn.example/a.mp3" {
		t.Fatalf("unexpected audio url %s", a.URL)
	}

	u := OpenGraphMedia(ctx, c, media.Unknown(srv.URL+"/x"))
	if u.URL != srv.URL+"/x" {
		t.Fatalf("unknown media should be unchanged, got %s", u.URL)
	}
}

func TestOpenGraphMediaFailureReturnsInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	in := media.Image(srv.URL + "/p")
	if out := OpenGraphMedia(context.Background(), newTestClient(t), in); out != in {
		t.Fatalf("expected input back, got %+v", out)
	}
}

func TestMediaFromOpenGraphMalformedTags(t *testing.T) {
	video := media.Video("https://example.com/watch")
	image := media.Image("https://example.com/photo")
	tests := []struct {
		name      string
		props     map[string]string
		in        media.Media
		wantURL   string
		wantRatio float64
		wantThumb string
	}{
		{
			name:    "blank thumbnail is skipped",
			props:   map[string]string{"og:video": "https://cdn.example/v.mp4", "og:image": " "},
			in:      video,
			wantURL: "https://cdn.example/v.mp4",
		},
		{
			name:      "blank image falls back to secure url",
			props:     map[string]string{"og:image": "  ", "og:image:secure_url": "https://cdn.example/i.jpg"},
			in:        image,
			wantURL:   "https://cdn.example/i.jpg",
			wantRatio: 0,
		},
		{
			name:      "nan width on the thumbnail",
			props:     map[string]string{"og:video": "https://cdn.example/v.mp4", "og:image": "https://cdn.example/t.jpg", "og:image:width": "NaN", "og:image:height": "720"},
			in:        video,
			wantURL:   "https://cdn.example/v.mp4",
			wantThumb: "https://cdn.example/t.jpg",
		},
		{
			name:    "nan video ratio",
			props:   map[string]string{"og:video": "https://cdn.example/v.mp4", "og:video:width": "NaN", "og:video:height": "NaN"},
			in:      video,
			wantURL: "https://cdn.example/v.mp4",
		},
		{
			name:    "infinite image ratio",
			props:   map[string]string{"og:image": "https://cdn.example/i.jpg", "og:image:width": "+Inf", "og:image:height": "1"},
			in:      image,
			wantURL: "https://cdn.example/i.jpg",
		},
		{
			name:    "blank video keeps input",
			props:   map[string]string{"og:video": " "},
			in:      video,
			wantURL: video.URL,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := MediaFromOpenGraph(tt.props, tt.in)
			if err := out.Validate(); err != nil {
				t.Fatalf("invalid result %+v: %v", out, err)
			}
			if out.URL != tt.wantURL || out.AspectRatio != tt.wantRatio {
				t.Fatalf("got %s (%v), want %s (%v)", out.URL, out.AspectRatio, tt.wantURL, tt.wantRatio)
			}
			switch {
			case tt.wantThumb == "" && out.Thumbnail != nil:
				t.Fatalf("unexpected thumbnail %+v", out.Thumbnail)
			case tt.wantThumb != "" && (out.Thumbnail == nil || out.Thumbnail.URL != tt.wantThumb):
				t.Fatalf("thumbnail = %+v, want %s", out.Thumbnail, tt.wantThumb)
			}
		})
	}
}
