package provider

import "testing"

func TestMatchHost(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		hosts []string
		want  bool
	}{
		{"equal", "https://reddit.com/r/pics", []string{"reddit.com"}, true},
		{"www stripped", "https://www.reddit.com/r/pics", []string{"reddit.com"}, true},
		{"www on provider", "https://reddit.com/r/pics", []string{"www.reddit.com"}, true},
		{"subdomain", "https://old.reddit.com/r/pics", []string{"reddit.com"}, true},
		{"upper case", "HTTPS://WWW.Reddit.COM/r/pics", []string{"reddit.com"}, true},
		{"port ignored", "http://provider-a.example:8080/post/1", []string{"provider-a.example"}, true},
		{"second host", "https://x.com/a/status/1", []string{"twitter.com", "x.com"}, true},
		{"no scheme", "youtu.be/abc", []string{"youtu.be"}, true},
		{"look-alike", "https://notreddit.com/r/pics", []string{"reddit.com"}, false},
		{"other", "https://cdn.example/video.mp4", []string{"provider-a.example"}, false},
		{"empty", "", []string{"reddit.com"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchHost(tt.url, tt.hosts...); got != tt.want {
				t.Errorf("MatchHost(%q, %v) = %v, want %v", tt.url, tt.hosts, got, tt.want)
			}
		})
	}
}

func TestPath(t *testing.T) {
	cases := map[string]string{
		"/r/pics":                          "/r/pics",
		"https://reddit.com/r/pics":        "/r/pics",
		"https://reddit.com":               "/",
		"https://t.me/s/durov/123?embed=1": "/s/durov/123",
	}
	for in, want := range cases {
		if got := Path(in); got != want {
			t.Errorf("Path(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLimit(t *testing.T) {
	if Limit(0) != DefaultPostsLimit || Limit(-3) != DefaultPostsLimit || Limit(7) != 7 {
		t.Fatal("unexpected limit normalisation")
	}
}
