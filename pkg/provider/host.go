package provider

import (
	"net/url"
	"strings"
)

// Host returns the lower-cased host of rawURL without port and leading "www.".
func Host(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	if u.Host == "" && u.Scheme == "" {
		// "example.com/path" has no scheme
		if u2, err := url.Parse("https://" + strings.TrimSpace(rawURL)); err == nil {
			u = u2
		}
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// MatchHost reports whether rawURL's host equals one of hosts or is a
// subdomain of it. A leading "www." is ignored on both sides.
func MatchHost(rawURL string, hosts ...string) bool {
	h := Host(rawURL)
	if h == "" {
		return false
	}
	for _, want := range hosts {
		want = strings.TrimPrefix(strings.ToLower(want), "www.")
		if want == "" {
			continue
		}
		if h == want || strings.HasSuffix(h, "."+want) {
			return true
		}
	}
	return false
}

// Path returns the path of rawURL, or rawURL itself when it is already a path.
func Path(rawURL string) string {
	if strings.HasPrefix(rawURL, "/") {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
