package media

import (
	"net/url"
	"path"
	"strings"
)

// LastSegment returns the unescaped last path segment of rawURL, ignoring
// query and fragment.
func LastSegment(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if idx := strings.IndexAny(p, "?#"); idx != -1 {
		p = p[:idx]
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// Extension returns the lower-cased text after the last '.' of the final
// path segment, or "" when the segment has none.
func Extension(rawURL string) string {
	seg := LastSegment(rawURL)
	idx := strings.LastIndex(seg, ".")
	if idx == -1 || idx == len(seg)-1 {
		return ""
	}
	return strings.ToLower(seg[idx+1:])
}

// BaseName is the final path segment without its extension.
func BaseName(rawURL string) string {
	seg := LastSegment(rawURL)
	if idx := strings.LastIndex(seg, "."); idx > 0 {
		return seg[:idx]
	}
	if seg == "." || seg == "/" {
		return ""
	}
	return strings.TrimPrefix(seg, ".")
}

// IsDirect reports whether rawURL already points at a file.
func IsDirect(rawURL string) bool {
	return Extension(rawURL) != ""
}
