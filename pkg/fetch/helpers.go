package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxMetaRefresh = 3

// JSON fetches url and decodes the body into T.
func JSON[T any](ctx context.Context, c Client, url string, headers map[string]string) (T, error) {
	var v T
	h := map[string]string{"Accept": "application/json"}
	for k, val := range headers {
		h[k] = val
	}
	body, err := c.Fetch(ctx, Get(url, h))
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("failed to decode json from %s: %w", url, err)
	}
	return v, nil
}

// Document fetches and parses an HTML page, following meta refresh redirects.
func Document(ctx context.Context, c Client, rawURL string, headers map[string]string) (*goquery.Document, error) {
	current := rawURL
	for i := 0; ; i++ {
		body, err := c.Fetch(ctx, Get(current, headers))
		if err != nil {
			return nil, err
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to parse html from %s: %w", current, err)
		}
		next := metaRefreshTarget(doc, current)
		if next == "" || next == current || i >= maxMetaRefresh {
			if u, err := url.Parse(current); err == nil {
				doc.Url = u
			}
			return doc, nil
		}
		current = next
	}
}

func metaRefreshTarget(doc *goquery.Document, base string) string {
	var target string
	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(s.AttrOr("http-equiv", ""), "refresh") {
			return true
		}
		content := s.AttrOr("content", "")
		idx := strings.Index(strings.ToLower(content), "url=")
		if idx == -1 {
			return true
		}
		target = strings.Trim(strings.TrimSpace(content[idx+len("url="):]), `'"`)
		return false
	})
	if target == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return target
	}
	ref, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}

// BuildURL joins base and path and appends the non-empty query values.
func BuildURL(base, path string, query map[string]any) string {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return base + path
	}
	if path != "" {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		u.Path = strings.TrimRight(u.Path, "/") + path
	}
	q := u.Query()
	for k, v := range query {
		if v == nil {
			continue
		}
		if p, ok := v.(*string); ok {
			if p == nil {
				continue
			}
			v = *p
		}
		s := fmt.Sprint(v)
		if s == "" {
			continue
		}
		q.Set(k, s)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
