package fetch

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/krau/skraper/pkg/media"
)

// MetaProperties collects <meta property|name=... content=...> pairs. The
// first occurrence of a key wins.
func MetaProperties(doc *goquery.Document) map[string]string {
	props := make(map[string]string)
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key := s.AttrOr("property", "")
		if key == "" {
			key = s.AttrOr("name", "")
		}
		content, ok := s.Attr("content")
		if key == "" || !ok || content == "" {
			return
		}
		key = strings.ToLower(key)
		if _, exists := props[key]; !exists {
			props[key] = content
		}
	})
	return props
}

func firstOf(props map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(props[k]); v != "" {
			return v
		}
	}
	return ""
}

func ratio(props map[string]string, prefix string) float64 {
	w, err := strconv.ParseFloat(strings.TrimSpace(props[prefix+":width"]), 64)
	if err != nil {
		return 0
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(props[prefix+":height"]), 64)
	if err != nil {
		return 0
	}
	return media.Ratio(w, h)
}

// OpenGraphMedia improves m from the open graph tags of the page at m.URL.
// It returns m unchanged when the page cannot be fetched or has no usable tags.
func OpenGraphMedia(ctx context.Context, c Client, m media.Media) media.Media {
	doc, err := Document(ctx, c, m.URL, nil)
	if err != nil {
		log.FromContext(ctx).Debug("open graph fetch failed", "url", m.URL, "error", err)
		return m
	}
	return MediaFromOpenGraph(MetaProperties(doc), m)
}

func MediaFromOpenGraph(props map[string]string, m media.Media) media.Media {
	out := m
	switch m.Kind {
	case media.KindVideo:
		if u := firstOf(props, "og:video", "og:video:url", "og:video:secure_url"); u != "" {
			out.URL = u
		}
		videoRatio := ratio(props, "og:video")
		if videoRatio > 0 {
			out.AspectRatio = videoRatio
		}
		if thumb := firstOf(props, "og:image", "og:image:url", "og:image:secure_url"); thumb != "" {
			thumbRatio := ratio(props, "og:image")
			if thumbRatio == 0 {
				thumbRatio = videoRatio
			}
			if thumbRatio == 0 && m.Thumbnail != nil {
				thumbRatio = m.Thumbnail.AspectRatio
			}
			if t, err := media.New(media.KindImage, thumb, media.WithAspectRatio(thumbRatio)); err == nil {
				out.Thumbnail = &t
			}
		}
	case media.KindImage:
		if u := firstOf(props, "og:image", "og:image:url", "og:image:secure_url"); u != "" {
			out.URL = u
		}
		if r := ratio(props, "og:image"); r > 0 {
			out.AspectRatio = r
		}
	case media.KindAudio:
		if u := firstOf(props, "og:audio", "og:audio:url", "og:audio:secure_url"); u != "" {
			out.URL = u
		}
	}
	if out.Validate() != nil {
		return m
	}
	return out
}
