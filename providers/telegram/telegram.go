package telegram

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/krau/skraper/pkg/fetch"
	"github.com/krau/skraper/pkg/media"
	"github.com/krau/skraper/pkg/provider"
)

const BaseURL = "https://t.me"

var (
	backgroundURLRegexp = regexp.MustCompile(`background-image:\s*url\(['"]?([^'")]+)['"]?\)`)
	paddingTopRegexp    = regexp.MustCompile(`padding-top:\s*([\d.]+)%`)
	followersRegexp     = regexp.MustCompile(`^([\d\s]+)\s+(?:subscribers?|members?)`)
)

type TelegramProvider struct {
	client fetch.Client
}

var _ provider.Provider = (*TelegramProvider)(nil)

func New(client fetch.Client) *TelegramProvider {
	return &TelegramProvider{client: client}
}

func (p *TelegramProvider) Name() string {
	return "telegram"
}

func (p *TelegramProvider) BaseURL() string {
	return BaseURL
}

func (p *TelegramProvider) Supports(rawURL string) bool {
	return provider.MatchHost(rawURL, "t.me", "telegram.me")
}

// channelOf extracts the channel name and optional message id from
// "/s/<channel>", "/<channel>" or "/<channel>/<id>".
func channelOf(path string) (string, string) {
	parts := strings.Split(strings.Trim(provider.Path(path), "/"), "/")
	if len(parts) > 0 && parts[0] == "s" {
		parts = parts[1:]
	}
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[1]
	}
}

func (p *TelegramProvider) GetPosts(ctx context.Context, path string, limit int) ([]media.Post, error) {
	limit = provider.Limit(limit)
	channel, _ := channelOf(path)
	if channel == "" {
		return nil, provider.ErrNotFound
	}
	posts := make([]media.Post, 0, limit)
	var before int64
	for len(posts) < limit {
		query := map[string]any{}
		if before > 0 {
			query["before"] = before
		}
		doc, err := fetch.Document(ctx, p.client, fetch.BuildURL(BaseURL, "/s/"+channel, query), nil)
		if err != nil {
			if len(posts) > 0 {
				log.FromContext(ctx).Warn("Stopping pagination", "provider", p.Name(), "error", err)
				break
			}
			return nil, err
		}
		nodes := doc.Find(".tgme_widget_message[data-post]")
		if nodes.Length() == 0 {
			break
		}
		batch := make([]media.Post, 0, nodes.Length())
		lowest := before
		nodes.Each(func(_ int, s *goquery.Selection) {
			post := extractPost(s)
			id, err := strconv.ParseInt(post.ID, 10, 64)
			if err != nil {
				return
			}
			if before > 0 && id >= before {
				return
			}
			if lowest == 0 || id < lowest {
				lowest = id
			}
			batch = append(batch, post)
		})
		if len(batch) == 0 {
			break
		}
		// the page lists messages oldest first
		slices.Reverse(batch)
		posts = append(posts, batch...)
		before = lowest
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func extractPost(s *goquery.Selection) media.Post {
	_, id := channelOf("/" + s.AttrOr("data-post", ""))
	post := media.Post{
		ID:    id,
		Text:  strings.TrimSpace(s.Find(".tgme_widget_message_text").First().Text()),
		Media: extractMedia(s),
	}
	if views, ok := parseCount(s.Find(".tgme_widget_message_views").First().Text()); ok {
		post.Statistics = &media.PostStatistics{Views: media.Int(views)}
	}
	if dt, ok := s.Find("time[datetime]").First().Attr("datetime"); ok {
		if t, err := time.Parse(time.RFC3339, dt); err == nil {
			post.PublishedAt = media.Time(t)
		}
	}
	return post
}

func extractMedia(s *goquery.Selection) []media.Media {
	out := make([]media.Media, 0)
	s.Find(".tgme_widget_message_video_player").Each(func(_ int, player *goquery.Selection) {
		src := strings.TrimSpace(player.Find("video").AttrOr("src", ""))
		if src == "" {
			return
		}
		ratio := parseRatio(player.AttrOr("data-ratio", ""))
		if ratio == 0 {
			ratio = paddingRatio(player.Find(".tgme_widget_message_video_wrap").AttrOr("style", ""))
		}
		opts := []media.Option{media.WithAspectRatio(ratio)}
		if d := parseDuration(player.Find(".message_video_duration").Text()); d > 0 {
			opts = append(opts, media.WithDuration(d))
		}
		if thumb, err := media.New(media.KindImage, backgroundURL(player.Find(".tgme_widget_message_video_thumb").AttrOr("style", "")), media.WithAspectRatio(ratio)); err == nil {
			opts = append(opts, media.WithThumbnail(thumb))
		}
		if v, err := media.New(media.KindVideo, src, opts...); err == nil {
			out = append(out, v)
		}
	})
	s.Find(".tgme_widget_message_photo_wrap").Each(func(_ int, wrap *goquery.Selection) {
		ratio := paddingRatio(wrap.Find(".tgme_widget_message_photo").AttrOr("style", ""))
		if img, err := media.New(media.KindImage, backgroundURL(wrap.AttrOr("style", "")), media.WithAspectRatio(ratio)); err == nil {
			out = append(out, img)
		}
	})
	return out
}

func backgroundURL(style string) string {
	m := backgroundURLRegexp.FindStringSubmatch(style)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func paddingRatio(style string) float64 {
	m := paddingTopRegexp.FindStringSubmatch(style)
	if len(m) < 2 {
		return 0
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return media.Ratio(100, pct)
}

// parseRatio reads a data-ratio attribute; anything but a positive finite
// number is 0.
func parseRatio(s string) float64 {
	r, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return media.Ratio(r, 1)
}

// parseCount parses view counters such as "951", "12.3K" or "1.2M".
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, false
	}
	mul := 1.0
	switch s[len(s)-1] {
	case 'K':
		mul = 1e3
	case 'M':
		mul = 1e6
	case 'B':
		mul = 1e9
	}
	if mul > 1 {
		s = s[:len(s)-1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(math.Round(f * mul)), true
}

// parseDuration parses "ss", "m:ss" and "h:mm:ss".
func parseDuration(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	var total time.Duration
	unit := time.Second
	for i := len(parts) - 1; i >= 0; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0
		}
		total += time.Duration(n) * unit
		unit *= 60
	}
	return total
}

func (p *TelegramProvider) GetPageInfo(ctx context.Context, path string) (*media.PageInfo, error) {
	channel, _ := channelOf(path)
	if channel == "" {
		return nil, provider.ErrNotFound
	}
	doc, err := fetch.Document(ctx, p.client, BaseURL+"/"+channel, nil)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(doc.Find(".tgme_page_title").First().Text())
	if name == "" {
		return nil, fmt.Errorf("%w: %s", provider.ErrNotFound, channel)
	}
	nick := channel
	if title := doc.Find("title").First().Text(); strings.Contains(title, "@") {
		nick = title[strings.LastIndex(title, "@")+1:]
	}
	info := &media.PageInfo{
		Nick:        strings.TrimSpace(nick),
		Name:        name,
		Description: strings.TrimSpace(doc.Find(".tgme_page_description").First().Text()),
		Avatar:      media.ImagePtr(doc.Find("img.tgme_page_photo_image").AttrOr("src", "")),
	}
	extra := strings.TrimSpace(doc.Find(".tgme_page_extra").First().Text())
	if m := followersRegexp.FindStringSubmatch(extra); len(m) == 2 {
		if n, err := strconv.Atoi(strings.Join(strings.Fields(m[1]), "")); err == nil {
			info.Statistics = &media.PageStatistics{Followers: media.Int(n)}
		}
	}
	return info, nil
}

// Resolve replaces a message link with the first media of that message.
func (p *TelegramProvider) Resolve(ctx context.Context, m media.Media) media.Media {
	channel, id := channelOf(m.URL)
	if channel == "" || id == "" {
		return m
	}
	u := fetch.BuildURL(BaseURL, "/"+channel+"/"+id, map[string]any{"embed": 1, "mode": "tme"})
	doc, err := fetch.Document(ctx, p.client, u, nil)
	if err != nil {
		log.FromContext(ctx).Debug("telegram resolve failed", "url", m.URL, "error", err)
		return m
	}
	items := extractMedia(doc.Find(".tgme_widget_message").First())
	if len(items) == 0 {
		return m
	}
	return items[0]
}
