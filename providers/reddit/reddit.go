package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/krau/skraper/pkg/fetch"
	"github.com/krau/skraper/pkg/media"
	"github.com/krau/skraper/pkg/provider"
)

const (
	BaseURL = "https://www.reddit.com"

	// reddit caps a listing page at 100 items
	maxBatch = 100
)

type RedditProvider struct {
	client  fetch.Client
	baseURL string
}

var _ provider.ConfigurableProvider = (*RedditProvider)(nil)

func New(client fetch.Client) *RedditProvider {
	return &RedditProvider{client: client, baseURL: BaseURL}
}

func (p *RedditProvider) Name() string {
	return "reddit"
}

func (p *RedditProvider) BaseURL() string {
	return p.baseURL
}

func (p *RedditProvider) Supports(rawURL string) bool {
	return provider.MatchHost(rawURL, "reddit.com")
}

func (p *RedditProvider) Configure(cfg map[string]any) error {
	if cfg == nil {
		return nil
	}
	if base, ok := cfg["base_url"].(string); ok && base != "" {
		p.baseURL = strings.TrimRight(base, "/")
	}
	return nil
}

func (p *RedditProvider) GetPosts(ctx context.Context, path string, limit int) ([]media.Post, error) {
	limit = provider.Limit(limit)
	path = strings.TrimSuffix(provider.Path(path), "/")
	posts := make([]media.Post, 0, limit)
	after := ""
	for len(posts) < limit {
		l, err := p.fetchListing(ctx, path, min(limit-len(posts), maxBatch), after)
		if err != nil {
			if len(posts) > 0 {
				log.FromContext(ctx).Warn("Stopping pagination", "provider", p.Name(), "error", err)
				break
			}
			return nil, err
		}
		if len(l.Data.Children) == 0 {
			break
		}
		for _, child := range l.Data.Children {
			if post, ok := toPost(child.Data); ok {
				posts = append(posts, post)
			}
		}
		if l.Data.After == "" || l.Data.After == after {
			break
		}
		after = l.Data.After
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (p *RedditProvider) fetchListing(ctx context.Context, path string, batch int, after string) (*listing, error) {
	u := fetch.BuildURL(p.baseURL, path+".json", map[string]any{
		"limit": batch,
		"after": after,
	})
	body, err := p.client.Fetch(ctx, fetch.Get(u, map[string]string{"Accept": "application/json"}))
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	// a single post path answers with [post listing, comments listing]
	if len(body) > 0 && body[0] == '[' {
		var ls []listing
		if err := json.Unmarshal(body, &ls); err != nil {
			return nil, fmt.Errorf("failed to decode reddit listing: %w", err)
		}
		if len(ls) == 0 {
			return &listing{}, nil
		}
		return &ls[0], nil
	}
	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("failed to decode reddit listing: %w", err)
	}
	return &l, nil
}

func toPost(d postData) (media.Post, bool) {
	if d.ID == "" {
		return media.Post{}, false
	}
	post := media.Post{
		ID:   d.ID,
		Text: joinText(d.Title, d.Selftext),
		Statistics: &media.PostStatistics{
			Likes:    d.Score,
			Comments: d.NumComments,
		},
		Media: extractMedia(d),
	}
	if d.CreatedUTC > 0 {
		post.PublishedAt = media.Time(time.Unix(int64(d.CreatedUTC), 0).UTC())
	}
	return post, true
}

func joinText(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, s := range parts {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

func extractMedia(d postData) []media.Media {
	previews := make([]media.Media, 0, len(d.Preview.Images))
	for _, img := range d.Preview.Images {
		preview, err := media.New(media.KindImage, unescape(img.Source.URL), media.WithAspectRatio(media.Ratio(img.Source.Width, img.Source.Height)))
		if err != nil {
			continue
		}
		previews = append(previews, preview)
	}
	if !d.hasMedia() && !d.IsVideo {
		return previews
	}
	videoURL := d.URL
	opts := make([]media.Option, 0, 3)
	if rv := d.SecureMedia.RedditVideo; rv != nil {
		switch {
		case rv.HLSURL != "":
			videoURL = unescape(rv.HLSURL)
		case rv.FallbackURL != "":
			videoURL = unescape(rv.FallbackURL)
		}
		if rv.Duration > 0 {
			opts = append(opts, media.WithDuration(time.Duration(rv.Duration*float64(time.Second))))
		}
	}
	if len(previews) > 0 {
		opts = append(opts, media.WithAspectRatio(previews[0].AspectRatio), media.WithThumbnail(previews[0]))
	}
	v, err := media.New(media.KindVideo, videoURL, opts...)
	if err != nil {
		return previews
	}
	return []media.Media{v}
}

func (p *RedditProvider) GetPageInfo(ctx context.Context, path string) (*media.PageInfo, error) {
	path = strings.TrimSuffix(provider.Path(path), "/")
	u := fetch.BuildURL(p.baseURL, path+"/about.json", nil)
	a, err := fetch.JSON[about](ctx, p.client, u, nil)
	if err != nil {
		return nil, err
	}
	sub := a.Data.subreddit
	isUser := strings.HasPrefix(strings.TrimPrefix(path, "/"), "u")
	if isUser {
		if a.Data.Subreddit == nil {
			return nil, provider.ErrNotFound
		}
		sub = *a.Data.Subreddit
	}
	if sub.DisplayName == "" && sub.DisplayNamePrefixed == "" {
		return nil, provider.ErrNotFound
	}
	icon := sub.IconImg
	if icon == "" {
		icon = sub.CommunityIcon
	}
	cover := sub.BannerBackgroundImage
	if cover == "" || isUser {
		cover = sub.BannerImg
	}
	return &media.PageInfo{
		Nick:        sub.DisplayNamePrefixed,
		Name:        sub.DisplayName,
		Description: sub.PublicDescription,
		Statistics: &media.PageStatistics{
			Followers: sub.Subscribers,
		},
		Avatar: media.ImagePtr(unescape(icon)),
		Cover:  media.ImagePtr(unescape(cover)),
	}, nil
}

// Resolve turns an image page into its open graph image, and a video post
// into the first media of that post. A post link of unknown kind is treated
// as a video post.
func (p *RedditProvider) Resolve(ctx context.Context, m media.Media) media.Media {
	if m.Kind == media.KindUnknown && !strings.Contains(m.URL, "/comments/") {
		return m
	}
	switch m.Kind {
	case media.KindImage:
		return fetch.OpenGraphMedia(ctx, p.client, m)
	case media.KindVideo, media.KindUnknown:
		posts, err := p.GetPosts(ctx, provider.Path(m.URL), 1)
		if err != nil || len(posts) == 0 || len(posts[0].Media) == 0 {
			if err != nil {
				log.FromContext(ctx).Debug("reddit resolve failed", "url", m.URL, "error", err)
			}
			return m
		}
		return posts[0].Media[0]
	default:
		return m
	}
}
