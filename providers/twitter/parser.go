package twitter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/krau/skraper/pkg/fetch"
	"github.com/krau/skraper/pkg/media"
	"github.com/krau/skraper/pkg/provider"
)

const (
	fxTwitterApi = "api.fxtwitter.com"
	BaseURL      = "https://x.com"
)

type TwitterProvider struct {
	client    fetch.Client
	apiDomain string
}

var _ provider.ConfigurableProvider = (*TwitterProvider)(nil)

var statusPathRegexp = regexp.MustCompile(`^/([^/]+)/status(?:es)?/(\d+)`)

func New(client fetch.Client) *TwitterProvider {
	return &TwitterProvider{client: client, apiDomain: fxTwitterApi}
}

// getTweetID returns the screen name and tweet id of a status path or URL.
func getTweetID(pathOrURL string) (string, string) {
	matches := statusPathRegexp.FindStringSubmatch(provider.Path(pathOrURL))
	if len(matches) < 3 {
		return "", ""
	}
	return matches[1], matches[2]
}

func (p *TwitterProvider) Name() string {
	return "twitter"
}

func (p *TwitterProvider) BaseURL() string {
	return BaseURL
}

func (p *TwitterProvider) Supports(rawURL string) bool {
	return provider.MatchHost(rawURL, "twitter.com", "x.com")
}

func (p *TwitterProvider) Configure(config map[string]any) error {
	if config == nil {
		return nil
	}
	if domain, ok := config["api_domain"].(string); ok && domain != "" {
		p.apiDomain = domain
	}
	if proxyUrl, ok := config["proxy"].(string); ok && proxyUrl != "" {
		proxyClient, err := fetch.New(fetch.WithProxy(proxyUrl))
		if err != nil {
			return fmt.Errorf("failed to create proxy client: %w", err)
		}
		p.client = proxyClient
	}
	return nil
}

func (p *TwitterProvider) fetchTweet(ctx context.Context, id string) (*FxTweet, error) {
	apiUrl := fmt.Sprintf("https://%s/_/status/%s", p.apiDomain, id)
	fxResp, err := fetch.JSON[FxTwitterApiResp](ctx, p.client, apiUrl, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Twitter API: %w", err)
	}
	if fxResp.Code != 200 {
		return nil, fmt.Errorf("request twitter API error: %s", fxResp.Message)
	}
	return &fxResp.Tweet, nil
}

// GetPosts only supports status paths: the fxtwitter API has no timelines.
func (p *TwitterProvider) GetPosts(ctx context.Context, path string, limit int) ([]media.Post, error) {
	_, id := getTweetID(path)
	if id == "" {
		return nil, fmt.Errorf("%w: timelines require a login", provider.ErrNotSupported)
	}
	tweet, err := p.fetchTweet(ctx, id)
	if err != nil {
		return nil, err
	}
	return []media.Post{toPost(tweet)}, nil
}

func (p *TwitterProvider) GetPageInfo(ctx context.Context, path string) (*media.PageInfo, error) {
	screenName := strings.Split(strings.Trim(provider.Path(path), "/"), "/")[0]
	if screenName == "" {
		return nil, provider.ErrNotFound
	}
	apiUrl := fmt.Sprintf("https://%s/%s", p.apiDomain, screenName)
	resp, err := fetch.JSON[FxUserApiResp](ctx, p.client, apiUrl, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Twitter API: %w", err)
	}
	if resp.Code != 200 {
		return nil, fmt.Errorf("%w: %s", provider.ErrNotFound, resp.Message)
	}
	return toPageInfo(&resp.User), nil
}

func (p *TwitterProvider) Resolve(ctx context.Context, m media.Media) media.Media {
	_, id := getTweetID(m.URL)
	if id == "" {
		return m
	}
	tweet, err := p.fetchTweet(ctx, id)
	if err != nil {
		log.FromContext(ctx).Debug("twitter resolve failed", "url", m.URL, "error", err)
		return m
	}
	items := toMedia(tweet.Media.All)
	if len(items) == 0 {
		return m
	}
	return items[0]
}

func toPost(t *FxTweet) media.Post {
	post := media.Post{
		ID:     t.ID,
		Text:   t.Text,
		Author: toPageInfo(&t.Author),
		Statistics: &media.PostStatistics{
			Likes:    t.Likes,
			Reposts:  t.Retweets,
			Comments: t.Replies,
			Views:    t.Views,
		},
		Media: toMedia(t.Media.All),
	}
	if t.CreatedTimestamp > 0 {
		post.PublishedAt = media.Time(time.Unix(t.CreatedTimestamp, 0).UTC())
	}
	return post
}

func toPageInfo(u *FxUser) *media.PageInfo {
	return &media.PageInfo{
		Nick:        u.ScreenName,
		Name:        u.Name,
		Description: u.Description,
		Statistics: &media.PageStatistics{
			Posts:     u.Tweets,
			Followers: u.Followers,
			Following: u.Following,
		},
		Avatar: media.ImagePtr(u.AvatarURL),
		Cover:  media.ImagePtr(u.BannerURL),
	}
}

func toMedia(items []FxMediaItem) []media.Media {
	out := make([]media.Media, 0, len(items))
	for _, it := range items {
		ratio := media.Ratio(it.Width, it.Height)
		var (
			m   media.Media
			err error
		)
		switch it.Type {
		case "photo":
			m, err = media.New(media.KindImage, it.URL, media.WithAspectRatio(ratio))
		case "video", "gif":
			opts := []media.Option{media.WithAspectRatio(ratio)}
			if it.Duration > 0 {
				opts = append(opts, media.WithDuration(time.Duration(it.Duration*float64(time.Second))))
			}
			if thumb, err := media.New(media.KindImage, it.ThumbnailURL, media.WithAspectRatio(ratio)); err == nil {
				opts = append(opts, media.WithThumbnail(thumb))
			}
			m, err = media.New(media.KindVideo, it.URL, opts...)
		default:
			m, err = media.New(media.KindUnknown, it.URL)
		}
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}
