package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/kkdai/youtube/v2"

	"github.com/krau/skraper/pkg/fetch"
	"github.com/krau/skraper/pkg/media"
	"github.com/krau/skraper/pkg/provider"
)

const BaseURL = "https://www.youtube.com"

// videoClient is the part of *youtube.Client the provider uses.
type videoClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamURLContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (string, error)
}

type YoutubeProvider struct {
	client fetch.Client
	yt     videoClient
}

var _ provider.Provider = (*YoutubeProvider)(nil)

func New(client fetch.Client) *YoutubeProvider {
	yt := &youtube.Client{}
	if hc, ok := client.(interface{ HTTP() *http.Client }); ok {
		yt.HTTPClient = hc.HTTP()
	}
	return &YoutubeProvider{client: client, yt: yt}
}

func (p *YoutubeProvider) Name() string {
	return "youtube"
}

func (p *YoutubeProvider) BaseURL() string {
	return BaseURL
}

func (p *YoutubeProvider) Supports(rawURL string) bool {
	return provider.MatchHost(rawURL, "youtube.com", "youtu.be", "youtube-nocookie.com")
}

// videoID returns the id of a watch, short, embed, live or youtu.be link,
// or "" when pathOrURL does not point at a single video.
func videoID(pathOrURL string) string {
	if strings.HasPrefix(pathOrURL, "/") {
		pathOrURL = BaseURL + pathOrURL
	}
	u, err := url.Parse(pathOrURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	var id string
	switch {
	case provider.MatchHost(pathOrURL, "youtu.be"):
		id = segments[0]
	case segments[0] == "watch":
		id = u.Query().Get("v")
	case len(segments) >= 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live"):
		id = segments[1]
	}
	if id == "" {
		return ""
	}
	id, err = youtube.ExtractVideoID(id)
	if err != nil {
		return ""
	}
	return id
}

func watchURL(id string) string {
	return BaseURL + "/watch?v=" + id
}

// bestFormat picks the tallest progressive mp4 format, which carries both
// audio and video.
func bestFormat(formats youtube.FormatList) *youtube.Format {
	candidates := formats.WithAudioChannels().Type("video/mp4")
	var best *youtube.Format
	for i := range candidates {
		f := &candidates[i]
		if f.Width <= 0 || f.Height <= 0 {
			continue
		}
		if best == nil || f.Height > best.Height {
			best = f
		}
	}
	return best
}

func bestAudio(formats youtube.FormatList) *youtube.Format {
	candidates := formats.Type("audio/")
	var best *youtube.Format
	for i := range candidates {
		if best == nil || candidates[i].Bitrate > best.Bitrate {
			best = &candidates[i]
		}
	}
	return best
}

func bestThumbnail(thumbs youtube.Thumbnails) *media.Media {
	var best *youtube.Thumbnail
	for i := range thumbs {
		if best == nil || thumbs[i].Width*thumbs[i].Height > best.Width*best.Height {
			best = &thumbs[i]
		}
	}
	if best == nil {
		return nil
	}
	thumb, err := media.New(media.KindImage, best.URL, media.WithAspectRatio(media.Ratio(float64(best.Width), float64(best.Height))))
	if err != nil {
		return nil
	}
	return &thumb
}

func videoOptions(v *youtube.Video, f *youtube.Format) []media.Option {
	opts := make([]media.Option, 0, 3)
	if f != nil {
		if r := media.Ratio(float64(f.Width), float64(f.Height)); r > 0 {
			opts = append(opts, media.WithAspectRatio(r))
		}
	}
	if v.Duration > 0 {
		opts = append(opts, media.WithDuration(v.Duration))
	}
	if thumb := bestThumbnail(v.Thumbnails); thumb != nil {
		opts = append(opts, media.WithThumbnail(*thumb))
	}
	return opts
}

// Resolve turns a watch link into a direct stream URL: the best progressive
// format, or the HLS manifest for live streams.
func (p *YoutubeProvider) Resolve(ctx context.Context, m media.Media) media.Media {
	id := videoID(m.URL)
	if id == "" || m.Kind == media.KindImage {
		return m
	}
	logger := log.FromContext(ctx).WithPrefix("youtube")
	v, err := p.yt.GetVideoContext(ctx, id)
	if err != nil {
		logger.Debug("failed to get video", "id", id, "error", err)
		return m
	}
	if m.Kind == media.KindAudio {
		if f := bestAudio(v.Formats); f != nil {
			if streamURL, err := p.yt.GetStreamURLContext(ctx, v, f); err == nil {
				if a, err := media.New(media.KindAudio, streamURL, media.WithDuration(v.Duration)); err == nil {
					return a
				}
			}
		}
	}
	f := bestFormat(v.Formats)
	if f == nil {
		if hls, err := media.New(media.KindVideo, v.HLSManifestURL, videoOptions(v, nil)...); err == nil {
			return hls
		}
		logger.Debug("no progressive format", "id", id)
		return m
	}
	streamURL, err := p.yt.GetStreamURLContext(ctx, v, f)
	if err != nil {
		logger.Debug("failed to get stream url", "id", id, "error", err)
		return m
	}
	out, err := media.New(media.KindVideo, streamURL, videoOptions(v, f)...)
	if err != nil {
		logger.Debug("invalid stream url", "id", id, "error", err)
		return m
	}
	return out
}

func videoToPost(v *youtube.Video) media.Post {
	text := v.Title
	if v.Description != "" {
		text += "\n" + v.Description
	}
	post := media.Post{
		ID:   v.ID,
		Text: text,
		Author: &media.PageInfo{
			Nick: v.ChannelHandle,
			Name: v.Author,
		},
		Statistics: &media.PostStatistics{Views: media.Int(v.Views)},
		Media:      []media.Media{media.Video(watchURL(v.ID), videoOptions(v, bestFormat(v.Formats))...)},
	}
	if !v.PublishDate.IsZero() {
		post.PublishedAt = media.Time(v.PublishDate)
	}
	return post
}

// GetPosts returns the single video of a watch path, or the latest uploads
// of a channel from its feed.
func (p *YoutubeProvider) GetPosts(ctx context.Context, path string, limit int) ([]media.Post, error) {
	limit = provider.Limit(limit)
	if id := videoID(path); id != "" {
		v, err := p.yt.GetVideoContext(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get video %s: %w", id, err)
		}
		return []media.Post{videoToPost(v)}, nil
	}
	channelID, err := p.channelID(ctx, path)
	if err != nil {
		return nil, err
	}
	posts, err := p.feedPosts(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (p *YoutubeProvider) GetPageInfo(ctx context.Context, path string) (*media.PageInfo, error) {
	if videoID(path) != "" {
		return nil, fmt.Errorf("%w: %s is a video, not a channel", provider.ErrNotSupported, path)
	}
	doc, err := fetch.Document(ctx, p.client, channelURL(path), nil)
	if err != nil {
		return nil, err
	}
	props := fetch.MetaProperties(doc)
	name := props["og:title"]
	if name == "" {
		return nil, provider.ErrNotFound
	}
	nick := strings.Trim(provider.Path(path), "/")
	if canonical, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok && strings.Contains(canonical, "/@") {
		nick = canonical[strings.LastIndex(canonical, "/@")+1:]
	}
	return &media.PageInfo{
		Nick:        nick,
		Name:        name,
		Description: props["og:description"],
		Avatar:      media.ImagePtr(props["og:image"]),
	}, nil
}

func channelURL(path string) string {
	p := provider.Path(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return BaseURL + strings.TrimRight(p, "/")
}

// channelID accepts "/channel/<id>" directly and looks up handles and
// legacy user paths on the channel page.
func (p *YoutubeProvider) channelID(ctx context.Context, path string) (string, error) {
	segments := strings.Split(strings.Trim(provider.Path(path), "/"), "/")
	if len(segments) >= 2 && segments[0] == "channel" {
		return segments[1], nil
	}
	doc, err := fetch.Document(ctx, p.client, channelURL(path), nil)
	if err != nil {
		return "", err
	}
	if id, ok := doc.Find(`meta[itemprop="channelId"]`).Attr("content"); ok && id != "" {
		return id, nil
	}
	if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok && strings.Contains(href, "/channel/") {
		return href[strings.LastIndex(href, "/channel/")+len("/channel/"):], nil
	}
	return "", fmt.Errorf("%w: no channel id on %s", provider.ErrNotFound, channelURL(path))
}
