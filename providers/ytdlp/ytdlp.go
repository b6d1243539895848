// Package ytdlp resolves media on sites without a native provider by
// shelling out to yt-dlp.
package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	ytdlp "github.com/lrstanley/go-ytdlp"

	"github.com/krau/skraper/pkg/media"
	"github.com/krau/skraper/pkg/provider"
)

const DefaultFormat = "best[ext=mp4]/best"

// runFunc executes a prepared yt-dlp command against url.
type runFunc func(ctx context.Context, cmd *ytdlp.Command, url string) (*ytdlp.Result, error)

func runCommand(ctx context.Context, cmd *ytdlp.Command, url string) (*ytdlp.Result, error) {
	return cmd.Run(ctx, url)
}

type YtdlpProvider struct {
	hosts  []string
	format string
	proxy  string
	run    runFunc
}

var _ provider.ConfigurableProvider = (*YtdlpProvider)(nil)

func New(hosts []string, format string) *YtdlpProvider {
	if format == "" {
		format = DefaultFormat
	}
	return &YtdlpProvider{
		hosts:  append([]string(nil), hosts...),
		format: format,
		run:    runCommand,
	}
}

func (p *YtdlpProvider) Name() string {
	return "ytdlp"
}

func (p *YtdlpProvider) BaseURL() string {
	if len(p.hosts) == 0 {
		return ""
	}
	return "https://" + p.hosts[0]
}

func (p *YtdlpProvider) Supports(rawURL string) bool {
	return provider.MatchHost(rawURL, p.hosts...)
}

func (p *YtdlpProvider) Configure(config map[string]any) error {
	if config == nil {
		return nil
	}
	if format, ok := config["format"].(string); ok && format != "" {
		p.format = format
	}
	if proxyUrl, ok := config["proxy"].(string); ok {
		p.proxy = proxyUrl
	}
	return nil
}

func (p *YtdlpProvider) command() *ytdlp.Command {
	cmd := ytdlp.New().NoPlaylist().NoWarnings()
	if p.proxy != "" {
		cmd = cmd.Proxy(p.proxy)
	}
	return cmd
}

func (p *YtdlpProvider) exec(ctx context.Context, cmd *ytdlp.Command, url string) (string, error) {
	result, err := p.run(ctx, cmd, url)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("yt-dlp execution failed: %w", err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("yt-dlp exited with code %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return result.Stdout, nil
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// Resolve asks yt-dlp for the direct URL of the configured format. Kind and
// metadata of m are kept.
func (p *YtdlpProvider) Resolve(ctx context.Context, m media.Media) media.Media {
	if m.Kind == media.KindImage || !p.Supports(m.URL) {
		return m
	}
	logger := log.FromContext(ctx).WithPrefix("ytdlp")
	format := p.format
	if m.Kind == media.KindAudio {
		format = "bestaudio/" + format
	}
	out, err := p.exec(ctx, p.command().GetURL().Format(format), m.URL)
	if err != nil {
		logger.Debug("failed to resolve", "url", m.URL, "error", err)
		return m
	}
	direct := firstLine(out)
	if direct == "" || !strings.HasPrefix(direct, "http") {
		return m
	}
	return m.WithURL(direct)
}

type videoInfo struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Uploader      string  `json:"uploader"`
	UploaderID    string  `json:"uploader_id"`
	Timestamp     int64   `json:"timestamp"`
	Duration      float64 `json:"duration"`
	ViewCount     *int    `json:"view_count"`
	LikeCount     *int    `json:"like_count"`
	CommentCount  *int    `json:"comment_count"`
	RepostCount   *int    `json:"repost_count"`
	Thumbnail     string  `json:"thumbnail"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	WebpageURL    string  `json:"webpage_url"`
	Followers     *int    `json:"channel_follower_count"`
	Channel       string  `json:"channel"`
}

func (v videoInfo) toPost() (media.Post, bool) {
	if v.ID == "" || v.WebpageURL == "" {
		return media.Post{}, false
	}
	text := v.Title
	if v.Description != "" && v.Description != v.Title {
		text += "\n" + v.Description
	}
	opts := make([]media.Option, 0, 3)
	if r := media.Ratio(float64(v.Width), float64(v.Height)); r > 0 {
		opts = append(opts, media.WithAspectRatio(r))
	}
	if v.Duration > 0 {
		opts = append(opts, media.WithDuration(time.Duration(v.Duration*float64(time.Second))))
	}
	if thumb, err := media.New(media.KindImage, v.Thumbnail); err == nil {
		opts = append(opts, media.WithThumbnail(thumb))
	}
	video, err := media.New(media.KindVideo, v.WebpageURL, opts...)
	if err != nil {
		return media.Post{}, false
	}
	post := media.Post{
		ID:    v.ID,
		Text:  text,
		Media: []media.Media{video},
		Statistics: &media.PostStatistics{
			Likes:    v.LikeCount,
			Reposts:  v.RepostCount,
			Comments: v.CommentCount,
			Views:    v.ViewCount,
		},
	}
	if v.Uploader != "" || v.UploaderID != "" {
		post.Author = &media.PageInfo{Nick: v.UploaderID, Name: v.Uploader}
	}
	if v.Timestamp > 0 {
		post.PublishedAt = media.Time(time.Unix(v.Timestamp, 0).UTC())
	}
	return post, true
}

func (p *YtdlpProvider) pageURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return p.BaseURL() + path
}

// dump runs yt-dlp in JSON mode and decodes one info object per output line.
func (p *YtdlpProvider) dump(ctx context.Context, rawURL string, limit int, playlist bool) ([]videoInfo, error) {
	cmd := ytdlp.New().DumpJSON().NoWarnings().PlaylistItems("1:" + strconv.Itoa(limit))
	if !playlist {
		cmd = cmd.NoPlaylist()
	}
	if p.proxy != "" {
		cmd = cmd.Proxy(p.proxy)
	}
	out, err := p.exec(ctx, cmd, rawURL)
	if err != nil {
		return nil, err
	}
	var infos []videoInfo
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64<<10), 16<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var info videoInfo
		if err := json.Unmarshal([]byte(line), &info); err != nil {
			return nil, fmt.Errorf("failed to decode yt-dlp output: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, scanner.Err()
}

// GetPosts lists the videos yt-dlp extracts from path, one post each.
func (p *YtdlpProvider) GetPosts(ctx context.Context, path string, limit int) ([]media.Post, error) {
	limit = provider.Limit(limit)
	infos, err := p.dump(ctx, p.pageURL(path), limit, true)
	if err != nil {
		return nil, err
	}
	posts := make([]media.Post, 0, len(infos))
	for _, info := range infos {
		if post, ok := info.toPost(); ok {
			posts = append(posts, post)
		}
		if len(posts) >= limit {
			break
		}
	}
	return posts, nil
}

// GetPageInfo derives the uploader of the first extracted video.
func (p *YtdlpProvider) GetPageInfo(ctx context.Context, path string) (*media.PageInfo, error) {
	infos, err := p.dump(ctx, p.pageURL(path), 1, true)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, provider.ErrNotFound
	}
	info := infos[0]
	name := info.Channel
	if name == "" {
		name = info.Uploader
	}
	if name == "" {
		return nil, fmt.Errorf("%w: yt-dlp reported no uploader for %s", provider.ErrNotSupported, path)
	}
	page := &media.PageInfo{Nick: info.UploaderID, Name: name}
	if info.Followers != nil {
		page.Statistics = &media.PageStatistics{Followers: info.Followers}
	}
	return page, nil
}
