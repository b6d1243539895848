package youtube

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/krau/skraper/pkg/fetch"
	"github.com/krau/skraper/pkg/media"
)

// feedPosts reads the public uploads feed of a channel. It holds the 15
// latest videos.
func (p *YoutubeProvider) feedPosts(ctx context.Context, channelID string) ([]media.Post, error) {
	u := fetch.BuildURL(BaseURL, "/feeds/videos.xml", map[string]any{"channel_id": channelID})
	body, err := p.client.Fetch(ctx, fetch.Get(u))
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel feed: %w", err)
	}
	var author *media.PageInfo
	if len(feed.Authors) > 0 {
		author = &media.PageInfo{Name: feed.Authors[0].Name}
	} else if feed.Title != "" {
		author = &media.PageInfo{Name: feed.Title}
	}
	posts := make([]media.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		post, ok := itemToPost(item)
		if !ok {
			continue
		}
		post.Author = author
		posts = append(posts, post)
	}
	return posts, nil
}

func firstExt(exts map[string][]ext.Extension, name string) (ext.Extension, bool) {
	if list := exts[name]; len(list) > 0 {
		return list[0], true
	}
	return ext.Extension{}, false
}

func itemToPost(item *gofeed.Item) (media.Post, bool) {
	var id string
	if v, ok := firstExt(item.Extensions["yt"], "videoId"); ok {
		id = v.Value
	}
	if id == "" {
		return media.Post{}, false
	}
	post := media.Post{
		ID:          id,
		Text:        item.Title,
		PublishedAt: item.PublishedParsed,
	}
	var opts []media.Option
	if group, ok := firstExt(item.Extensions["media"], "group"); ok {
		if desc, ok := firstExt(group.Children, "description"); ok && desc.Value != "" {
			post.Text += "\n" + desc.Value
		}
		if thumb, ok := firstExt(group.Children, "thumbnail"); ok {
			w, _ := strconv.ParseFloat(thumb.Attrs["width"], 64)
			h, _ := strconv.ParseFloat(thumb.Attrs["height"], 64)
			if img, err := media.New(media.KindImage, thumb.Attrs["url"], media.WithAspectRatio(media.Ratio(w, h))); err == nil {
				opts = append(opts, media.WithThumbnail(img))
			}
		}
		if community, ok := firstExt(group.Children, "community"); ok {
			stats := &media.PostStatistics{}
			if s, ok := firstExt(community.Children, "statistics"); ok {
				if views, err := strconv.Atoi(s.Attrs["views"]); err == nil {
					stats.Views = media.Int(views)
				}
			}
			if r, ok := firstExt(community.Children, "starRating"); ok {
				if likes, err := strconv.Atoi(r.Attrs["count"]); err == nil {
					stats.Likes = media.Int(likes)
				}
			}
			post.Statistics = stats
		}
	}
	post.Media = []media.Media{media.Video(watchURL(id), opts...)}
	return post, true
}
