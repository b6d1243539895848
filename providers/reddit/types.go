package reddit

import (
	"encoding/json"
	"strings"
)

type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data postData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type previewSource struct {
	URL    string  `json:"url"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type redditVideo struct {
	FallbackURL string  `json:"fallback_url"`
	HLSURL      string  `json:"hls_url"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Duration    float64 `json:"duration"`
}

type postData struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Selftext    string          `json:"selftext"`
	CreatedUTC  float64         `json:"created_utc"`
	Score       *int            `json:"score"`
	NumComments *int            `json:"num_comments"`
	URL         string          `json:"url"`
	IsVideo     bool            `json:"is_video"`
	Media       json.RawMessage `json:"media"`
	SecureMedia struct {
		RedditVideo *redditVideo `json:"reddit_video"`
	} `json:"secure_media"`
	Preview struct {
		Images []struct {
			Source previewSource `json:"source"`
		} `json:"images"`
	} `json:"preview"`
}

// hasMedia reports whether the post carries an embedded media object.
func (p postData) hasMedia() bool {
	raw := strings.TrimSpace(string(p.Media))
	return raw != "" && raw != "null" && raw != "{}"
}

type subreddit struct {
	DisplayNamePrefixed   string `json:"display_name_prefixed"`
	DisplayName           string `json:"display_name"`
	PublicDescription     string `json:"public_description"`
	IconImg               string `json:"icon_img"`
	CommunityIcon         string `json:"community_icon"`
	BannerImg             string `json:"banner_img"`
	BannerBackgroundImage string `json:"banner_background_image"`
	Subscribers           *int   `json:"subscribers"`
}

type about struct {
	Data struct {
		subreddit
		Subreddit *subreddit `json:"subreddit"`
	} `json:"data"`
}

func unescape(u string) string {
	return strings.ReplaceAll(u, "&amp;", "&")
}
