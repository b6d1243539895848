package twitter

type FxTwitterApiResp struct {
	Code    int     `json:"code"`
	Message string  `json:"message"`
	Tweet   FxTweet `json:"tweet"`
}

type FxUserApiResp struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	User    FxUser `json:"user"`
}

type FxTweet struct {
	URL              string  `json:"url"`
	ID               string  `json:"id"`
	Text             string  `json:"text"`
	CreatedTimestamp int64   `json:"created_timestamp"`
	Author           FxUser  `json:"author"`
	Replies          *int    `json:"replies"`
	Retweets         *int    `json:"retweets"`
	Likes            *int    `json:"likes"`
	Views            *int    `json:"views"`
	Media            FxMedia `json:"media"`
}

type FxUser struct {
	ScreenName  string `json:"screen_name"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatar_url"`
	BannerURL   string `json:"banner_url"`
	Followers   *int   `json:"followers"`
	Following   *int   `json:"following"`
	Tweets      *int   `json:"tweets"`
}

type FxMedia struct {
	All []FxMediaItem `json:"all"`
}

type FxMediaItem struct {
	Type         string  `json:"type"` // photo, video or gif
	URL          string  `json:"url"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	Duration     float64 `json:"duration"`
}
