package media

import (
	"errors"
	"fmt"
	"time"
)

type PostStatistics struct {
	Likes    *int `json:"likes,omitempty" yaml:"likes,omitempty"`
	Reposts  *int `json:"reposts,omitempty" yaml:"reposts,omitempty"`
	Comments *int `json:"comments,omitempty" yaml:"comments,omitempty"`
	Views    *int `json:"views,omitempty" yaml:"views,omitempty"`
}

type Post struct {
	ID          string          `json:"id" yaml:"id"`
	Text        string          `json:"text,omitempty" yaml:"text,omitempty"`
	Author      *PageInfo       `json:"author,omitempty" yaml:"author,omitempty"`
	PublishedAt *time.Time      `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	Statistics  *PostStatistics `json:"statistics,omitempty" yaml:"statistics,omitempty"`
	Media       []Media         `json:"media" yaml:"media"`
}

var ErrEmptyPostID = errors.New("post id is empty")

func (p Post) Validate() error {
	if p.ID == "" {
		return ErrEmptyPostID
	}
	for i, m := range p.Media {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("post %s media %d: %w", p.ID, i, err)
		}
	}
	return nil
}

type PageStatistics struct {
	Posts     *int `json:"posts,omitempty" yaml:"posts,omitempty"`
	Followers *int `json:"followers,omitempty" yaml:"followers,omitempty"`
	Following *int `json:"following,omitempty" yaml:"following,omitempty"`
}

type PageInfo struct {
	Nick        string          `json:"nick,omitempty" yaml:"nick,omitempty"`
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Statistics  *PageStatistics `json:"statistics,omitempty" yaml:"statistics,omitempty"`
	Avatar      *Media          `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	Cover       *Media          `json:"cover,omitempty" yaml:"cover,omitempty"`
}

// Int returns a pointer to v, for optional statistics fields.
func Int(v int) *int {
	return &v
}

// ImagePtr returns a pointer to an Image of url, or nil when url is empty
// or the result would be invalid.
func ImagePtr(url string, opts ...Option) *Media {
	if url == "" {
		return nil
	}
	m, err := New(KindImage, url, opts...)
	if err != nil {
		return nil
	}
	return &m
}

// Time returns a pointer to t, or nil for the zero time.
func Time(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
