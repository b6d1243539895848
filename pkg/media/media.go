package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindImage
	KindVideo
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// DefaultExtension is used when a terminal URL carries no extension.
func (k Kind) DefaultExtension() string {
	switch k {
	case KindImage:
		return "png"
	case KindVideo:
		return "mp4"
	case KindAudio:
		return "mp3"
	default:
		return ""
	}
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "img", "photo":
		return KindImage, nil
	case "video":
		return KindVideo, nil
	case "audio":
		return KindAudio, nil
	case "unknown", "":
		return KindUnknown, nil
	}
	return KindUnknown, fmt.Errorf("unknown media kind: %s", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Media is an immutable reference to an image, video or audio attachment.
// Use the constructors; the zero value is not valid.
type Media struct {
	Kind        Kind          `json:"kind" yaml:"kind"`
	URL         string        `json:"url" yaml:"url"`
	AspectRatio float64       `json:"aspect_ratio,omitempty" yaml:"aspect_ratio,omitempty"`
	Thumbnail   *Media        `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	Duration    time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

type Option func(*Media)

func WithAspectRatio(ratio float64) Option {
	return func(m *Media) {
		m.AspectRatio = ratio
	}
}

func WithDuration(d time.Duration) Option {
	return func(m *Media) {
		m.Duration = d
	}
}

// WithThumbnail only applies to videos.
func WithThumbnail(thumb Media) Option {
	return func(m *Media) {
		m.Thumbnail = &thumb
	}
}

// New is the checked constructor for values taken from scraped pages: an
// invalid combination is reported instead of panicking.
func New(kind Kind, url string, opts ...Option) (Media, error) {
	m := Media{Kind: kind, URL: url}
	for _, opt := range opts {
		opt(&m)
	}
	if err := m.Validate(); err != nil {
		return Media{}, err
	}
	return m, nil
}

func newMedia(kind Kind, url string, opts ...Option) Media {
	m, err := New(kind, url, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Ratio returns w/h, or 0 when either side is not a positive finite number.
func Ratio(w, h float64) float64 {
	if !(w > 0) || !(h > 0) || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return 0
	}
	r := w / h
	if math.IsInf(r, 0) || r == 0 {
		return 0
	}
	return r
}

func Image(url string, opts ...Option) Media {
	return newMedia(KindImage, url, opts...)
}

func Video(url string, opts ...Option) Media {
	return newMedia(KindVideo, url, opts...)
}

func Audio(url string, opts ...Option) Media {
	return newMedia(KindAudio, url, opts...)
}

func Unknown(url string) Media {
	return newMedia(KindUnknown, url)
}

var (
	ErrEmptyURL          = errors.New("media url is empty")
	ErrBadAspectRatio    = errors.New("media aspect ratio must be positive")
	ErrUnexpectedField   = errors.New("media field not allowed for kind")
	ErrThumbnailNotImage = errors.New("video thumbnail must be an image")
)

func (m Media) Validate() error {
	if strings.TrimSpace(m.URL) == "" {
		return ErrEmptyURL
	}
	if m.AspectRatio < 0 || math.IsNaN(m.AspectRatio) || math.IsInf(m.AspectRatio, 0) {
		return fmt.Errorf("%w: %v", ErrBadAspectRatio, m.AspectRatio)
	}
	switch m.Kind {
	case KindVideo:
		if m.Thumbnail != nil {
			if m.Thumbnail.Kind != KindImage {
				return ErrThumbnailNotImage
			}
			if err := m.Thumbnail.Validate(); err != nil {
				return fmt.Errorf("thumbnail: %w", err)
			}
		}
	case KindAudio:
		if m.Thumbnail != nil {
			return fmt.Errorf("%w: thumbnail on %s", ErrUnexpectedField, m.Kind)
		}
	case KindImage, KindUnknown:
		if m.Thumbnail != nil {
			return fmt.Errorf("%w: thumbnail on %s", ErrUnexpectedField, m.Kind)
		}
		if m.Duration != 0 {
			return fmt.Errorf("%w: duration on %s", ErrUnexpectedField, m.Kind)
		}
		if m.Kind == KindUnknown && m.AspectRatio != 0 {
			return fmt.Errorf("%w: aspect ratio on %s", ErrUnexpectedField, m.Kind)
		}
	default:
		return fmt.Errorf("invalid media kind %d", m.Kind)
	}
	return nil
}

// WithURL returns a copy of m pointing at url. Kind and metadata are kept.
func (m Media) WithURL(url string) Media {
	m.URL = url
	return m
}

func (m Media) HasAspectRatio() bool {
	return m.AspectRatio > 0
}

func (m Media) String() string {
	return fmt.Sprintf("%s(%s)", m.Kind, m.URL)
}

type mediaJSON struct {
	Kind        Kind    `json:"kind"`
	URL         string  `json:"url"`
	AspectRatio float64 `json:"aspect_ratio,omitempty"`
	Thumbnail   *Media  `json:"thumbnail,omitempty"`
	Duration    float64 `json:"duration,omitempty"` // seconds
}

func (m Media) MarshalJSON() ([]byte, error) {
	return json.Marshal(mediaJSON{
		Kind:        m.Kind,
		URL:         m.URL,
		AspectRatio: m.AspectRatio,
		Thumbnail:   m.Thumbnail,
		Duration:    m.Duration.Seconds(),
	})
}

func (m *Media) UnmarshalJSON(data []byte) error {
	var raw mediaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Media{
		Kind:        raw.Kind,
		URL:         raw.URL,
		AspectRatio: raw.AspectRatio,
		Thumbnail:   raw.Thumbnail,
		Duration:    time.Duration(raw.Duration * float64(time.Second)),
	}
	return m.Validate()
}
