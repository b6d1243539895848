package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/krau/skraper/common/utils/strutil"
	"github.com/krau/skraper/pkg/media"
)

type lineWriter struct {
	w   io.Writer
	err error
}

func (lw *lineWriter) printf(format string, args ...any) {
	if lw.err != nil {
		return
	}
	_, lw.err = fmt.Fprintf(lw.w, format, args...)
}

func formatMedia(m media.Media) string {
	var attrs []string
	if m.HasAspectRatio() {
		attrs = append(attrs, fmt.Sprintf("%.2f", m.AspectRatio))
	}
	if m.Duration > 0 {
		attrs = append(attrs, m.Duration.Round(time.Second).String())
	}
	s := fmt.Sprintf("%s %s", m.Kind, m.URL)
	if len(attrs) > 0 {
		s += " (" + strings.Join(attrs, ", ") + ")"
	}
	return s
}

func stat(name string, v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%s %s", humanize.Comma(int64(*v)), name)
}

func joinStats(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " | ")
}

func indent(text string) string {
	return "  " + strings.ReplaceAll(strings.TrimSpace(text), "\n", "\n  ")
}

func writePostsLog(w io.Writer, posts []media.Post) error {
	lw := &lineWriter{w: w}
	for i, post := range posts {
		header := fmt.Sprintf("[%d/%d] %s", i+1, len(posts), post.ID)
		if post.Author != nil && post.Author.Name != "" {
			header += " by " + post.Author.Name
		}
		if post.PublishedAt != nil {
			header += " at " + post.PublishedAt.Local().Format(time.DateTime)
		}
		lw.printf("%s\n", header)
		if post.Text != "" {
			lw.printf("%s\n", indent(post.Text))
			if tags := strutil.Hashtags(post.Text); len(tags) > 0 {
				lw.printf("  tags: #%s\n", strings.Join(tags, " #"))
			}
		}
		if post.Statistics != nil {
			s := post.Statistics
			if line := joinStats(stat("likes", s.Likes), stat("reposts", s.Reposts), stat("comments", s.Comments), stat("views", s.Views)); line != "" {
				lw.printf("  %s\n", line)
			}
		}
		for _, m := range post.Media {
			lw.printf("  - %s\n", formatMedia(m))
			if m.Thumbnail != nil {
				lw.printf("    thumbnail %s\n", m.Thumbnail.URL)
			}
		}
		lw.printf("\n")
	}
	return lw.err
}

func writePageLog(w io.Writer, info *media.PageInfo) error {
	lw := &lineWriter{w: w}
	if info == nil {
		lw.printf("no page info\n")
		return lw.err
	}
	title := info.Name
	if info.Nick != "" {
		title += " (" + info.Nick + ")"
	}
	lw.printf("%s\n", strings.TrimSpace(title))
	if info.Description != "" {
		lw.printf("%s\n", indent(info.Description))
	}
	if s := info.Statistics; s != nil {
		if line := joinStats(stat("posts", s.Posts), stat("followers", s.Followers), stat("following", s.Following)); line != "" {
			lw.printf("  %s\n", line)
		}
	}
	if info.Avatar != nil {
		lw.printf("  avatar %s\n", info.Avatar.URL)
	}
	if info.Cover != nil {
		lw.printf("  cover %s\n", info.Cover.URL)
	}
	return lw.err
}
