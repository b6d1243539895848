package strutil

import (
	"regexp"

	"github.com/duke-git/lancet/v2/slice"
)

// a tag must start the text or follow whitespace or punctuation, so "C#" and
// "page#anchor" are not tags.
var hashtagRe = regexp.MustCompile(`(?:^|[\p{Zs}\s.,!?(){}[\]<>"'，。！？（）：；、])#([\p{L}\d_]+)`)

// Hashtags returns the distinct hashtags of text without the leading '#', in
// order of first appearance.
func Hashtags(text string) []string {
	matches := hashtagRe.FindAllStringSubmatch(text, -1)
	tags := make([]string, 0, len(matches))
	for _, match := range matches {
		tags = append(tags, match[1])
	}
	return slice.Unique(tags)
}
