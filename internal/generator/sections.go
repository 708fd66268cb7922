package generator

import (
	"regexp"
	"strings"
)

const (
	chapterTag  = "chapter"
	progressTag = "progress"
)

var tagPattern = regexp.MustCompile(`\[(\w+)\]`)

// ParseSections maps lowercase tag names to their trimmed content. Content runs
// from the tag to the next tag or the end of the reply; a repeated tag keeps
// its last occurrence.
func ParseSections(reply string) map[string]string {
	sections := map[string]string{}
	matches := tagPattern.FindAllStringSubmatchIndex(reply, -1)
	for i, match := range matches {
		tag := strings.ToLower(reply[match[2]:match[3]])
		end := len(reply)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections[tag] = strings.TrimSpace(reply[match[1]:end])
	}
	return sections
}
