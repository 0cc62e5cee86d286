package phrase

import (
	"regexp"
	"strings"
)

var (
	markdownMarkers = strings.NewReplacer("**", "", "__", "", "~~", "", "*", "", "`", "", "#", "")
	emojiPattern    = regexp.MustCompile(`[^\p{L}\p{N}\p{P}\p{Z}]`)
	spaceRuns       = regexp.MustCompile(`\s+`)
)

// Normalize prepares raw model output for synthesis: markdown markers and
// emoji are stripped and whitespace runs collapse to single spaces. Applied
// to engine input only; transported text events keep the original content.
func Normalize(text string) string {
	text = markdownMarkers.Replace(text)
	text = emojiPattern.ReplaceAllString(text, "")
	text = spaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
