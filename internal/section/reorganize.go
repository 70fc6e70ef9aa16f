package section

import "strings"

// Reorganize parses the text and rebuilds it with managed sections pulled
// into canonical order directly under the frontmatter. It is idempotent:
// reorganizing an already-reorganized document changes nothing.
func Reorganize(text string) Layout {
	return Parse(text).assemble(true)
}

// ReorganizeText is Reorganize for callers that only want the new text.
func ReorganizeText(text string) string {
	return strings.Join(Reorganize(text).Lines, "\n")
}
