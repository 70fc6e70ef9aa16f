// Package section implements the managed-section grammar for vault
// documents: a fixed set of "## <Name>" sections holding wikilink list
// entries, kept in canonical order above any free-form content.
//
// All operations are pure text transformations on full document strings.
// Everything outside a managed section span is user content and is carried
// through untouched.
package section

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/othala/internal/apperr"
)

const (
	// FrontmatterDelim opens and closes the YAML frontmatter block.
	FrontmatterDelim = "---"

	// HeaderMarker prefixes a managed section header line.
	HeaderMarker = "## "
)

// Section names in canonical order. Mutations only ever target these.
const (
	Containers = "Containers"
	Notes      = "Notes"
	Resources  = "Resources"
	Prompts    = "Prompts"
)

// CanonicalOrder is the fixed sequence managed sections appear in after a
// reorganize. Names not listed here are never managed.
var CanonicalOrder = []string{Containers, Notes, Resources, Prompts}

var entryRe = regexp.MustCompile(`^- \[\[([^\[\]]+)\]\]$`)

func canonicalIndex(name string) int {
	for i, n := range CanonicalOrder {
		if n == name {
			return i
		}
	}
	return -1
}

// headerName extracts the section name from a header line. The line is
// trimmed first, so indented headers still count.
func headerName(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, HeaderMarker) {
		return "", false
	}
	return t[len(HeaderMarker):], true
}

func isHeaderLine(line string) bool {
	_, ok := headerName(line)
	return ok
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// EntryTarget reports whether the line is a managed list entry and, if so,
// the link target with any "|alias" suffix stripped.
func EntryTarget(line string) (string, bool) {
	m := entryRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	inner := m[1]
	if i := strings.Index(inner, "|"); i >= 0 {
		inner = inner[:i]
	}
	target := strings.TrimSpace(inner)
	return target, target != ""
}

// FormatEntry renders the canonical entry line for a target.
func FormatEntry(target string) string {
	return "- [[" + target + "]]"
}

// ValidateSectionName rejects names outside the canonical set.
func ValidateSectionName(name string) error {
	if canonicalIndex(name) < 0 {
		return &apperr.ValidationError{Field: "section", Reason: fmt.Sprintf("unknown section %q", name)}
	}
	return nil
}

// ValidateTarget rejects link targets that cannot survive a round trip
// through the entry grammar.
func ValidateTarget(target string) error {
	if strings.TrimSpace(target) == "" {
		return &apperr.ValidationError{Field: "target", Reason: "empty target"}
	}
	if strings.ContainsAny(target, "[]|\n") {
		return &apperr.ValidationError{Field: "target", Reason: "target contains reserved characters"}
	}
	return nil
}
