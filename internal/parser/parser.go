// Package parser extracts frontmatter attributes, typed wikilinks, and
// titles from Markdown documents.
package parser

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/othala/internal/section"
)

const delim = "---"

var wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// LinkType distinguishes hierarchy edges from ordinary references.
type LinkType string

const (
	// LinkContainer is an entry in the Containers managed section: the
	// document claims the target as a hierarchy child.
	LinkContainer LinkType = "container"
	// LinkInline is any other wikilink in the document.
	LinkInline LinkType = "inline"
)

// Link is one outgoing reference, alias-normalized.
type Link struct {
	Target string
	Type   LinkType
}

// NoteType is the document kind declared in frontmatter under "type".
type NoteType string

const (
	TypeNote     NoteType = "note"
	TypeResource NoteType = "resource"
	TypePrompt   NoteType = "prompt"
)

// Attributes is the typed view of the frontmatter keys the system acts on.
// Everything else in the frontmatter is user data and passes through raw.
type Attributes struct {
	Container  bool
	Type       NoteType
	LightColor *string
	DarkColor  *string
}

// Result holds the output of parsing a Markdown document.
type Result struct {
	Frontmatter map[string]interface{}
	Attributes  Attributes
	Body        string
	Links       []Link
	Title       string
}

// Parse extracts frontmatter, typed attributes, body, and links from raw
// Markdown bytes. It never fails on malformed input: bad YAML degrades to a
// body-only document.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Attributes:  attributesFrom(fm),
		Body:        body,
		Links:       extractLinks(string(data)),
		Title:       deriveTitle(fm, body),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading ---
// delimiter lines) from the Markdown body. Missing, unclosed, or invalid
// frontmatter means the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	text := string(data)
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || lines[0] != delim {
		return nil, text, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if lines[i] == delim {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, text, nil
	}

	var fm map[string]interface{}
	block := strings.Join(lines[1:end], "\n")
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		// Invalid YAML: fall back to treating everything as body.
		return nil, text, nil
	}
	return fm, strings.Join(lines[end+1:], "\n"), nil
}

// attributesFrom reads the marker, type, and color keys. The container
// marker tolerates the string spellings Obsidian-style vaults end up with.
func attributesFrom(fm map[string]interface{}) Attributes {
	var a Attributes
	if fm == nil {
		return a
	}
	switch v := fm["container"].(type) {
	case bool:
		a.Container = v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		a.Container = s == "true" || s == "yes"
	}
	if s, ok := fm["type"].(string); ok {
		a.Type = NoteType(strings.TrimSpace(s))
	}
	a.LightColor = colorFrom(fm, "color-light")
	a.DarkColor = colorFrom(fm, "color-dark")
	return a
}

func colorFrom(fm map[string]interface{}, key string) *string {
	s, ok := fm[key].(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// extractLinks returns every outgoing reference, deduplicated per type.
// An entry line inside the Containers managed section is a container link;
// every other wikilink, anywhere outside the frontmatter, is inline.
func extractLinks(raw string) []Link {
	doc := section.Parse(raw)

	containers := make(map[int]bool)
	if s, ok := doc.Span(section.Containers); ok {
		for i := s.Start; i < s.End; i++ {
			containers[i] = true
		}
	}

	seen := make(map[Link]struct{})
	var out []Link
	add := func(l Link) {
		if _, dup := seen[l]; dup {
			return
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}

	for i := doc.FrontmatterEnd; i < len(doc.Lines); i++ {
		line := doc.Lines[i]
		if containers[i] {
			if target, ok := section.EntryTarget(line); ok {
				add(Link{Target: target, Type: LinkContainer})
				continue
			}
		}
		for _, m := range wikilinkRe.FindAllStringSubmatch(line, -1) {
			target := m[1]
			if j := strings.Index(target, "|"); j >= 0 {
				target = target[:j]
			}
			target = strings.TrimSpace(target)
			if target == "" {
				continue
			}
			add(Link{Target: target, Type: LinkInline})
		}
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// first H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
