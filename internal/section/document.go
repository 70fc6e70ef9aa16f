package section

import "strings"

// Span marks the half-open line range [Start, End) a managed section
// occupies, header line included.
type Span struct {
	Name  string
	Start int
	End   int
}

// Document is the line-level view of a vault document. Lines come from
// splitting on "\n", so a trailing newline shows up as a final empty
// element and survives Serialize.
type Document struct {
	Lines          []string
	FrontmatterEnd int
	Sections       []Span
}

// Parse builds the line model. It never fails: malformed input simply
// yields fewer recognized spans.
func Parse(text string) *Document {
	lines := strings.Split(text, "\n")
	fmEnd := frontmatterEnd(lines)
	return &Document{
		Lines:          lines,
		FrontmatterEnd: fmEnd,
		Sections:       findSections(lines, fmEnd),
	}
}

// frontmatterEnd returns the index of the first line after the closing
// delimiter, or 0 when the document has no (or an unclosed) frontmatter
// block. An unclosed block is treated as plain content.
func frontmatterEnd(lines []string) int {
	if len(lines) == 0 || lines[0] != FrontmatterDelim {
		return 0
	}
	for i := 1; i < len(lines); i++ {
		if lines[i] == FrontmatterDelim {
			return i + 1
		}
	}
	return 0
}

// findSections locates the first occurrence of each canonical section at or
// after the frontmatter. A span runs from its header to the next header
// line of any name, or end of document. Repeated headers beyond the first
// are left to the user-content remainder.
func findSections(lines []string, fmEnd int) []Span {
	var spans []Span
	for _, name := range CanonicalOrder {
		for i := fmEnd; i < len(lines); i++ {
			if n, ok := headerName(lines[i]); ok && n == name {
				spans = append(spans, Span{Name: name, Start: i, End: spanEnd(lines, i)})
				break
			}
		}
	}
	return spans
}

func spanEnd(lines []string, start int) int {
	for i := start + 1; i < len(lines); i++ {
		if isHeaderLine(lines[i]) {
			return i
		}
	}
	return len(lines)
}

// Span returns the span for a canonical section name, if present.
func (d *Document) Span(name string) (Span, bool) {
	for _, s := range d.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Span{}, false
}

// Serialize reassembles the document: frontmatter, managed sections in
// canonical order, then everything else in original order. A document with
// no managed sections round-trips byte for byte.
func (d *Document) Serialize() string {
	lay := d.assemble(false)
	return strings.Join(lay.Lines, "\n")
}

// Layout is the result of a rebuild: the new lines plus the positions
// mutators need, so they never re-scan the text they just produced.
type Layout struct {
	Lines          []string
	Sections       map[string]int // section name -> header line index
	FrontmatterEnd int
	ManagedEnd     int // index just past the last managed section
}

func (d *Document) assemble(separate bool) Layout {
	captured := make([]bool, len(d.Lines))
	for _, s := range d.Sections {
		for i := s.Start; i < s.End; i++ {
			captured[i] = true
		}
	}

	out := make([]string, 0, len(d.Lines)+1)
	out = append(out, d.Lines[:d.FrontmatterEnd]...)

	headers := make(map[string]int, len(d.Sections))
	for _, s := range d.Sections {
		headers[s.Name] = len(out)
		out = append(out, d.Lines[s.Start:s.End]...)
	}
	managedEnd := len(out)

	var rest []string
	for i := d.FrontmatterEnd; i < len(d.Lines); i++ {
		if !captured[i] {
			rest = append(rest, d.Lines[i])
		}
	}
	if len(rest) > 0 {
		// One blank detaches the managed block from trailing user content,
		// unless the remainder already starts detached (blank or header).
		if separate && len(out) > 0 && !isBlank(out[len(out)-1]) && !isBlank(rest[0]) && !isHeaderLine(rest[0]) {
			out = append(out, "")
		}
		out = append(out, rest...)
	}

	return Layout{
		Lines:          out,
		Sections:       headers,
		FrontmatterEnd: d.FrontmatterEnd,
		ManagedEnd:     managedEnd,
	}
}
