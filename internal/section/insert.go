package section

import "strings"

// AddEntry inserts "- [[target]]" into the named managed section,
// reorganizing the document first. A missing section is created in
// canonical position. Validation happens before any rebuild, so an error
// means the text was not touched.
func AddEntry(text, name, target string) (string, error) {
	if err := ValidateSectionName(name); err != nil {
		return "", err
	}
	if err := ValidateTarget(target); err != nil {
		return "", err
	}

	lay := Reorganize(text)
	entry := FormatEntry(target)

	if start, ok := lay.Sections[name]; ok {
		at := entryInsertIndex(lay.Lines, start)
		if at == start+1 {
			// Nothing between header and insertion point: restore the
			// canonical blank after the header, so pruning a section empty
			// and refilling it reproduces the original text.
			return strings.Join(insertAt(lay.Lines, at, "", entry), "\n"), nil
		}
		return strings.Join(insertAt(lay.Lines, at, entry), "\n"), nil
	}

	// New section: header, blank, entry, trailing blank. It goes where the
	// canonical order dictates, which is the start of the first
	// canonically-later section that exists, else after the managed block.
	at := lay.ManagedEnd
	for _, later := range CanonicalOrder[canonicalIndex(name)+1:] {
		if start, ok := lay.Sections[later]; ok {
			at = start
			break
		}
	}
	block := []string{HeaderMarker + name, "", entry}
	if at >= len(lay.Lines) || !isBlank(lay.Lines[at]) {
		block = append(block, "")
	}
	return strings.Join(insertAt(lay.Lines, at, block...), "\n"), nil
}

// entryInsertIndex finds where a new entry belongs inside the section
// starting at headerIdx: after the last managed entry, where interior
// single blanks do not end the entry run, but any other content does.
func entryInsertIndex(lines []string, headerIdx int) int {
	end := spanEnd(lines, headerIdx)
	if end == len(lines) && end > headerIdx+1 && lines[end-1] == "" {
		// The final empty element is the trailing-newline terminator, not a
		// blank line; entries go before it.
		end--
	}
	i := headerIdx + 1
	for i < end && isBlank(lines[i]) {
		i++
	}
	at := i
	for i < end {
		if _, ok := EntryTarget(lines[i]); ok {
			i++
			at = i
			continue
		}
		if isBlank(lines[i]) && i+1 < end {
			if _, ok := EntryTarget(lines[i+1]); ok {
				i++
				continue
			}
		}
		break
	}
	return at
}

func insertAt(lines []string, at int, add ...string) []string {
	out := make([]string, 0, len(lines)+len(add))
	out = append(out, lines[:at]...)
	out = append(out, add...)
	out = append(out, lines[at:]...)
	return out
}
