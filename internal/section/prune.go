package section

import "strings"

// PruneReferences removes every managed entry line linking to target,
// alias or not, anywhere in the document. Unlike AddEntry it performs no
// reorganization: lines are removed in place so untouched content keeps
// its exact position. Blank lines are cleaned up only inside managed
// section spans, and only when removal left them nothing to separate.
//
// The returned bool reports whether the text changed at all.
func PruneReferences(text, target string) (string, bool) {
	doc := Parse(text)

	removed := make([]bool, len(doc.Lines))
	changed := false
	for i, line := range doc.Lines {
		if t, ok := EntryTarget(line); ok && t == target {
			removed[i] = true
			changed = true
		}
	}
	if !changed {
		return text, false
	}

	// Spans and their surviving entry counts, measured before removal so
	// blank-line decisions use the original section boundaries.
	spanOf := make([]int, len(doc.Lines))
	for i := range spanOf {
		spanOf[i] = -1
	}
	surviving := make([]int, len(doc.Sections))
	for si, s := range doc.Sections {
		for i := s.Start; i < s.End; i++ {
			spanOf[i] = si
			if !removed[i] {
				if _, ok := EntryTarget(doc.Lines[i]); ok {
					surviving[si]++
				}
			}
		}
	}

	// hasLater[i]: a kept non-blank line exists at index >= i.
	hasLater := make([]bool, len(doc.Lines)+1)
	for i := len(doc.Lines) - 1; i >= 0; i-- {
		hasLater[i] = hasLater[i+1]
		if !removed[i] && !isBlank(doc.Lines[i]) {
			hasLater[i] = true
		}
	}

	// A final empty element is the trailing-newline terminator, not a
	// blank line, and is never normalized away.
	last := len(doc.Lines) - 1
	hasTerminator := last >= 0 && doc.Lines[last] == ""

	out := make([]string, 0, len(doc.Lines))
	for i, line := range doc.Lines {
		if removed[i] {
			continue
		}
		if si := spanOf[i]; si >= 0 && isBlank(line) && !(hasTerminator && i == last) {
			if surviving[si] == 0 || !hasLater[i+1] {
				continue
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n"), true
}
