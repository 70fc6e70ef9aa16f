package section

import (
	"strings"
	"testing"
)

func TestPrune_RemovesEntryKeepsShape(t *testing.T) {
	in := "## Resources\n\n- [[Alpha]]\n- [[Beta]]\n- [[Gamma]]\n\n## Prompts\n\n- [[P1]]\n"
	got, changed := PruneReferences(in, "Beta")
	if !changed {
		t.Fatal("changed = false, want true")
	}
	want := "## Resources\n\n- [[Alpha]]\n- [[Gamma]]\n\n## Prompts\n\n- [[P1]]\n"
	if got != want {
		t.Errorf("prune:\n got %q\nwant %q", got, want)
	}
}

func TestPrune_AliasFormMatches(t *testing.T) {
	in := "## Notes\n\n- [[Beta|The B Note]]\n- [[Alpha]]\n"
	got, changed := PruneReferences(in, "Beta")
	if !changed {
		t.Fatal("changed = false, want true")
	}
	want := "## Notes\n\n- [[Alpha]]\n"
	if got != want {
		t.Errorf("prune:\n got %q\nwant %q", got, want)
	}
}

func TestPrune_CollapsesEmptiedSection(t *testing.T) {
	in := "## Resources\n\n- [[X]]\n\n## Prompts\n\n- [[P]]\n"
	got, changed := PruneReferences(in, "X")
	if !changed {
		t.Fatal("changed = false, want true")
	}
	want := "## Resources\n## Prompts\n\n- [[P]]\n"
	if got != want {
		t.Errorf("prune:\n got %q\nwant %q", got, want)
	}
}

func TestPrune_RemovesEverywhereInDocument(t *testing.T) {
	in := "## Containers\n\n- [[X]]\n\n## Notes\n\n- [[X|x]]\n- [[Y]]\n\nfree text\n- [[X]]\n"
	got, changed := PruneReferences(in, "X")
	if !changed {
		t.Fatal("changed = false, want true")
	}
	if strings.Contains(got, "[[X") {
		t.Errorf("reference to X survived:\n%q", got)
	}
	want := "## Containers\n## Notes\n\n- [[Y]]\n\nfree text\n"
	if got != want {
		t.Errorf("prune:\n got %q\nwant %q", got, want)
	}
}

func TestPrune_OutsideSectionsBlanksUntouched(t *testing.T) {
	in := "user text\n\n- [[X]]\n\nmore prose\n"
	got, changed := PruneReferences(in, "X")
	if !changed {
		t.Fatal("changed = false, want true")
	}
	// Only the entry line goes; surrounding blank lines are user content.
	want := "user text\n\n\nmore prose\n"
	if got != want {
		t.Errorf("prune:\n got %q\nwant %q", got, want)
	}
}

func TestPrune_NoMatchReportsUnchanged(t *testing.T) {
	in := "## Notes\n\n- [[A]]\n\n\nweird   spacing\n"
	got, changed := PruneReferences(in, "Nope")
	if changed {
		t.Fatal("changed = true, want false")
	}
	if got != in {
		t.Errorf("text altered despite no match:\n got %q\nwant %q", got, in)
	}
}

func TestPrune_KeepsTrailingNewline(t *testing.T) {
	in := "## Notes\n\n- [[A]]\n- [[X]]\n"
	got, changed := PruneReferences(in, "X")
	if !changed {
		t.Fatal("changed = false, want true")
	}
	want := "## Notes\n\n- [[A]]\n"
	if got != want {
		t.Errorf("prune:\n got %q\nwant %q", got, want)
	}
}

func TestPrune_DropsFloatingBlankAtSectionEnd(t *testing.T) {
	in := "## Notes\n\n- [[A]]\n- [[X]]\n\n"
	got, changed := PruneReferences(in, "X")
	if !changed {
		t.Fatal("changed = false, want true")
	}
	want := "## Notes\n\n- [[A]]\n"
	if got != want {
		t.Errorf("prune:\n got %q\nwant %q", got, want)
	}
}

func TestPrune_DoesNotTouchOtherSections(t *testing.T) {
	in := "## Containers\n\n- [[Keep]]\n\n## Resources\n\n- [[X]]\n- [[Also]]\n"
	got, changed := PruneReferences(in, "X")
	if !changed {
		t.Fatal("changed = false, want true")
	}
	want := "## Containers\n\n- [[Keep]]\n\n## Resources\n\n- [[Also]]\n"
	if got != want {
		t.Errorf("prune:\n got %q\nwant %q", got, want)
	}
}
