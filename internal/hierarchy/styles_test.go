package hierarchy

import (
	"testing"

	"github.com/starford/othala/internal/models"
)

func strptr(s string) *string { return &s }

func TestComputeStyleRules(t *testing.T) {
	containers := []models.Container{
		{Path: "Work/Work.md", Name: "Work", LightColor: strptr("#aabbcc"), DarkColor: strptr("#112233")},
		{Path: "Home/Home.md", Name: "Home", DarkColor: strptr("#445566")},
		{Path: "Void/Void.md", Name: "Void"},
	}

	rules := ComputeStyleRules(containers)
	if len(rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(rules))
	}

	if rules[0].Selector != `[data-container="Work"]` || rules[0].Theme != "light" || rules[0].Color != "#aabbcc" {
		t.Errorf("rule[0] = %+v", rules[0])
	}
	if rules[1].Theme != "dark" || rules[1].Color != "#112233" {
		t.Errorf("rule[1] = %+v", rules[1])
	}
	if rules[2].Selector != `[data-container="Home"]` {
		t.Errorf("rule[2] = %+v", rules[2])
	}
}

func TestComputeStyleRules_DeterministicIDs(t *testing.T) {
	c := models.Container{Path: "Work/Work.md", Name: "Work", LightColor: strptr("#aabbcc"), DarkColor: strptr("#112233")}

	first := ComputeStyleRules([]models.Container{c})
	second := ComputeStyleRules([]models.Container{c})
	if first[0].ID != second[0].ID {
		t.Errorf("same input produced different IDs: %s vs %s", first[0].ID, second[0].ID)
	}
	if first[0].ID == first[1].ID {
		t.Error("light and dark rules share an ID")
	}

	moved := c
	moved.Path = "Else/Work.md"
	other := ComputeStyleRules([]models.Container{moved})
	if other[0].ID == first[0].ID {
		t.Error("different paths share an ID")
	}
}

func TestComputeStyleRules_EmptyColorSkipped(t *testing.T) {
	c := models.Container{Path: "X/X.md", Name: "X", LightColor: strptr("")}
	if rules := ComputeStyleRules([]models.Container{c}); len(rules) != 0 {
		t.Errorf("got %d rules, want 0", len(rules))
	}
}
