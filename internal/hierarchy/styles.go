package hierarchy

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/models"
)

// styleNamespace seeds the deterministic rule identifiers: the same container
// path and theme always yield the same ID, so the presentation layer can
// apply and remove rules idempotently without tracking injection state.
var styleNamespace = uuid.MustParse("9f2c1d4e-63a8-4b7e-9c15-2e8f0a6d5b21")

// ComputeStyleRules derives presentational rules from container color
// metadata: one rule per container per defined theme color, in container
// order. It is pure and recomputed from scratch on demand.
func ComputeStyleRules(containers []models.Container) []models.StyleRule {
	rules := make([]models.StyleRule, 0, len(containers))
	for _, c := range containers {
		if c.LightColor != nil && *c.LightColor != "" {
			rules = append(rules, styleRule(c, "light", *c.LightColor))
		}
		if c.DarkColor != nil && *c.DarkColor != "" {
			rules = append(rules, styleRule(c, "dark", *c.DarkColor))
		}
	}
	return rules
}

func styleRule(c models.Container, theme, color string) models.StyleRule {
	id := uuid.NewSHA1(styleNamespace, []byte(c.Path+"\x00"+theme))
	return models.StyleRule{
		ID:       id.String(),
		Selector: fmt.Sprintf("[data-container=%q]", c.Name),
		Theme:    theme,
		Color:    color,
	}
}
