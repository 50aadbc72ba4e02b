package app

import (
	"math/rand"
	"strings"

	"care-companion/internal/domain"
)

// BuildChoices returns the caption and distinct distractors of p in shuffled
// order. Blank and duplicate labels are dropped.
func BuildChoices(p domain.Prompt, rnd *rand.Rand) []string {
	seen := make(map[string]struct{}, len(p.Distractors)+1)
	choices := make([]string, 0, len(p.Distractors)+1)
	add := func(label string) {
		label = strings.TrimSpace(label)
		if label == "" {
			return
		}
		if _, ok := seen[label]; ok {
			return
		}
		seen[label] = struct{}{}
		choices = append(choices, label)
	}

	add(p.Caption)
	for _, d := range p.Distractors {
		add(d)
	}

	if rnd != nil {
		rnd.Shuffle(len(choices), func(i, j int) {
			choices[i], choices[j] = choices[j], choices[i]
		})
	}
	return choices
}
