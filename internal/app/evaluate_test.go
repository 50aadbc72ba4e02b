package app_test

import (
	"math/rand"
	"testing"

	"care-companion/internal/app"
	"care-companion/internal/domain"
)

func TestEvaluateMessagesAndBadges(t *testing.T) {
	cases := []struct {
		summary  domain.Summary
		message  string
		achieved map[string]bool
	}{
		{
			summary:  domain.Summary{Score: 100, Total: 10, Correct: 10},
			message:  "A perfect result!",
			achieved: map[string]bool{"family-master": true, "quick-responder": true, "perfectionist": true},
		},
		{
			summary:  domain.Summary{Score: 70, Total: 10, Correct: 7, Incorrect: 3},
			message:  "A great result!",
			achieved: map[string]bool{"family-master": false, "quick-responder": false, "perfectionist": false},
		},
		{
			summary:  domain.Summary{Score: 50, Total: 5, Correct: 5},
			message:  "A good start. Keep going!",
			achieved: map[string]bool{"family-master": false, "quick-responder": false, "perfectionist": true},
		},
		{
			summary:  domain.Summary{Score: 0, Total: 2, Incorrect: 2},
			message:  "Practice makes it better!",
			achieved: map[string]bool{"family-master": false, "quick-responder": false, "perfectionist": false},
		},
	}

	for _, tc := range cases {
		ev := app.Evaluate(tc.summary)
		if ev.Message != tc.message {
			t.Fatalf("score %d: expected %q, got %q", tc.summary.Score, tc.message, ev.Message)
		}
		for _, b := range ev.Badges {
			if b.Achieved != tc.achieved[b.ID] {
				t.Fatalf("score %d: badge %s achieved=%v", tc.summary.Score, b.ID, b.Achieved)
			}
		}
	}
}

func TestBuildChoicesDropsBlanksAndDuplicates(t *testing.T) {
	p := domain.Prompt{ID: "p", Caption: "Mom", Distractors: []string{"Dad", " ", "Mom", "Dad", "Aunt"}}

	choices := app.BuildChoices(p, rand.New(rand.NewSource(1)))
	if len(choices) != 3 {
		t.Fatalf("expected 3 distinct choices, got %v", choices)
	}
	seen := map[string]bool{}
	for _, c := range choices {
		seen[c] = true
	}
	for _, want := range []string{"Mom", "Dad", "Aunt"} {
		if !seen[want] {
			t.Fatalf("missing %q in %v", want, choices)
		}
	}

	ordered := app.BuildChoices(p, nil)
	if ordered[0] != "Mom" {
		t.Fatalf("expected caption first without shuffling, got %v", ordered)
	}
}

func TestResolveImageURL(t *testing.T) {
	cases := []struct{ base, ref, want string }{
		{"https://api.example.com", "/uploads/a.jpg", "https://api.example.com/uploads/a.jpg"},
		{"https://api.example.com/", "uploads/a.jpg", "https://api.example.com/uploads/a.jpg"},
		{"https://api.example.com", "http://cdn/a.jpg", "http://cdn/a.jpg"},
		{"", "uploads/a.jpg", "uploads/a.jpg"},
		{"https://api.example.com", "", ""},
	}
	for _, tc := range cases {
		if got := app.ResolveImageURL(tc.base, tc.ref); got != tc.want {
			t.Fatalf("ResolveImageURL(%q, %q) = %q, want %q", tc.base, tc.ref, got, tc.want)
		}
	}
}
