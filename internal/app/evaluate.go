package app

import "care-companion/internal/domain"

// Badge is an achievement shown on the result screen.
type Badge struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Achieved    bool   `json:"achieved"`
}

// Evaluation is the presentation of a finished session.
type Evaluation struct {
	Summary domain.Summary `json:"summary"`
	Message string         `json:"message"`
	Badges  []Badge        `json:"badges"`
}

// Evaluate grades a summary into a message and badges.
func Evaluate(s domain.Summary) Evaluation {
	return Evaluation{
		Summary: s,
		Message: performanceMessage(s.Score),
		Badges: []Badge{
			{
				ID:          "family-master",
				Title:       "Family Master",
				Description: "8 or more correct answers",
				Achieved:    s.Correct >= 8,
			},
			{
				ID:          "quick-responder",
				Title:       "Quick Responder",
				Description: "60 points without a miss",
				Achieved:    s.Score >= 60 && s.Incorrect == 0,
			},
			{
				ID:          "perfectionist",
				Title:       "Perfectionist",
				Description: "Finished without a mistake",
				Achieved:    s.Incorrect == 0,
			},
		},
	}
}

func performanceMessage(score int) string {
	switch {
	case score >= 90:
		return "A perfect result!"
	case score >= 70:
		return "A great result!"
	case score >= 50:
		return "A good start. Keep going!"
	default:
		return "Practice makes it better!"
	}
}
