package domain

import "time"

// Screen identifies a navigation target on the device.
type Screen string

const (
	ScreenNone       Screen = ""
	ScreenHome       Screen = "Home"
	ScreenGame       Screen = "Game"
	ScreenGameResult Screen = "GameResult"
	ScreenHealth     Screen = "Health"
	ScreenMedicine   Screen = "Medicine"
	ScreenSchedule   Screen = "Schedule"
	ScreenRegister   Screen = "Register"
)

// InboundMessage is a push payload as delivered by the notification source.
type InboundMessage struct {
	Title string            `json:"title,omitempty"`
	Body  string            `json:"body,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// Prompt is one photo question of a recall game.
type Prompt struct {
	ID          string   `json:"id"`
	ImageURL    string   `json:"imageUrl"`
	Caption     string   `json:"caption"`
	Distractors []string `json:"distractors,omitempty"`
}

// Status is the lifecycle state of a game session.
type Status string

const (
	StatusLoading    Status = "loading"
	StatusActive     Status = "active"
	StatusSubmitting Status = "submitting"
	StatusFinished   Status = "finished"
	StatusError      Status = "error"
)

// Outcome reports what a submit call did.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeFailed    Outcome = "failed"
)

// Summary is the result handed over when a session finishes.
type Summary struct {
	Score     int `json:"score"`
	Total     int `json:"total"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Hints     int `json:"hints"`
}

// ResultRecord is a finished session as kept by the result store.
type ResultRecord struct {
	SubjectID  string    `json:"subjectId"`
	Summary    Summary   `json:"summary"`
	FinishedAt time.Time `json:"finishedAt"`
}

// PushEnvelope carries an InboundMessage addressed to a subject.
type PushEnvelope struct {
	SubjectID string `json:"subjectId"`
	InboundMessage
}
