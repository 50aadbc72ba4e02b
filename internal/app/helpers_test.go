package app_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"care-companion/internal/app"
	"care-companion/internal/domain"
)

// manualScheduler fires callbacks only when the test asks it to.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) app.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

// fire runs every armed timer that has not been stopped.
func (s *manualScheduler) fire() int {
	s.mu.Lock()
	var due []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

// fireStale runs every callback ever scheduled, including stopped ones, to
// model a timer that raced with Stop.
func (s *manualScheduler) fireStale() {
	s.mu.Lock()
	all := append([]*manualTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range all {
		t.fn()
	}
}

func (s *manualScheduler) armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeContent struct {
	mu          sync.Mutex
	prompts     map[string][]domain.Prompt
	answers     map[string]string
	fetchErr    error
	verifyErr   error
	fetchCalls  int
	verifyCalls int
	gate        chan struct{}
	entered     chan struct{}
}

func newFakeContent() *fakeContent {
	return &fakeContent{
		prompts: map[string][]domain.Prompt{
			"senior-1": samplePrompts(),
			"empty":    {},
		},
		answers: map[string]string{
			"p1": "Grandson Minsu",
			"p2": "Daughter Jiyoung",
		},
	}
}

func (f *fakeContent) FetchPrompts(_ context.Context, subjectID string) ([]domain.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	prompts, ok := f.prompts[subjectID]
	if !ok {
		return nil, domain.ErrSubjectNotFound
	}
	return append([]domain.Prompt(nil), prompts...), nil
}

func (f *fakeContent) VerifyAnswer(_ context.Context, promptID, answer string) (bool, error) {
	f.mu.Lock()
	f.verifyCalls++
	gate, entered := f.gate, f.entered
	err := f.verifyErr
	expected := f.answers[promptID]
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return false, err
	}
	return expected == answer, nil
}

func (f *fakeContent) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.verifyCalls
}

type failingIdentity struct{}

func (failingIdentity) CurrentSubjectID(context.Context) (string, error) {
	return "", domain.ErrUnauthenticated
}

var errNetwork = errors.New("network down")

func samplePrompts() []domain.Prompt {
	return []domain.Prompt{
		{ID: "p1", ImageURL: "/photos/1.jpg", Caption: "Grandson Minsu", Distractors: []string{"Nephew Jun", "Son Hyun"}},
		{ID: "p2", ImageURL: "https://cdn.example.com/2.jpg", Caption: "Daughter Jiyoung", Distractors: []string{"Niece Sora"}},
	}
}
