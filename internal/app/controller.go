package app

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"care-companion/internal/domain"
)

const (
	// ScorePerCorrect is awarded for every verified answer.
	ScorePerCorrect = 10
	// DefaultAdvanceDelay is how long feedback stays on screen before the next prompt.
	DefaultAdvanceDelay = 1100 * time.Millisecond
)

const (
	feedbackCorrect      = "Correct! Well done."
	feedbackIncorrect    = "Not quite. Let's try the next one."
	feedbackVerifyFailed = "Could not check your answer. Please try again in a moment."
	loadFailedMessage    = "Could not load photos. Please try again."
)

// State is a read-only snapshot of a game session.
type State struct {
	Status      domain.Status   `json:"status"`
	Index       int             `json:"index"`
	Total       int             `json:"total"`
	Progress    string          `json:"progress"`
	Score       int             `json:"score"`
	Correct     int             `json:"correct"`
	Incorrect   int             `json:"incorrect"`
	Hints       int             `json:"hints"`
	PromptID    string          `json:"promptId,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Candidate   string          `json:"candidate,omitempty"`
	Choices     []string        `json:"choices,omitempty"`
	HintVisible bool            `json:"hintVisible"`
	Hint        string          `json:"hint,omitempty"`
	Feedback    string          `json:"feedback,omitempty"`
	Error       string          `json:"error,omitempty"`
	Summary     *domain.Summary `json:"summary,omitempty"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithAdvanceDelay overrides DefaultAdvanceDelay.
func WithAdvanceDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.advanceDelay = d
		}
	}
}

// WithScheduler replaces the timer source used for advancement.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.scheduler = s }
}

// WithChoices switches the session to multiple choice: each prompt offers its
// caption and distractors in shuffled order.
func WithChoices(rnd *rand.Rand) Option {
	return func(c *Controller) {
		c.choices = true
		c.rnd = rnd
	}
}

// WithImageBase resolves relative image references against base.
func WithImageBase(base string) Option {
	return func(c *Controller) { c.imageBase = base }
}

// WithOnChange registers a callback receiving every new snapshot.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithOnFinish registers a callback receiving the summary when a session ends.
func WithOnFinish(fn func(domain.Summary)) Option {
	return func(c *Controller) { c.onFinish = fn }
}

// Controller runs one photo-recall game session.
// Callbacks are invoked in commit order and must not call back into the
// controller.
type Controller struct {
	content      ContentService
	identity     IdentityService
	scheduler    Scheduler
	advanceDelay time.Duration
	choices      bool
	rnd          *rand.Rand
	imageBase    string
	onChange     func(State)
	onFinish     func(domain.Summary)

	notifyMu sync.Mutex

	mu          sync.Mutex
	status      domain.Status
	prompts     []domain.Prompt
	index       int
	score       int
	correct     int
	incorrect   int
	hints       int
	feedback    string
	candidate   string
	options     []string
	hintVisible bool
	hintCounted bool
	verdict     domain.Outcome
	lastErr     string
	summary     *domain.Summary
	gen         uint64
	timer       Timer
	closed      bool
}

func NewController(content ContentService, identity IdentityService, opts ...Option) *Controller {
	c := &Controller{
		content:      content,
		identity:     identity,
		scheduler:    RealScheduler{},
		advanceDelay: DefaultAdvanceDelay,
		status:       domain.StatusLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.choices && c.rnd == nil {
		c.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c
}

// Load resolves the current subject and loads its prompts.
// An identity failure aborts before any prompt fetch.
func (c *Controller) Load(ctx context.Context) error {
	gen, ok := c.beginLoad()
	if !ok {
		return nil
	}
	subjectID, err := c.identity.CurrentSubjectID(ctx)
	if err != nil {
		c.failLoad(gen)
		return fmt.Errorf("resolve subject: %w", err)
	}
	return c.load(ctx, gen, subjectID)
}

// LoadSubject loads the prompts of subjectID and resets the session.
func (c *Controller) LoadSubject(ctx context.Context, subjectID string) error {
	gen, ok := c.beginLoad()
	if !ok {
		return nil
	}
	return c.load(ctx, gen, subjectID)
}

func (c *Controller) beginLoad() (uint64, bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, false
	}
	c.cancelTimerLocked()
	c.gen++
	gen := c.gen
	c.status = domain.StatusLoading
	c.lastErr = ""
	c.feedback = ""
	c.summary = nil
	c.unlockAndNotify(nil)
	return gen, true
}

func (c *Controller) load(ctx context.Context, gen uint64, subjectID string) error {
	if strings.TrimSpace(subjectID) == "" {
		c.failLoad(gen)
		return domain.ErrSubjectNotFound
	}

	prompts, err := c.content.FetchPrompts(ctx, subjectID)
	if err != nil {
		c.failLoad(gen)
		return fmt.Errorf("fetch prompts: %w", err)
	}

	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	c.prompts = prompts
	c.index = 0
	c.score = 0
	c.correct = 0
	c.incorrect = 0
	c.hints = 0
	c.status = domain.StatusActive
	c.resetPromptLocked()
	c.unlockAndNotify(nil)
	return nil
}

func (c *Controller) failLoad(gen uint64) {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.prompts = nil
	c.index = 0
	c.status = domain.StatusError
	c.lastErr = loadFailedMessage
	c.resetPromptLocked()
	c.unlockAndNotify(nil)
}

// SetTranscript stores recognized speech as the pending answer.
func (c *Controller) SetTranscript(text string) {
	c.mu.Lock()
	if !c.acceptsInputLocked() {
		c.mu.Unlock()
		return
	}
	c.candidate = strings.TrimSpace(text)
	c.feedback = ""
	c.unlockAndNotify(nil)
}

// Select stores one of the offered choices as the pending answer. It reports
// false when label is not on offer.
func (c *Controller) Select(label string) bool {
	c.mu.Lock()
	if !c.acceptsInputLocked() || !c.offersLocked(label) {
		c.mu.Unlock()
		return false
	}
	c.candidate = label
	c.feedback = ""
	c.unlockAndNotify(nil)
	return true
}

func (c *Controller) offersLocked(label string) bool {
	if !c.choices {
		return strings.TrimSpace(label) != ""
	}
	for _, opt := range c.options {
		if opt == label {
			return true
		}
	}
	return false
}

// SubmitCurrent submits the pending transcript or selection.
func (c *Controller) SubmitCurrent(ctx context.Context) domain.Outcome {
	c.mu.Lock()
	candidate := c.candidate
	c.mu.Unlock()
	return c.Submit(ctx, candidate)
}

// Submit verifies attempt for the current prompt. It is a no-op unless the
// session is active with a current prompt; a concurrent submit returns
// OutcomeIgnored. Verification errors keep the prompt open for retry.
func (c *Controller) Submit(ctx context.Context, attempt string) domain.Outcome {
	attempt = strings.TrimSpace(attempt)

	c.mu.Lock()
	if !c.acceptsInputLocked() || attempt == "" {
		c.mu.Unlock()
		return domain.OutcomeIgnored
	}
	promptID := c.prompts[c.index].ID
	if promptID == "" {
		c.mu.Unlock()
		return domain.OutcomeIgnored
	}
	c.cancelTimerLocked()
	c.gen++
	gen := c.gen
	c.status = domain.StatusSubmitting
	c.candidate = attempt
	c.feedback = ""
	c.unlockAndNotify(nil)

	correct, err := c.content.VerifyAnswer(ctx, promptID, attempt)

	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return domain.OutcomeIgnored
	}
	c.status = domain.StatusActive
	if err != nil {
		c.feedback = feedbackVerifyFailed
		c.unlockAndNotify(nil)
		return domain.OutcomeFailed
	}

	c.retractVerdictLocked()
	outcome := domain.OutcomeIncorrect
	if correct {
		outcome = domain.OutcomeCorrect
		c.score += ScorePerCorrect
		c.correct++
		c.feedback = feedbackCorrect
	} else {
		c.incorrect++
		c.feedback = feedbackIncorrect
	}
	c.verdict = outcome
	c.timer = c.scheduler.AfterFunc(c.advanceDelay, func() { c.advanceAfterDelay(gen) })
	c.unlockAndNotify(nil)
	return outcome
}

func (c *Controller) advanceAfterDelay(gen uint64) {
	c.mu.Lock()
	if c.closed || c.gen != gen || c.status != domain.StatusActive {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	summary := c.advanceLocked()
	c.unlockAndNotify(summary)
}

// Skip counts the current prompt as incorrect and moves on immediately.
// A prompt that already has a verdict keeps it. Blocked while a submit is in
// flight.
func (c *Controller) Skip() bool {
	c.mu.Lock()
	if !c.acceptsInputLocked() {
		c.mu.Unlock()
		return false
	}
	c.cancelTimerLocked()
	c.gen++
	if c.verdict == "" {
		c.incorrect++
	}
	c.feedback = ""
	summary := c.advanceLocked()
	c.unlockAndNotify(summary)
	return true
}

// ToggleHint shows or hides the caption of the current prompt. Showing it
// counts as a hint use once per prompt. It returns the new visibility.
func (c *Controller) ToggleHint() bool {
	c.mu.Lock()
	if c.closed || c.status == domain.StatusLoading || c.index >= len(c.prompts) {
		visible := c.hintVisible
		c.mu.Unlock()
		return visible
	}
	c.hintVisible = !c.hintVisible
	if c.hintVisible && !c.hintCounted {
		c.hints++
		c.hintCounted = true
	}
	visible := c.hintVisible
	c.unlockAndNotify(nil)
	return visible
}

// Close tears the session down. Pending advancement never fires afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cancelTimerLocked()
	c.gen++
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) acceptsInputLocked() bool {
	return !c.closed && c.status == domain.StatusActive && c.index < len(c.prompts)
}

func (c *Controller) advanceLocked() *domain.Summary {
	next := c.index + 1
	if next >= len(c.prompts) {
		c.index = len(c.prompts)
		c.status = domain.StatusFinished
		c.resetPromptLocked()
		c.summary = &domain.Summary{
			Score:     c.score,
			Total:     len(c.prompts),
			Correct:   c.correct,
			Incorrect: c.incorrect,
			Hints:     c.hints,
		}
		return c.summary
	}
	c.index = next
	c.resetPromptLocked()
	return nil
}

// retractVerdictLocked undoes the counters of an earlier verdict on the
// current prompt so that a resubmit replaces it.
func (c *Controller) retractVerdictLocked() {
	switch c.verdict {
	case domain.OutcomeCorrect:
		c.score -= ScorePerCorrect
		c.correct--
	case domain.OutcomeIncorrect:
		c.incorrect--
	}
	c.verdict = ""
}

func (c *Controller) resetPromptLocked() {
	c.feedback = ""
	c.verdict = ""
	c.candidate = ""
	c.hintVisible = false
	c.hintCounted = false
	c.options = nil
	if c.choices && c.index < len(c.prompts) {
		c.options = BuildChoices(c.prompts[c.index], c.rnd)
	}
}

func (c *Controller) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) snapshotLocked() State {
	total := len(c.prompts)
	st := State{
		Status:      c.status,
		Index:       c.index,
		Total:       total,
		Progress:    progressLabel(c.index, total),
		Score:       c.score,
		Correct:     c.correct,
		Incorrect:   c.incorrect,
		Hints:       c.hints,
		Candidate:   c.candidate,
		HintVisible: c.hintVisible,
		Feedback:    c.feedback,
		Error:       c.lastErr,
	}
	if len(c.options) > 0 {
		st.Choices = append([]string(nil), c.options...)
	}
	if c.index < total {
		p := c.prompts[c.index]
		st.PromptID = p.ID
		st.ImageURL = ResolveImageURL(c.imageBase, p.ImageURL)
		if c.hintVisible {
			st.Hint = p.Caption
		}
	}
	if c.summary != nil {
		s := *c.summary
		st.Summary = &s
	}
	return st
}

// unlockAndNotify releases c.mu and delivers the committed snapshot (and
// summary, when the session just finished) to the registered callbacks.
func (c *Controller) unlockAndNotify(finished *domain.Summary) {
	if c.onChange == nil && c.onFinish == nil {
		c.mu.Unlock()
		return
	}
	snap := c.snapshotLocked()
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	if c.onChange != nil {
		c.onChange(snap)
	}
	if finished != nil && c.onFinish != nil {
		c.onFinish(*finished)
	}
}

func progressLabel(index, total int) string {
	if total == 0 {
		return "0/0"
	}
	current := index + 1
	if current > total {
		current = total
	}
	return fmt.Sprintf("%d/%d", current, total)
}
