// Package routing turns push messages into navigation requests for a device.
package routing

import (
	"log"
	"sort"
	"strings"
	"sync"

	"care-companion/internal/domain"
)

// Navigator is the navigation subsystem of a device.
type Navigator interface {
	IsReady() bool
	NavigateTo(screen domain.Screen)
}

// Rules holds the keywords used to classify a message. Matching is
// case-sensitive substring search; schedule keywords win over medicine ones.
type Rules struct {
	Schedule []string
	Medicine []string
}

// DefaultRules returns the keywords the senior app ships with.
func DefaultRules() Rules {
	return Rules{
		Schedule: []string{"일정"},
		Medicine: []string{"약"},
	}
}

// WithExtra appends additional keywords to a copy of r.
func (r Rules) WithExtra(schedule, medicine []string) Rules {
	out := Rules{
		Schedule: append(append([]string(nil), r.Schedule...), schedule...),
		Medicine: append(append([]string(nil), r.Medicine...), medicine...),
	}
	return out
}

// Classify maps a message to its target screen, or ScreenNone.
func (r Rules) Classify(msg domain.InboundMessage) domain.Screen {
	text := messageText(msg)
	if strings.TrimSpace(text) == "" {
		return domain.ScreenNone
	}
	if containsAny(text, r.Schedule) {
		return domain.ScreenSchedule
	}
	if containsAny(text, r.Medicine) {
		return domain.ScreenMedicine
	}
	return domain.ScreenNone
}

func messageText(msg domain.InboundMessage) string {
	parts := make([]string, 0, len(msg.Data)+2)
	parts = append(parts, msg.Title, msg.Body)

	keys := make([]string, 0, len(msg.Data))
	for k := range msg.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, msg.Data[k])
	}
	return strings.Join(parts, " ")
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Router delivers classified targets to a Navigator, holding at most one
// pending target while the navigator is not ready. Navigation runs outside
// the routing lock; a sequence number keeps the newest target last.
type Router struct {
	rules Rules
	nav   Navigator

	mu      sync.Mutex
	pending domain.Screen
	seq     uint64

	navMu     sync.Mutex
	delivered uint64
}

func NewRouter(rules Rules, nav Navigator) *Router {
	return &Router{rules: rules, nav: nav}
}

// Route classifies msg and navigates now or parks the target for later.
// Unrecognized messages are dropped.
func (r *Router) Route(msg domain.InboundMessage) {
	target := r.rules.Classify(msg)
	if target == domain.ScreenNone {
		return
	}

	r.mu.Lock()
	if !r.nav.IsReady() {
		if r.pending != domain.ScreenNone {
			log.Printf("replacing pending route %s with %s", r.pending, target)
		}
		r.pending = target
		r.mu.Unlock()
		return
	}
	if r.pending != domain.ScreenNone {
		log.Printf("dropping pending route %s for %s", r.pending, target)
		r.pending = domain.ScreenNone
	}
	seq := r.nextLocked()
	r.mu.Unlock()

	log.Printf("routing push to %s", target)
	r.deliver(target, seq)
}

// OnNavigationReady drains the pending target, if any.
func (r *Router) OnNavigationReady() {
	r.mu.Lock()
	target, seq := r.takeLocked()
	r.mu.Unlock()
	r.deliver(target, seq)
}

// Flush drains the pending target only when the navigator reports ready.
func (r *Router) Flush() {
	r.mu.Lock()
	if !r.nav.IsReady() {
		r.mu.Unlock()
		return
	}
	target, seq := r.takeLocked()
	r.mu.Unlock()
	r.deliver(target, seq)
}

// Pending returns the parked target, or ScreenNone.
func (r *Router) Pending() domain.Screen {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

func (r *Router) nextLocked() uint64 {
	r.seq++
	return r.seq
}

func (r *Router) takeLocked() (domain.Screen, uint64) {
	target := r.pending
	if target == domain.ScreenNone {
		return domain.ScreenNone, 0
	}
	r.pending = domain.ScreenNone
	log.Printf("delivering pending route %s", target)
	return target, r.nextLocked()
}

// deliver navigates unless a newer target has already been delivered.
func (r *Router) deliver(target domain.Screen, seq uint64) {
	if target == domain.ScreenNone {
		return
	}
	r.navMu.Lock()
	defer r.navMu.Unlock()
	if seq <= r.delivered {
		log.Printf("skipping superseded route %s", target)
		return
	}
	r.delivered = seq
	r.nav.NavigateTo(target)
}
