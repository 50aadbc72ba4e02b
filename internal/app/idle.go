package app

import (
	"sync"
	"time"
)

// DefaultIdleTimeout is how long the home screen waits before the idle overlay.
const DefaultIdleTimeout = 10 * time.Second

// IdleWatcher raises an overlay after a period without interaction.
type IdleWatcher struct {
	timeout   time.Duration
	scheduler Scheduler
	onIdle    func(visible bool)

	mu      sync.Mutex
	visible bool
	timer   Timer
	gen     uint64
	stopped bool
}

// NewIdleWatcher arms the watcher immediately. onIdle is called with true when
// the overlay should appear and with false when an interaction dismisses it.
func NewIdleWatcher(timeout time.Duration, scheduler Scheduler, onIdle func(visible bool)) *IdleWatcher {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	if scheduler == nil {
		scheduler = RealScheduler{}
	}
	w := &IdleWatcher{timeout: timeout, scheduler: scheduler, onIdle: onIdle}
	w.mu.Lock()
	w.armLocked()
	w.mu.Unlock()
	return w
}

// Touch records an interaction: it hides the overlay and restarts the countdown.
func (w *IdleWatcher) Touch() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	wasVisible := w.visible
	w.visible = false
	w.armLocked()
	w.mu.Unlock()

	if wasVisible && w.onIdle != nil {
		w.onIdle(false)
	}
}

// Visible reports whether the overlay is showing.
func (w *IdleWatcher) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// Stop cancels the countdown for good.
func (w *IdleWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *IdleWatcher) armLocked() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.gen++
	gen := w.gen
	w.timer = w.scheduler.AfterFunc(w.timeout, func() { w.fire(gen) })
}

func (w *IdleWatcher) fire(gen uint64) {
	w.mu.Lock()
	if w.stopped || w.gen != gen || w.visible {
		w.mu.Unlock()
		return
	}
	w.visible = true
	w.timer = nil
	w.mu.Unlock()

	if w.onIdle != nil {
		w.onIdle(true)
	}
}
