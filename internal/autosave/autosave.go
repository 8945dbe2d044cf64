// Package autosave debounces background persistence of code edits.
// One coordinator owns one coding item's draft; a single debounce slot is
// kept, so a new edit always supersedes the pending timer (last edit wins).
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the observable save status.
type State string

const (
	StateSaved   State = "saved"
	StateUnsaved State = "unsaved"
	StateSaving  State = "saving"
)

const defaultDelay = time.Second

// Timer is the debounce slot. The default is backed by time.AfterFunc; tests
// inject a manual implementation.
type Timer interface {
	Stop() bool
}

type Config struct {
	// Delay before a pending edit is persisted. Defaults to one second.
	Delay time.Duration
	// Save persists the draft text. Required.
	Save func(ctx context.Context, code string) error
	// NewTimerFunc creates the debounce timer. Defaults to time.AfterFunc.
	NewTimerFunc func(d time.Duration, f func()) Timer
	// Timeout bounds each save call.
	Timeout time.Duration
}

type Coordinator struct {
	c Config

	mu       sync.Mutex
	timer    Timer
	current  string
	snapshot string // last successfully saved text
	saving   bool
}

func New(c Config) *Coordinator {
	if c.Delay <= 0 {
		c.Delay = defaultDelay
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.NewTimerFunc == nil {
		c.NewTimerFunc = func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		}
	}

	return &Coordinator{c: c}
}

// Seed installs the initially loaded draft text as the saved snapshot.
func (a *Coordinator) Seed(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopTimerLocked()
	a.current = text
	a.snapshot = text
}

// Edit records a text change and restarts the single debounce slot.
func (a *Coordinator) Edit(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.current = text
	a.stopTimerLocked()
	a.timer = a.c.NewTimerFunc(a.c.Delay, a.fire)
}

// Flush persists any pending change immediately, bypassing the debounce.
// Used on navigation away from the item.
func (a *Coordinator) Flush() {
	a.mu.Lock()
	a.stopTimerLocked()
	a.mu.Unlock()

	a.fire()
}

// Discard drops the pending timer without saving.
func (a *Coordinator) Discard() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopTimerLocked()
}

// Dirty reports whether the in-memory text differs from the saved snapshot.
func (a *Coordinator) Dirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.current != a.snapshot
}

// State returns the tri-state save status.
func (a *Coordinator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.saving:
		return StateSaving
	case a.current != a.snapshot:
		return StateUnsaved
	default:
		return StateSaved
	}
}

func (a *Coordinator) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// fire runs when the debounce slot elapses. Unchanged text skips the network
// call entirely. A failed save logs and leaves the text unsaved; the session
// is never interrupted.
func (a *Coordinator) fire() {
	a.mu.Lock()
	a.timer = nil
	text := a.current
	if text == a.snapshot || a.saving {
		a.mu.Unlock()
		return
	}
	a.saving = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.c.Timeout)
	defer cancel()

	err := a.c.Save(ctx, text)

	a.mu.Lock()
	a.saving = false
	if err != nil {
		slog.ErrorContext(ctx, "autosave: save draft failed", "error", err)
	} else {
		a.snapshot = text
	}
	a.mu.Unlock()
}
