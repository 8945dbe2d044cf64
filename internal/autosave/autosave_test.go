package autosave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codigloo/contestd/internal/autosave"
)

// manualTimer lets tests decide when the debounce slot elapses.
type manualTimer struct {
	mu      sync.Mutex
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.stopped
	t.stopped = true
	return !was
}

func (t *manualTimer) elapse() {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if !stopped {
		t.f()
	}
}

type timerFactory struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (tf *timerFactory) new(_ time.Duration, f func()) autosave.Timer {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	t := &manualTimer{f: f}
	tf.timers = append(tf.timers, t)
	return t
}

func (tf *timerFactory) last() *manualTimer {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return tf.timers[len(tf.timers)-1]
}

type recordingSaver struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (r *recordingSaver) save(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, code)
	return nil
}

func (r *recordingSaver) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.saved...)
}

func TestCoordinator_DebounceCoalescing(t *testing.T) {
	t.Parallel()

	tf := &timerFactory{}
	rs := &recordingSaver{}

	a := autosave.New(autosave.Config{
		Save:         rs.save,
		NewTimerFunc: tf.new,
	})

	// N rapid edits within the window yield one save with the final text.
	a.Edit("v1")
	a.Edit("v12")
	a.Edit("v123")
	tf.last().elapse()

	require.Equal(t, []string{"v123"}, rs.all())
	require.Equal(t, autosave.StateSaved, a.State())
	require.False(t, a.Dirty())

	// Earlier timers were superseded; elapsing them is a no-op.
	for _, mt := range tf.timers[:len(tf.timers)-1] {
		mt.elapse()
	}
	require.Equal(t, []string{"v123"}, rs.all())
}

func TestCoordinator_UnchangedTextSkipsSave(t *testing.T) {
	t.Parallel()

	tf := &timerFactory{}
	rs := &recordingSaver{}

	a := autosave.New(autosave.Config{Save: rs.save, NewTimerFunc: tf.new})
	a.Seed("base")

	a.Edit("base")
	tf.last().elapse()

	require.Empty(t, rs.all(), "no network call for unchanged text")
	require.Equal(t, autosave.StateSaved, a.State())
}

func TestCoordinator_SaveFailureStaysUnsaved(t *testing.T) {
	t.Parallel()

	tf := &timerFactory{}
	rs := &recordingSaver{err: errors.New("network down")}

	a := autosave.New(autosave.Config{Save: rs.save, NewTimerFunc: tf.new})

	a.Edit("text")
	tf.last().elapse()

	require.Equal(t, autosave.StateUnsaved, a.State())
	require.True(t, a.Dirty())
}

func TestCoordinator_FlushPersistsImmediately(t *testing.T) {
	t.Parallel()

	tf := &timerFactory{}
	rs := &recordingSaver{}

	a := autosave.New(autosave.Config{Save: rs.save, NewTimerFunc: tf.new})

	a.Edit("leaving")
	a.Flush()

	require.Equal(t, []string{"leaving"}, rs.all())
	require.Equal(t, autosave.StateSaved, a.State())
}

func TestCoordinator_DiscardDropsPendingSave(t *testing.T) {
	t.Parallel()

	tf := &timerFactory{}
	rs := &recordingSaver{}

	a := autosave.New(autosave.Config{Save: rs.save, NewTimerFunc: tf.new})

	a.Edit("abandoned")
	a.Discard()
	tf.last().elapse()

	require.Empty(t, rs.all())
	require.Equal(t, autosave.StateUnsaved, a.State(), "text still differs from snapshot")
}
