package session

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/codigloo/contestd/internal/contesttime"
	"github.com/codigloo/contestd/internal/domain"
	"github.com/codigloo/contestd/internal/errors"
)

// Phase is the controller's top-level state.
type Phase string

const (
	PhaseLoading       Phase = "loading"
	PhaseNotRegistered Phase = "not_registered"
	PhaseActive        Phase = "active"
	PhaseCompleted     Phase = "completed"
	PhaseError         Phase = "error"
)

// ErrUnsavedChanges signals that navigation needs explicit confirmation
// because the current coding item has unsaved edits.
var ErrUnsavedChanges = stderrors.New("current item has unsaved changes")

// Runtime drives one participant's attempt at one contest.
type Runtime struct {
	c Config

	attemptID string
	token     string
	contestID string
	username  string

	mu       sync.Mutex
	phase    Phase
	phaseMsg string
	contest  *domain.Contest

	items    []*itemState
	selected int
	loadSeq  uint64

	remaining  int64
	notStarted bool
	ended      bool
	hasWindow  bool // both boundary timestamps parsed

	ticker   Ticker
	tickStop chan struct{}
}

func newRuntime(c Config, attemptID, token, contestID, username string) *Runtime {
	return &Runtime{
		c:         c,
		attemptID: attemptID,
		token:     token,
		contestID: contestID,
		username:  username,
		phase:     PhaseLoading,
	}
}

func (rt *Runtime) AttemptID() string { return rt.attemptID }

// load fetches contest metadata and the item list, then branches on the
// participant status. Failures land in PhaseError with a message; the
// runtime stays interactive so the user can retry.
func (rt *Runtime) load(ctx context.Context) {
	rt.mu.Lock()
	rt.phase = PhaseLoading
	rt.phaseMsg = ""
	rt.mu.Unlock()

	c, err := rt.c.Contest.GetContest(ctx, rt.token, rt.contestID)
	if err != nil {
		rt.fail(ctx, "load contest", err)
		return
	}

	items, err := rt.c.Contest.GetContestItems(ctx, rt.token, rt.contestID)
	if err != nil {
		rt.fail(ctx, "load contest items", err)
		return
	}

	rt.mu.Lock()
	rt.contest = c
	rt.items = make([]*itemState, 0, len(items))
	for _, it := range items {
		rt.items = append(rt.items, newItemState(it))
	}
	rt.selected = 0

	switch c.ParticipantStatus {
	case domain.ParticipantNone:
		rt.phase = PhaseNotRegistered
		rt.mu.Unlock()
		return
	case domain.ParticipantCompleted:
		rt.phase = PhaseCompleted
		rt.mu.Unlock()
		return
	}

	rt.phase = PhaseActive

	now := rt.c.Now()
	status := contesttime.ContestStatus(now, c.StartTime, c.EndTime)
	rt.hasWindow = status != contesttime.StatusInvalid
	rt.notStarted = status == contesttime.StatusUpcoming
	rt.ended = status == contesttime.StatusEnded
	if secs, ok := contesttime.RemainingSeconds(now, c.EndTime); ok {
		rt.remaining = secs
	}

	startTicking := rt.hasWindow && !rt.ended
	itemCount := len(rt.items)
	rt.mu.Unlock()

	if startTicking {
		rt.startCountdown()
	}

	if itemCount > 0 {
		if err := rt.Select(ctx, 0, true); err != nil {
			slog.ErrorContext(ctx, "session: load first item failed", "error", err)
		}
	}
}

func (rt *Runtime) fail(ctx context.Context, op string, err error) {
	slog.ErrorContext(ctx, "session: "+op+" failed",
		"contest", rt.contestID,
		"error", err,
	)

	rt.mu.Lock()
	rt.phase = PhaseError
	rt.phaseMsg = errors.Convert(err).Message
	rt.mu.Unlock()
}

// Register enrolls the participant and reloads the attempt. An already
// registered participant is not an error.
func (rt *Runtime) Register(ctx context.Context) error {
	if err := rt.c.Contest.Register(ctx, rt.token, rt.contestID); err != nil {
		rt.fail(ctx, "register", err)
		return err
	}

	rt.load(ctx)
	return nil
}

// Retry re-runs the initial load after an error.
func (rt *Runtime) Retry(ctx context.Context) {
	rt.load(ctx)
}

// Finalize irreversibly ends the attempt. The caller is expected to have
// confirmed the action with the user.
func (rt *Runtime) Finalize(ctx context.Context) error {
	rt.mu.Lock()
	if rt.phase != PhaseActive {
		phase := rt.phase
		rt.mu.Unlock()
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("cannot finalize in phase %s", phase))
	}
	rt.mu.Unlock()

	if err := rt.c.Contest.Finalize(ctx, rt.token, rt.contestID); err != nil {
		return errors.Convert(err)
	}

	rt.mu.Lock()
	rt.phase = PhaseCompleted
	if rt.contest != nil {
		rt.contest.ParticipantStatus = domain.ParticipantCompleted
	}
	rt.mu.Unlock()

	rt.stopTimers()

	rt.c.EventBus.Publish(ctx, domain.EventAttemptFinalized{
		ContestID: rt.contestID,
		Username:  rt.username,
		AttemptID: rt.attemptID,
	})

	return nil
}

func (rt *Runtime) startCountdown() {
	rt.mu.Lock()
	if rt.ticker != nil {
		rt.mu.Unlock()
		return
	}
	t := rt.c.NewTickerFunc(time.Second)
	stop := make(chan struct{})
	rt.ticker = t
	rt.tickStop = stop
	rt.mu.Unlock()

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-t.C():
				if done := rt.tick(); done {
					return
				}
			}
		}
	}()
}

// tick recomputes the countdown from the wall clock each second so long GC
// pauses cannot drift it. Returns true once the contest window has closed.
func (rt *Runtime) tick() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.phase != PhaseActive || rt.contest == nil {
		return true
	}

	now := rt.c.Now()
	if rt.notStarted {
		rt.notStarted = contesttime.ContestStatus(now, rt.contest.StartTime, rt.contest.EndTime) == contesttime.StatusUpcoming
	}

	secs, ok := contesttime.RemainingSeconds(now, rt.contest.EndTime)
	if !ok {
		return false
	}
	rt.remaining = secs

	if secs == 0 {
		// Time is up: disable run/submit but stay on the page.
		rt.ended = true
		rt.stopCountdownLocked()
		return true
	}
	return false
}

func (rt *Runtime) stopCountdownLocked() {
	if rt.ticker != nil {
		rt.ticker.Stop()
		close(rt.tickStop)
		rt.ticker = nil
		rt.tickStop = nil
	}
}

func (rt *Runtime) stopTimers() {
	rt.mu.Lock()
	rt.stopCountdownLocked()
	for _, it := range rt.items {
		it.stopQuizCountdownLocked()
		if it.autosave != nil {
			it.autosave.Discard()
		}
	}
	rt.mu.Unlock()
}

// guardMutable rejects any state mutation when the attempt is not in an
// actionable window: not yet started, already ended, or completed.
// Callers hold rt.mu.
func (rt *Runtime) guardMutableLocked() error {
	switch {
	case rt.phase == PhaseCompleted:
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("attempt is completed and read-only"))
	case rt.phase != PhaseActive:
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("attempt is not active"))
	case rt.notStarted:
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("contest has not started"))
	case rt.ended:
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("contest has ended"))
	}
	return nil
}
