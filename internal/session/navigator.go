package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codigloo/contestd/internal/autosave"
	"github.com/codigloo/contestd/internal/contest"
	"github.com/codigloo/contestd/internal/domain"
	"github.com/codigloo/contestd/internal/errors"
	"github.com/codigloo/contestd/internal/judge"
	"github.com/codigloo/contestd/internal/scaffold"
)

type submitPhase string

const (
	submitIdle       submitPhase = "idle"
	submitArmed      submitPhase = "armed"
	submitSubmitting submitPhase = "submitting"
)

// itemState is the per-item working memory of the runtime.
type itemState struct {
	item   domain.ContestItem
	loaded bool

	// coding
	problem      *domain.Problem
	language     string
	code         string
	autosave     *autosave.Coordinator
	running      bool
	submit       submitPhase
	armTimer     autosave.Timer
	output       string
	resultStatus judge.ResultStatus
	caseResults  []contest.CaseResult
	passedCount  int
	totalTests   int
	completed    bool
	linkedOffer  bool // linked quiz already offered for this item

	// quiz
	quiz          *domain.Quiz
	answers       map[string]int
	progress      int
	quizRemaining int64
	quizTicker    Ticker
	quizStop      chan struct{}
	timeExpired   bool
}

func newItemState(it domain.ContestItem) *itemState {
	return &itemState{
		item:    it,
		submit:  submitIdle,
		answers: make(map[string]int),
	}
}

func (it *itemState) stopQuizCountdownLocked() {
	if it.quizTicker != nil {
		it.quizTicker.Stop()
		close(it.quizStop)
		it.quizTicker = nil
		it.quizStop = nil
	}
}

// Select moves the navigator to the item at index. When the current coding
// item has unsaved edits and force is false, ErrUnsavedChanges is returned
// and the selection is left unchanged; the caller re-invokes with force=true
// after user confirmation, which flushes the pending draft before moving.
func (rt *Runtime) Select(ctx context.Context, index int, force bool) error {
	rt.mu.Lock()

	if index < 0 || index >= len(rt.items) {
		rt.mu.Unlock()
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("item index %d out of range", index))
	}

	prev := rt.currentLocked()
	if prev != nil && prev.item.Type == domain.ItemCoding && prev.autosave != nil && index != rt.selected {
		if prev.autosave.Dirty() && !force {
			rt.mu.Unlock()
			return errors.New(errors.CodeFailedPrecondition,
				errors.WithCause(ErrUnsavedChanges),
				errors.WithMessagef("unsaved changes on %q", prev.item.Title))
		}
		// Confirmed navigation persists the pending edit instead of losing it.
		prev.autosave.Flush()
	}
	if prev != nil && prev.item.Type == domain.ItemQuiz && index != rt.selected {
		prev.stopQuizCountdownLocked()
	}

	rt.selected = index
	rt.loadSeq++
	seq := rt.loadSeq
	cur := rt.items[index]
	needLoad := !cur.loaded
	rt.mu.Unlock()

	if !needLoad {
		rt.maybeStartQuizCountdown(cur)
		return nil
	}

	return rt.loadItem(ctx, cur, seq)
}

// loadItem fetches the item detail. The load is tagged with the selection
// sequence at issue time; a response landing after the user moved on is
// discarded instead of being applied to the wrong item.
func (rt *Runtime) loadItem(ctx context.Context, it *itemState, seq uint64) error {
	switch it.item.Type {
	case domain.ItemCoding:
		return rt.loadCodingItem(ctx, it, seq)
	case domain.ItemQuiz:
		return rt.loadQuizItem(ctx, it, seq)
	default:
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("unknown item type %q", it.item.Type))
	}
}

func (rt *Runtime) loadCodingItem(ctx context.Context, it *itemState, seq uint64) error {
	problem, err := rt.c.Contest.GetQuestion(ctx, rt.token, it.item.RefID)
	if err != nil {
		return errors.Convert(err)
	}

	language := scaffold.LangPython
	code := ""
	if d, err := rt.c.Drafts.Get(ctx, rt.username, it.item.RefID, language); err == nil {
		code = d.Code
	} else if !errors.IsCode(err, errors.CodeNotFound) {
		slog.ErrorContext(ctx, "session: load draft failed", "question", it.item.RefID, "error", err)
	}
	if code == "" {
		code = scaffold.Generate(*problem, language)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.loadSeq != seq {
		// Stale response: the user already navigated elsewhere.
		return nil
	}

	it.problem = problem
	it.language = language
	it.code = code
	it.autosave = rt.newAutosave(it)
	it.autosave.Seed(code)
	it.loaded = true
	return nil
}

// newAutosave builds the coordinator for the item's current language. The
// language is captured here, not read back from the item: a language switch
// replaces the coordinator, and the save closure must never take rt.mu
// because Flush runs it synchronously from paths that already hold the lock.
func (rt *Runtime) newAutosave(it *itemState) *autosave.Coordinator {
	questionID := it.item.RefID
	language := it.language
	return autosave.New(autosave.Config{
		Delay:        rt.c.AutosaveDelay,
		NewTimerFunc: rt.c.NewTimerFunc,
		Save: func(ctx context.Context, code string) error {
			return rt.c.Drafts.Save(ctx, domain.CodeDraft{
				ParticipantID: rt.username,
				QuestionID:    questionID,
				Language:      language,
				Code:          code,
				UpdateTime:    rt.c.Now(),
			})
		},
	})
}

func (rt *Runtime) loadQuizItem(ctx context.Context, it *itemState, seq uint64) error {
	quiz, err := rt.c.Contest.GetQuiz(ctx, rt.token, it.item.RefID)
	if err != nil {
		return errors.Convert(err)
	}

	rt.mu.Lock()
	if rt.loadSeq != seq {
		rt.mu.Unlock()
		return nil
	}

	it.quiz = quiz
	it.loaded = true
	if it.quizRemaining == 0 && quiz.Duration > 0 {
		it.quizRemaining = int64(quiz.Duration) * 60
	}
	rt.mu.Unlock()

	rt.maybeStartQuizCountdown(it)
	return nil
}

// maybeStartQuizCountdown runs the per-item quiz timer, independent of the
// contest countdown. Reaching zero auto-submits through the normal path.
func (rt *Runtime) maybeStartQuizCountdown(it *itemState) {
	rt.mu.Lock()
	if it.item.Type != domain.ItemQuiz || !it.loaded || it.completed ||
		it.quizTicker != nil || it.quizRemaining <= 0 || rt.phase != PhaseActive {
		rt.mu.Unlock()
		return
	}

	t := rt.c.NewTickerFunc(time.Second)
	stop := make(chan struct{})
	it.quizTicker = t
	it.quizStop = stop
	rt.mu.Unlock()

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-t.C():
				if expired := rt.quizTick(it); expired {
					return
				}
			}
		}
	}()
}

func (rt *Runtime) quizTick(it *itemState) bool {
	rt.mu.Lock()
	if it.quizTicker == nil || it.completed {
		rt.mu.Unlock()
		return true
	}

	it.quizRemaining--
	if it.quizRemaining > 0 {
		rt.mu.Unlock()
		return false
	}
	it.quizRemaining = 0
	it.stopQuizCountdownLocked()
	rt.mu.Unlock()

	// Time expired: submit whatever is answered. Failure is logged and the
	// session stays put; retrying against a possibly-ended contest is unsafe.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := rt.submitQuizItem(ctx, it, true); err != nil {
		slog.ErrorContext(ctx, "session: quiz auto-submit failed",
			"contest", rt.contestID,
			"item", it.item.ItemID,
			"error", err,
		)
	}
	return true
}

// AcceptLinkedQuiz inserts an ephemeral linked-quiz item directly after the
// current item and selects it. When a persistent item already references the
// quiz, that item is selected instead and nothing is inserted.
func (rt *Runtime) AcceptLinkedQuiz(ctx context.Context) error {
	rt.mu.Lock()
	cur := rt.currentLocked()
	if cur == nil || !cur.linkedOffer || cur.item.LinkedQuizID == "" {
		rt.mu.Unlock()
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("no linked quiz offered"))
	}

	quizID := cur.item.LinkedQuizID

	// A persistent quiz item for the same quiz wins over an ephemeral insert.
	for i, existing := range rt.items {
		if existing.item.Type == domain.ItemQuiz && existing.item.RefID == quizID {
			rt.mu.Unlock()
			return rt.Select(ctx, i, true)
		}
	}

	eph := newItemState(domain.ContestItem{
		ItemID:    fmt.Sprintf("%s-linked-%s", cur.item.ItemID, quizID),
		Position:  cur.item.Position + 1,
		Type:      domain.ItemQuiz,
		RefID:     quizID,
		Title:     "Follow-up quiz",
		Ephemeral: true,
	})

	at := rt.selected + 1
	rt.items = append(rt.items[:at], append([]*itemState{eph}, rt.items[at:]...)...)
	rt.mu.Unlock()

	return rt.Select(ctx, at, true)
}

func (rt *Runtime) currentLocked() *itemState {
	if rt.selected < 0 || rt.selected >= len(rt.items) {
		return nil
	}
	return rt.items[rt.selected]
}
