// Package session hosts the contest attempt runtime: one Runtime per active
// participant attempt, driving the countdown, item navigation, coding
// run/submit, quiz answering and finalization against remote collaborators.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codigloo/contestd/internal/autosave"
	"github.com/codigloo/contestd/internal/contest"
	"github.com/codigloo/contestd/internal/domain"
	"github.com/codigloo/contestd/internal/draft"
	"github.com/codigloo/contestd/internal/event"
	"github.com/codigloo/contestd/internal/judge"
)

// ContestGateway is the slice of the contest-content service the runtime uses.
type ContestGateway interface {
	GetContest(ctx context.Context, token, contestID string) (*domain.Contest, error)
	GetContestItems(ctx context.Context, token, contestID string) ([]domain.ContestItem, error)
	Register(ctx context.Context, token, contestID string) error
	Finalize(ctx context.Context, token, contestID string) error
	GetQuestion(ctx context.Context, token, questionID string) (*domain.Problem, error)
	GetQuiz(ctx context.Context, token, quizID string) (*domain.Quiz, error)
	SubmitCode(ctx context.Context, token string, req contest.SubmitCodeRequest) (*contest.SubmitCodeResponse, error)
	SubmitQuiz(ctx context.Context, token string, req contest.SubmitQuizRequest) (*contest.SubmitQuizResponse, error)
}

// JudgeGateway executes code against a single test case.
type JudgeGateway interface {
	Run(ctx context.Context, token string, req judge.RunRequest) (*judge.RunResponse, error)
}

// Ticker abstracts the countdown clock so tests can drive it manually.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

type Config struct {
	Contest  ContestGateway
	Judge    JudgeGateway
	Drafts   draft.Store
	EventBus *event.Bus

	// Now and the constructor hooks exist for deterministic tests.
	Now           func() time.Time
	NewTickerFunc func(d time.Duration) Ticker
	NewTimerFunc  func(d time.Duration, f func()) autosave.Timer

	// AutosaveDelay is the draft debounce window. Defaults to one second.
	AutosaveDelay time.Duration
	// ConfirmWindow is the submit arm/confirm window. Defaults to 3 seconds.
	ConfirmWindow time.Duration
}

// Service is the registry of live attempt runtimes.
type Service struct {
	c Config

	mu       sync.RWMutex
	runtimes map[string]*Runtime
}

func NewService(c Config) *Service {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewTickerFunc == nil {
		c.NewTickerFunc = func(d time.Duration) Ticker {
			return realTicker{t: time.NewTicker(d)}
		}
	}
	if c.NewTimerFunc == nil {
		c.NewTimerFunc = func(d time.Duration, f func()) autosave.Timer {
			return time.AfterFunc(d, f)
		}
	}
	if c.AutosaveDelay <= 0 {
		c.AutosaveDelay = time.Second
	}
	if c.ConfirmWindow <= 0 {
		c.ConfirmWindow = 3 * time.Second
	}

	return &Service{
		c:        c,
		runtimes: make(map[string]*Runtime),
	}
}

// AttachRequest opens (or reloads) a participant's attempt for a contest.
type AttachRequest struct {
	Token     string
	ContestID string
	Username  string
}

// Attach creates a runtime, performs the initial load and registers it.
// The runtime is returned in whatever phase the load reached, including
// PhaseError; fetch failures never surface as a bare error here.
func (s *Service) Attach(ctx context.Context, req AttachRequest) (*Runtime, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate attempt ID: %w", err)
	}

	rt := newRuntime(s.c, id.String(), req.Token, req.ContestID, req.Username)
	rt.load(ctx)

	s.mu.Lock()
	s.runtimes[rt.AttemptID()] = rt
	s.mu.Unlock()

	return rt, nil
}

// Get returns a live runtime by attempt id.
func (s *Service) Get(attemptID string) (*Runtime, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, ok := s.runtimes[attemptID]
	return rt, ok
}

// Detach drops the runtime and stops its timers. The server-side countdown
// keeps running against end_time; exiting pauses nothing.
func (s *Service) Detach(attemptID string) {
	s.mu.Lock()
	rt, ok := s.runtimes[attemptID]
	delete(s.runtimes, attemptID)
	s.mu.Unlock()

	if ok {
		rt.stopTimers()
	}
}

// Stop tears down all runtimes, for server shutdown.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rt := range s.runtimes {
		rt.stopTimers()
		delete(s.runtimes, id)
	}
}
