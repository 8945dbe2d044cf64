package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/codigloo/contestd/internal/autosave"
	"github.com/codigloo/contestd/internal/contest"
	"github.com/codigloo/contestd/internal/domain"
	"github.com/codigloo/contestd/internal/errors"
	"github.com/codigloo/contestd/internal/event"
	"github.com/codigloo/contestd/internal/judge"
	"github.com/codigloo/contestd/internal/session"
)

// fakeGateway is an in-memory contest service.
type fakeGateway struct {
	mu sync.Mutex

	contest  domain.Contest
	items    []domain.ContestItem
	problems map[string]domain.Problem
	quizzes  map[string]domain.Quiz

	contestErr error
	quizBlock  chan struct{}

	registerCalls int
	finalizeCalls int
	submitCode    []contest.SubmitCodeRequest
	submitCodeFn  func(contest.SubmitCodeRequest) (*contest.SubmitCodeResponse, error)
	submitQuiz    []contest.SubmitQuizRequest
}

func (f *fakeGateway) GetContest(_ context.Context, _, _ string) (*domain.Contest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contestErr != nil {
		return nil, f.contestErr
	}
	c := f.contest
	return &c, nil
}

func (f *fakeGateway) GetContestItems(_ context.Context, _, _ string) ([]domain.ContestItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ContestItem(nil), f.items...), nil
}

func (f *fakeGateway) Register(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls++
	// Second registration reports conflict server-side; the client already
	// translates that to success, so the fake simply accepts.
	f.contest.ParticipantStatus = domain.ParticipantRegistered
	return nil
}

func (f *fakeGateway) Finalize(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalizeCalls++
	f.contest.ParticipantStatus = domain.ParticipantCompleted
	return nil
}

func (f *fakeGateway) GetQuestion(_ context.Context, _, questionID string) (*domain.Problem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.problems[questionID]
	if !ok {
		return nil, errors.New(errors.CodeNotFound)
	}
	return &p, nil
}

func (f *fakeGateway) GetQuiz(_ context.Context, _, quizID string) (*domain.Quiz, error) {
	f.mu.Lock()
	q, ok := f.quizzes[quizID]
	block := f.quizBlock
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if !ok {
		return nil, errors.New(errors.CodeNotFound)
	}
	return &q, nil
}

func (f *fakeGateway) SubmitCode(_ context.Context, _ string, req contest.SubmitCodeRequest) (*contest.SubmitCodeResponse, error) {
	f.mu.Lock()
	f.submitCode = append(f.submitCode, req)
	fn := f.submitCodeFn
	f.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	return &contest.SubmitCodeResponse{
		Passed:      true,
		PassedCount: 2,
		TotalTests:  2,
		Score:       decimal.NewFromInt(100),
		Results: []contest.CaseResult{
			{Passed: true, Hidden: false},
			{Passed: true, Hidden: true},
		},
	}, nil
}

func (f *fakeGateway) codeSubmissionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitCode)
}

func (f *fakeGateway) quizSubmissions() []contest.SubmitQuizRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]contest.SubmitQuizRequest(nil), f.submitQuiz...)
}

func (f *fakeGateway) SubmitQuiz(_ context.Context, _ string, req contest.SubmitQuizRequest) (*contest.SubmitQuizResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitQuiz = append(f.submitQuiz, req)
	return &contest.SubmitQuizResponse{
		CorrectAnswers: len(req.Answers),
		TotalQuestions: 3,
		Score:          decimal.NewFromInt(10),
	}, nil
}

// fakeJudge returns a canned response, optionally blocking until released.
type fakeJudge struct {
	mu    sync.Mutex
	calls int
	resp  judge.RunResponse
	err   error
	block chan struct{}
}

func (f *fakeJudge) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeJudge) Run(_ context.Context, _ string, _ judge.RunRequest) (*judge.RunResponse, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	resp := f.resp
	err := f.err
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	r := resp
	return &r, nil
}

// fakeDrafts is an in-memory draft store.
type fakeDrafts struct {
	mu    sync.Mutex
	saves []domain.CodeDraft
	byKey map[string]domain.CodeDraft
}

func newFakeDrafts() *fakeDrafts {
	return &fakeDrafts{byKey: make(map[string]domain.CodeDraft)}
}

func (f *fakeDrafts) key(p, q, l string) string { return p + "|" + q + "|" + l }

func (f *fakeDrafts) Get(_ context.Context, participantID, questionID, language string) (*domain.CodeDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byKey[f.key(participantID, questionID, language)]
	if !ok {
		return nil, errors.New(errors.CodeNotFound)
	}
	return &d, nil
}

func (f *fakeDrafts) Save(_ context.Context, d domain.CodeDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, d)
	f.byKey[f.key(d.ParticipantID, d.QuestionID, d.Language)] = d
	return nil
}

func (f *fakeDrafts) saved() []domain.CodeDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CodeDraft(nil), f.saves...)
}

// manualTimer and manualTicker let tests drive time by hand.
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

type manualTicker struct {
	ch chan time.Time
}

func newManualTicker() *manualTicker { return &manualTicker{ch: make(chan time.Time)} }

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               {}

// tick delivers one tick and returns once the runtime consumed it.
func (t *manualTicker) tick(at time.Time) {
	t.ch <- at
}

type tickerFactory struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (tf *tickerFactory) new(time.Duration) session.Ticker {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	t := newManualTicker()
	tf.tickers = append(tf.tickers, t)
	return t
}

func (tf *tickerFactory) first() *manualTicker {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return tf.tickers[0]
}

func (tf *tickerFactory) last() *manualTicker {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return tf.tickers[len(tf.tickers)-1]
}

type env struct {
	gw      *fakeGateway
	judge   *fakeJudge
	drafts  *fakeDrafts
	timers  *timerFactory
	tickers *tickerFactory
	bus     *event.Bus
	now     time.Time
	nowMu   sync.Mutex
	svc     *session.Service
}

func (e *env) setNow(t time.Time) {
	e.nowMu.Lock()
	e.now = t
	e.nowMu.Unlock()
}

func makeEnv(t *testing.T, mutate func(*fakeGateway)) *env {
	t.Helper()

	e := &env{
		gw: &fakeGateway{
			contest: domain.Contest{
				ContestID:         "c1",
				Title:             "Weekly 12",
				Visibility:        domain.VisibilityPublic,
				StartTime:         "2024-01-01 10:00:00",
				EndTime:           "2024-01-01 11:00:00",
				ParticipantStatus: domain.ParticipantRegistered,
			},
			items: []domain.ContestItem{
				{ItemID: "i1", Position: 1, Type: domain.ItemCoding, RefID: "q1", Title: "Two Sum", LinkedQuizID: "z9"},
				{ItemID: "i2", Position: 2, Type: domain.ItemQuiz, RefID: "z1", Title: "Basics quiz"},
			},
			problems: map[string]domain.Problem{
				"q1": {
					QuestionID: "q1",
					Title:      "Two Sum",
					Category:   "array",
					TestCases: []domain.TestCase{
						{TestCaseID: "tc1", Input: "[2,7]\n9", Expected: "[0,1]"},
						{TestCaseID: "tc2", Input: "[3,3]\n6", Expected: "[0,1]", Hidden: true},
					},
				},
			},
			quizzes: map[string]domain.Quiz{
				"z1": {
					QuizID:   "z1",
					Title:    "Basics quiz",
					Duration: 5,
					Questions: []domain.QuizQuestion{
						{QuestionID: "qq1", Prompt: "1+1?", Options: []string{"1", "2"}, CorrectOption: 1},
						{QuestionID: "qq2", Prompt: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1},
						{QuestionID: "qq3", Prompt: "3+3?", Options: []string{"5", "6"}, CorrectOption: 1},
					},
				},
				"z9": {
					QuizID:   "z9",
					Title:    "Follow-up",
					Duration: 2,
					Questions: []domain.QuizQuestion{
						{QuestionID: "fq1", Prompt: "?", Options: []string{"a", "b"}, CorrectOption: 0},
					},
				},
			},
		},
		judge:   &fakeJudge{resp: judge.RunResponse{Stdout: "[0,1]", Passed: true}},
		drafts:  newFakeDrafts(),
		timers:  &timerFactory{},
		tickers: &tickerFactory{},
		bus:     event.NewBus(),
		now:     time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
	}

	if mutate != nil {
		mutate(e.gw)
	}

	e.svc = session.NewService(session.Config{
		Contest:  e.gw,
		Judge:    e.judge,
		Drafts:   e.drafts,
		EventBus: e.bus,
		Now: func() time.Time {
			e.nowMu.Lock()
			defer e.nowMu.Unlock()
			return e.now
		},
		NewTickerFunc: e.tickers.new,
		NewTimerFunc:  e.timers.new,
	})

	return e
}

func attach(t *testing.T, e *env) *session.Runtime {
	t.Helper()

	rt, err := e.svc.Attach(context.Background(), session.AttachRequest{
		Token:     "tok",
		ContestID: "c1",
		Username:  "alice",
	})
	require.NoError(t, err)
	return rt
}
