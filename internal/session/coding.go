package session

import (
	"context"
	"strings"

	"github.com/codigloo/contestd/internal/contest"
	"github.com/codigloo/contestd/internal/domain"
	"github.com/codigloo/contestd/internal/errors"
	"github.com/codigloo/contestd/internal/judge"
	"github.com/codigloo/contestd/internal/scaffold"
)

// EditCode records a code change on the current coding item and feeds the
// autosave debounce.
func (rt *Runtime) EditCode(text string) error {
	rt.mu.Lock()

	if err := rt.guardMutableLocked(); err != nil {
		rt.mu.Unlock()
		return err
	}

	it, err := rt.currentCodingLocked()
	if err != nil {
		rt.mu.Unlock()
		return err
	}

	it.code = text
	as := it.autosave
	rt.mu.Unlock()

	as.Edit(text)
	return nil
}

// SetLanguage switches the editing language for the current coding item,
// reseeding the editor with the draft or scaffold for that language.
func (rt *Runtime) SetLanguage(ctx context.Context, language string) error {
	rt.mu.Lock()
	if err := rt.guardMutableLocked(); err != nil {
		rt.mu.Unlock()
		return err
	}

	it, err := rt.currentCodingLocked()
	if err != nil {
		rt.mu.Unlock()
		return err
	}

	if it.language == language {
		rt.mu.Unlock()
		return nil
	}

	it.autosave.Flush()
	questionID := it.item.RefID
	problem := it.problem
	rt.mu.Unlock()

	code := ""
	if d, derr := rt.c.Drafts.Get(ctx, rt.username, questionID, language); derr == nil {
		code = d.Code
	}
	if code == "" && problem != nil {
		code = scaffold.Generate(*problem, language)
	}

	rt.mu.Lock()
	it.language = language
	it.code = code
	it.autosave = rt.newAutosave(it)
	it.autosave.Seed(code)
	rt.mu.Unlock()
	return nil
}

// RunCase executes the current code against one visible test case. At most
// one run is in flight per item; a second request is refused, not queued.
func (rt *Runtime) RunCase(ctx context.Context, testCaseID string) (judge.RunOutcome, error) {
	rt.mu.Lock()

	if err := rt.guardMutableLocked(); err != nil {
		rt.mu.Unlock()
		return judge.RunOutcome{}, err
	}

	it, err := rt.currentCodingLocked()
	if err != nil {
		rt.mu.Unlock()
		return judge.RunOutcome{}, err
	}

	if strings.TrimSpace(it.code) == "" {
		rt.mu.Unlock()
		return judge.RunOutcome{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("nothing to run: the editor is empty"))
	}
	if it.running {
		rt.mu.Unlock()
		return judge.RunOutcome{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("a run is already in progress"))
	}

	tc, ok := findTestCase(it.problem, testCaseID)
	if !ok {
		rt.mu.Unlock()
		return judge.RunOutcome{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("test case %s not found", testCaseID))
	}

	it.running = true
	req := judge.RunRequest{
		Code:       it.code,
		Language:   it.language,
		QuestionID: it.item.RefID,
		TestCaseID: tc.TestCaseID,
		Input:      tc.Input,
	}
	rt.mu.Unlock()

	resp, runErr := rt.c.Judge.Run(ctx, rt.token, req)
	outcome := judge.EvaluateRun(resp, runErr)

	rt.mu.Lock()
	it.running = false
	it.output = outcome.Output
	it.resultStatus = outcome.Status
	if outcome.Status == judge.StatusSuccess && it.item.LinkedQuizID != "" {
		it.linkedOffer = true
	}
	rt.mu.Unlock()

	return outcome, nil
}

// Submit drives the two-click confirm sequence. The first call arms a short
// confirmation window and reports armed=true; a second call inside the window
// performs the scoring submit. An expired window silently disarms.
func (rt *Runtime) Submit(ctx context.Context) (*SubmitResult, error) {
	rt.mu.Lock()

	if err := rt.guardMutableLocked(); err != nil {
		rt.mu.Unlock()
		return nil, err
	}

	it, err := rt.currentCodingLocked()
	if err != nil {
		rt.mu.Unlock()
		return nil, err
	}

	if strings.TrimSpace(it.code) == "" {
		rt.mu.Unlock()
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("nothing to submit: the editor is empty"))
	}

	switch it.submit {
	case submitSubmitting:
		rt.mu.Unlock()
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("a submission is already in progress"))

	case submitIdle:
		it.submit = submitArmed
		it.armTimer = rt.c.NewTimerFunc(rt.c.ConfirmWindow, func() {
			rt.mu.Lock()
			if it.submit == submitArmed {
				it.submit = submitIdle
			}
			it.armTimer = nil
			rt.mu.Unlock()
		})
		rt.mu.Unlock()
		return &SubmitResult{Armed: true}, nil
	}

	// Armed: this is the confirming click.
	if it.armTimer != nil {
		it.armTimer.Stop()
		it.armTimer = nil
	}
	it.submit = submitSubmitting
	req := contest.SubmitCodeRequest{
		ContestID:     rt.contestID,
		ContestItemID: it.item.ItemID,
		Code:          it.code,
		Language:      it.language,
	}
	code, language, questionID := it.code, it.language, it.item.RefID
	rt.mu.Unlock()

	resp, subErr := rt.c.Contest.SubmitCode(ctx, rt.token, req)

	rt.mu.Lock()
	it.submit = submitIdle
	if subErr != nil {
		// Keep the editor and any prior output intact; only the status changes.
		it.resultStatus = judge.StatusError
		rt.mu.Unlock()
		return nil, errors.Convert(subErr)
	}

	it.completed = true
	it.passedCount = resp.PassedCount
	it.totalTests = resp.TotalTests
	it.caseResults = resp.Results
	if resp.Passed {
		it.resultStatus = judge.StatusSuccess
	} else {
		it.resultStatus = judge.StatusFailed
	}
	rt.mu.Unlock()

	// The scored code becomes the final draft snapshot.
	if err := rt.c.Drafts.Save(ctx, domain.CodeDraft{
		ParticipantID: rt.username,
		QuestionID:    questionID,
		Language:      language,
		Code:          code,
		UpdateTime:    rt.c.Now(),
	}); err == nil {
		rt.mu.Lock()
		if it.autosave != nil {
			it.autosave.Seed(code)
		}
		rt.mu.Unlock()
	}

	rt.c.EventBus.Publish(ctx, domain.EventSubmissionScored{
		ContestID:  rt.contestID,
		Username:   rt.username,
		ItemID:     it.item.ItemID,
		TotalScore: resp.Score,
	})

	return &SubmitResult{
		Passed:      resp.Passed,
		PassedCount: resp.PassedCount,
		TotalTests:  resp.TotalTests,
		Score:       resp.Score.String(),
		Cases:       renderCaseResults(resp.Results),
	}, nil
}

func (rt *Runtime) currentCodingLocked() (*itemState, error) {
	it := rt.currentLocked()
	if it == nil {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("no item selected"))
	}
	if it.item.Type != domain.ItemCoding {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("current item is not a coding problem"))
	}
	if !it.loaded {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("item is still loading"))
	}
	return it, nil
}

func findTestCase(p *domain.Problem, id string) (domain.TestCase, bool) {
	if p == nil {
		return domain.TestCase{}, false
	}
	for _, tc := range p.TestCases {
		if tc.TestCaseID == id {
			// Hidden cases are not runnable individually.
			if tc.Hidden {
				return domain.TestCase{}, false
			}
			return tc, true
		}
	}
	return domain.TestCase{}, false
}
