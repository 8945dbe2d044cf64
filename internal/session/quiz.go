package session

import (
	"context"
	"math"

	"github.com/codigloo/contestd/internal/contest"
	"github.com/codigloo/contestd/internal/domain"
	"github.com/codigloo/contestd/internal/errors"
)

// SelectAnswer records a single-choice answer for one quiz question,
// overwriting any prior selection, and recomputes the progress percentage.
func (rt *Runtime) SelectAnswer(questionID string, optionIndex int) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if err := rt.guardMutableLocked(); err != nil {
		return err
	}

	it, err := rt.currentQuizLocked()
	if err != nil {
		return err
	}
	if it.completed {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("quiz already submitted"))
	}

	q, ok := findQuizQuestion(it.quiz, questionID)
	if !ok {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("quiz question %s not found", questionID))
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("option index %d out of range", optionIndex))
	}

	it.answers[questionID] = optionIndex
	it.progress = progressPercent(len(it.answers), len(it.quiz.Questions))
	return nil
}

// SubmitQuiz sends the collected answers. Partial answer sets are valid;
// unanswered questions simply earn nothing.
func (rt *Runtime) SubmitQuiz(ctx context.Context) (*QuizResult, error) {
	rt.mu.Lock()
	if err := rt.guardMutableLocked(); err != nil {
		rt.mu.Unlock()
		return nil, err
	}

	it, err := rt.currentQuizLocked()
	if err != nil {
		rt.mu.Unlock()
		return nil, err
	}
	rt.mu.Unlock()

	return rt.submitQuizItem(ctx, it, false)
}

// submitQuizItem is the single submit path shared by the user action and the
// per-item countdown expiry. The timeExpired tag changes messaging only.
func (rt *Runtime) submitQuizItem(ctx context.Context, it *itemState, timeExpired bool) (*QuizResult, error) {
	rt.mu.Lock()
	if it.completed {
		rt.mu.Unlock()
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("quiz already submitted"))
	}

	answers := make(map[string]int, len(it.answers))
	for k, v := range it.answers {
		answers[k] = v
	}
	req := contest.SubmitQuizRequest{
		QuizID:        it.item.RefID,
		ContestID:     rt.contestID,
		ContestItemID: it.item.ItemID,
		Answers:       answers,
	}
	if it.item.Ephemeral {
		// Ephemeral linked-quiz items are never persisted as contest items.
		req.ContestItemID = ""
	}
	rt.mu.Unlock()

	resp, err := rt.c.Contest.SubmitQuiz(ctx, rt.token, req)
	if err != nil {
		return nil, errors.Convert(err)
	}

	rt.mu.Lock()
	it.completed = true
	it.timeExpired = timeExpired
	it.stopQuizCountdownLocked()

	next := -1
	if rt.selected+1 < len(rt.items) {
		next = rt.selected + 1
	}
	rt.mu.Unlock()

	rt.c.EventBus.Publish(ctx, domain.EventSubmissionScored{
		ContestID:  rt.contestID,
		Username:   rt.username,
		ItemID:     it.item.ItemID,
		TotalScore: resp.Score,
	})

	if next >= 0 {
		if err := rt.Select(ctx, next, true); err != nil {
			return nil, err
		}
	}

	res := &QuizResult{
		CorrectAnswers: resp.CorrectAnswers,
		TotalQuestions: resp.TotalQuestions,
		Score:          resp.Score.String(),
		TimeExpired:    timeExpired,
	}
	if timeExpired {
		res.Message = "Time is up. Your answers were submitted automatically."
	} else {
		res.Message = "Quiz submitted."
	}
	return res, nil
}

func (rt *Runtime) currentQuizLocked() (*itemState, error) {
	it := rt.currentLocked()
	if it == nil {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("no item selected"))
	}
	if it.item.Type != domain.ItemQuiz {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("current item is not a quiz"))
	}
	if !it.loaded {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("item is still loading"))
	}
	return it, nil
}

func findQuizQuestion(q *domain.Quiz, id string) (domain.QuizQuestion, bool) {
	if q == nil {
		return domain.QuizQuestion{}, false
	}
	for _, qq := range q.Questions {
		if qq.QuestionID == id {
			return qq, true
		}
	}
	return domain.QuizQuestion{}, false
}

func progressPercent(answered, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(answered) / float64(total)))
}
