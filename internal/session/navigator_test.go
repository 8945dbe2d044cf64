package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codigloo/contestd/internal/domain"
	"github.com/codigloo/contestd/internal/errors"
)

func TestRuntime_SelectQuizAndAnswer(t *testing.T) {
	t.Parallel()

	e := makeEnv(t, nil)
	rt := attach(t, e)

	require.NoError(t, rt.Select(context.Background(), 1, false))

	v := rt.Snapshot()
	require.Equal(t, 1, v.Selected)
	require.True(t, v.Items[1].Loaded)
	require.EqualValues(t, 300, v.Items[1].QuizRemaining, "5 minute quiz")

	require.NoError(t, rt.SelectAnswer("qq1", 1))
	require.Equal(t, 33, rt.Snapshot().Items[1].Progress)

	// Re-answering the same question overwrites, it does not double-count.
	require.NoError(t, rt.SelectAnswer("qq1", 0))
	require.Equal(t, 33, rt.Snapshot().Items[1].Progress)

	require.NoError(t, rt.SelectAnswer("qq2", 1))
	require.Equal(t, 67, rt.Snapshot().Items[1].Progress)

	err := rt.SelectAnswer("nope", 0)
	require.True(t, errors.IsCode(err, errors.CodeNotFound))
	err = rt.SelectAnswer("qq3", 5)
	require.True(t, errors.IsCode(err, errors.CodeInvalidArgument))
}

func TestRuntime_SubmitQuizPartialAnswers(t *testing.T) {
	t.Parallel()

	e := makeEnv(t, nil)
	rt := attach(t, e)

	require.NoError(t, rt.Select(context.Background(), 1, false))
	require.NoError(t, rt.SelectAnswer("qq1", 1))

	res, err := rt.SubmitQuiz(context.Background())
	require.NoError(t, err)
	require.False(t, res.TimeExpired)
	require.Equal(t, "Quiz submitted.", res.Message)

	subs := e.gw.quizSubmissions()
	require.Len(t, subs, 1)
	require.Equal(t, "z1", subs[0].QuizID)
	require.Equal(t, "i2", subs[0].ContestItemID)
	require.Equal(t, map[string]int{"qq1": 1}, subs[0].Answers)

	v := rt.Snapshot()
	require.True(t, v.Items[1].Completed)

	_, err = rt.SubmitQuiz(context.Background())
	require.True(t, errors.IsCode(err, errors.CodeFailedPrecondition), "a quiz scores once")
	require.Len(t, e.gw.quizSubmissions(), 1)
}

func TestRuntime_QuizCountdownAutoSubmits(t *testing.T) {
	t.Parallel()

	e := makeEnv(t, func(gw *fakeGateway) {
		gw.items = append(gw.items, domain.ContestItem{
			ItemID: "i3", Position: 3, Type: domain.ItemCoding, RefID: "q1", Title: "Two Sum again",
		})
	})
	rt := attach(t, e)

	require.NoError(t, rt.Select(context.Background(), 1, false))
	require.NoError(t, rt.SelectAnswer("qq1", 1))

	quizTicker := e.tickers.last()
	for i := 0; i < 300; i++ {
		quizTicker.tick(time.Now())
	}

	require.Eventually(t, func() bool {
		return len(e.gw.quizSubmissions()) == 1
	}, time.Second, time.Millisecond, "expiry submits whatever is answered")

	subs := e.gw.quizSubmissions()
	require.Equal(t, map[string]int{"qq1": 1}, subs[0].Answers)

	// Expiry goes through the same path as a manual submit: the item is
	// completed and the navigator advances.
	require.Eventually(t, func() bool {
		v := rt.Snapshot()
		return v.Items[1].Completed && v.Items[1].QuizRemaining == 0 && v.Selected == 2
	}, time.Second, time.Millisecond)
	require.True(t, rt.Snapshot().Items[2].Loaded)
}

func TestRuntime_StaleItemLoadDiscarded(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	e := makeEnv(t, func(gw *fakeGateway) { gw.quizBlock = block })
	rt := attach(t, e)

	done := make(chan error, 1)
	go func() {
		done <- rt.Select(context.Background(), 1, false)
	}()

	// The user moves back while the quiz detail is still in flight.
	require.Eventually(t, func() bool {
		return rt.Snapshot().Selected == 1
	}, time.Second, time.Millisecond)
	require.NoError(t, rt.Select(context.Background(), 0, false))

	close(block)
	require.NoError(t, <-done)

	v := rt.Snapshot()
	require.Equal(t, 0, v.Selected)
	require.False(t, v.Items[1].Loaded, "superseded response is dropped, not applied")
	require.EqualValues(t, 0, v.Items[1].QuizRemaining, "no countdown starts for a discarded load")
}

func TestRuntime_LinkedQuizOfferAndAccept(t *testing.T) {
	t.Parallel()

	e := makeEnv(t, nil)
	rt := attach(t, e)

	err := rt.AcceptLinkedQuiz(context.Background())
	require.True(t, errors.IsCode(err, errors.CodeFailedPrecondition), "no offer before a successful run")

	_, err = rt.RunCase(context.Background(), "tc1")
	require.NoError(t, err)
	require.True(t, rt.Snapshot().Items[0].LinkedQuiz)

	require.NoError(t, rt.AcceptLinkedQuiz(context.Background()))

	v := rt.Snapshot()
	require.Len(t, v.Items, 3)
	require.Equal(t, 1, v.Selected)
	require.True(t, v.Items[1].Ephemeral)
	require.Equal(t, domain.ItemQuiz, v.Items[1].Type)
	require.True(t, v.Items[1].Loaded)
	require.EqualValues(t, 120, v.Items[1].QuizRemaining)
	require.Equal(t, "i2", v.Items[2].ItemID, "persistent items keep their order after the insert")

	require.NoError(t, rt.SelectAnswer("fq1", 0))
	_, err = rt.SubmitQuiz(context.Background())
	require.NoError(t, err)

	subs := e.gw.quizSubmissions()
	require.Len(t, subs, 1)
	require.Equal(t, "z9", subs[0].QuizID)
	require.Empty(t, subs[0].ContestItemID, "ephemeral items are not persisted contest items")
}

func TestRuntime_LinkedQuizPrefersPersistentItem(t *testing.T) {
	t.Parallel()

	e := makeEnv(t, func(gw *fakeGateway) {
		gw.items[1].RefID = "z9"
	})
	rt := attach(t, e)

	_, err := rt.RunCase(context.Background(), "tc1")
	require.NoError(t, err)

	require.NoError(t, rt.AcceptLinkedQuiz(context.Background()))

	v := rt.Snapshot()
	require.Len(t, v.Items, 2, "nothing is inserted when a contest item already holds the quiz")
	require.Equal(t, 1, v.Selected)
	require.False(t, v.Items[1].Ephemeral)
}

func TestService_Detach(t *testing.T) {
	t.Parallel()

	e := makeEnv(t, nil)
	rt := attach(t, e)

	id := rt.AttemptID()
	got, ok := e.svc.Get(id)
	require.True(t, ok)
	require.Same(t, rt, got)

	e.svc.Detach(id)
	_, ok = e.svc.Get(id)
	require.False(t, ok)

	// Detaching an unknown attempt is a no-op.
	e.svc.Detach("missing")
}
