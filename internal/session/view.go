package session

import (
	"github.com/codigloo/contestd/internal/autosave"
	"github.com/codigloo/contestd/internal/contest"
	"github.com/codigloo/contestd/internal/contesttime"
	"github.com/codigloo/contestd/internal/domain"
	"github.com/codigloo/contestd/internal/judge"
)

// SubmitResult is the rendered outcome of a coding submit (or its arm step).
type SubmitResult struct {
	Armed       bool       `json:"armed,omitempty"`
	Passed      bool       `json:"passed"`
	PassedCount int        `json:"passedCount"`
	TotalTests  int        `json:"totalTests"`
	Score       string     `json:"score"`
	Cases       []CaseView `json:"cases,omitempty"`
}

// CaseView renders one suite case. Hidden cases show pass/fail only; their
// expected output is never included anywhere in the view.
type CaseView struct {
	Passed bool   `json:"passed"`
	Hidden bool   `json:"hidden"`
	Label  string `json:"label"`
}

func renderCaseResults(results []contest.CaseResult) []CaseView {
	out := make([]CaseView, 0, len(results))
	for _, r := range results {
		v := CaseView{Passed: r.Passed, Hidden: r.Hidden}
		switch {
		case r.Passed && r.Hidden:
			v.Label = "Passed (hidden)"
		case r.Passed:
			v.Label = "Passed"
		case r.Hidden:
			v.Label = "Failed (hidden)"
		default:
			v.Label = "Failed"
		}
		out = append(out, v)
	}
	return out
}

// QuizResult is the rendered outcome of a quiz submit.
type QuizResult struct {
	CorrectAnswers int    `json:"correctAnswers"`
	TotalQuestions int    `json:"totalQuestions"`
	Score          string `json:"score"`
	TimeExpired    bool   `json:"timeExpired"`
	Message        string `json:"message"`
}

// View is a consistent snapshot of the runtime for rendering.
type View struct {
	AttemptID     string             `json:"attemptId"`
	Phase         Phase              `json:"phase"`
	Message       string             `json:"message,omitempty"`
	ContestID     string             `json:"contestId"`
	ContestTitle  string             `json:"contestTitle"`
	ContestStatus contesttime.Status `json:"contestStatus"`
	Remaining     int64              `json:"remainingSeconds"`
	NotStarted    bool               `json:"notStarted"`
	Ended         bool               `json:"ended"`
	Selected      int                `json:"selected"`
	Items         []ItemView         `json:"items"`
}

// ItemView is the per-item slice of the snapshot.
type ItemView struct {
	ItemID    string          `json:"itemId"`
	Type      domain.ItemType `json:"type"`
	Title     string          `json:"title"`
	Ephemeral bool            `json:"ephemeral,omitempty"`
	Loaded    bool            `json:"loaded"`
	Completed bool            `json:"completed"`

	// coding
	Language     string             `json:"language,omitempty"`
	Code         string             `json:"code,omitempty"`
	SaveState    autosave.State     `json:"saveState,omitempty"`
	Running      bool               `json:"running,omitempty"`
	SubmitArmed  bool               `json:"submitArmed,omitempty"`
	Submitting   bool               `json:"submitting,omitempty"`
	Output       string             `json:"output,omitempty"`
	ResultStatus judge.ResultStatus `json:"resultStatus,omitempty"`
	Cases        []CaseView         `json:"cases,omitempty"`
	PassedCount  int                `json:"passedCount,omitempty"`
	TotalTests   int                `json:"totalTests,omitempty"`
	LinkedQuiz   bool               `json:"linkedQuizOffered,omitempty"`

	// quiz
	Progress      int   `json:"progress,omitempty"`
	QuizRemaining int64 `json:"quizRemainingSeconds,omitempty"`
}

// Snapshot renders the runtime state. Invalid contest windows surface as the
// distinct "invalid" status so the UI can render an N/A badge rather than a
// false "ended".
func (rt *Runtime) Snapshot() View {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	v := View{
		AttemptID:  rt.attemptID,
		Phase:      rt.phase,
		Message:    rt.phaseMsg,
		ContestID:  rt.contestID,
		Remaining:  rt.remaining,
		NotStarted: rt.notStarted,
		Ended:      rt.ended,
		Selected:   rt.selected,
	}

	if rt.contest != nil {
		v.ContestTitle = rt.contest.Title
		v.ContestStatus = contesttime.ContestStatus(rt.c.Now(), rt.contest.StartTime, rt.contest.EndTime)
	}

	v.Items = make([]ItemView, 0, len(rt.items))
	for _, it := range rt.items {
		iv := ItemView{
			ItemID:    it.item.ItemID,
			Type:      it.item.Type,
			Title:     it.item.Title,
			Ephemeral: it.item.Ephemeral,
			Loaded:    it.loaded,
			Completed: it.completed,
		}

		switch it.item.Type {
		case domain.ItemCoding:
			iv.Language = it.language
			iv.Code = it.code
			if it.autosave != nil {
				iv.SaveState = it.autosave.State()
			}
			iv.Running = it.running
			iv.SubmitArmed = it.submit == submitArmed
			iv.Submitting = it.submit == submitSubmitting
			iv.Output = it.output
			iv.ResultStatus = it.resultStatus
			iv.Cases = renderCaseResults(it.caseResults)
			iv.PassedCount = it.passedCount
			iv.TotalTests = it.totalTests
			iv.LinkedQuiz = it.linkedOffer

		case domain.ItemQuiz:
			iv.Progress = it.progress
			iv.QuizRemaining = it.quizRemaining
		}

		v.Items = append(v.Items, iv)
	}

	return v
}
