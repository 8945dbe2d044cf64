package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Visibility of a contest to non-registered users.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ParticipantStatus is the current user's relationship to a contest.
// The empty string means the user has not registered.
type ParticipantStatus string

const (
	ParticipantNone       ParticipantStatus = ""
	ParticipantRegistered ParticipantStatus = "registered"
	ParticipantCompleted  ParticipantStatus = "completed"
)

// Contest is the read-only contest metadata held for the duration of an attempt.
// StartTime and EndTime are the raw server strings; parsing lives in contesttime.
type Contest struct {
	ContestID         string
	Title             string
	Visibility        Visibility
	StartTime         string
	EndTime           string
	ParticipantStatus ParticipantStatus
	CurrentScore      decimal.Decimal
}

// ItemType discriminates contest items.
type ItemType string

const (
	ItemCoding ItemType = "coding"
	ItemQuiz   ItemType = "quiz"
)

// ContestItem is one ordered entry in a contest. Ephemeral items exist only
// inside a runtime (a linked quiz accepted mid-session) and must never be
// written back to the contest service.
type ContestItem struct {
	ItemID       string
	Position     int
	Type         ItemType
	RefID        string // question or quiz id, per Type
	Points       decimal.Decimal
	LinkedQuizID string // optional, coding items only
	Title        string
	Ephemeral    bool
}

// Param is one typed parameter in a problem's canonical schema.
type Param struct {
	Name string
	Type string
}

// ParamSchema is the canonical signature of a problem, when the author provided one.
type ParamSchema struct {
	FunctionName string
	Params       []Param
	ReturnType   string
}

// Problem is a coding question: statement, schema and test cases.
type Problem struct {
	QuestionID string
	Title      string
	Statement  string
	Category   string
	Schema     *ParamSchema
	TestCases  []TestCase
}

// TestCase holds one input/expected pair. Hidden cases contribute to scoring
// but their expected output is never shown to the participant.
type TestCase struct {
	TestCaseID string
	Input      string
	Expected   string
	Hidden     bool
}

// CodeDraft is the latest unsubmitted code for (participant, question, language).
type CodeDraft struct {
	ParticipantID string
	QuestionID    string
	Language      string
	Code          string
	UpdateTime    time.Time
}

// Quiz with its ordered questions. Duration is in minutes.
type Quiz struct {
	QuizID    string
	Title     string
	Duration  int
	Questions []QuizQuestion
}

type QuizQuestion struct {
	QuestionID    string
	Prompt        string
	Options       []string
	CorrectOption int
}

// Scoreboard is the ordered standing of participants within a contest.
type Scoreboard struct {
	ContestID string
	Entries   []ScoreboardEntry
}

type ScoreboardEntry struct {
	Username string
	Score    float64
}

// ProctorKind classifies a captured anti-cheating event.
type ProctorKind string

const (
	ProctorTabSwitch      ProctorKind = "tab_switch"
	ProctorFullscreenExit ProctorKind = "fullscreen_exit"
	ProctorPasteBlocked   ProctorKind = "paste_blocked"
	ProctorCopyBlocked    ProctorKind = "copy_blocked"
	ProctorDevtoolsOpen   ProctorKind = "devtools_open"
)

// ProctorViolation is one recorded anti-cheating event within an attempt.
type ProctorViolation struct {
	AttemptID  string
	Kind       ProctorKind
	Detail     string
	CreateTime time.Time
}
