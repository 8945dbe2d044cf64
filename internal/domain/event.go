package domain

import "github.com/shopspring/decimal"

const (
	EventNameAttemptFinalized  = "attempt.finalized"
	EventNameSubmissionScored  = "submission.scored"
	EventNameScoreboardUpdated = "scoreboard.updated"
	EventNameProctorViolation  = "proctor.violation"
)

type EventAttemptFinalized struct {
	ContestID string
	Username  string
	AttemptID string
}

func (EventAttemptFinalized) Name() string { return EventNameAttemptFinalized }

type EventSubmissionScored struct {
	ContestID  string
	Username   string
	ItemID     string
	TotalScore decimal.Decimal
}

func (EventSubmissionScored) Name() string { return EventNameSubmissionScored }

type EventScoreboardUpdated struct {
	Scoreboard Scoreboard
}

func (EventScoreboardUpdated) Name() string { return EventNameScoreboardUpdated }

type EventProctorViolation struct {
	Violation ProctorViolation
}

func (EventProctorViolation) Name() string { return EventNameProctorViolation }
