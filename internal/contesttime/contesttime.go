// Package contesttime converts server-supplied contest timestamps into
// countdowns and lifecycle statuses. The contest service emits either RFC3339
// strings or MySQL-style "YYYY-MM-DD HH:MM:SS" values; the latter are naive
// and interpreted as UTC. Malformed input never panics, it degrades to an
// explicit invalid status the caller must render as such.
package contesttime

import (
	"strings"
	"time"
)

// Status classifies "now" relative to a contest window.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
	// StatusInvalid means at least one boundary timestamp did not parse.
	// It is a distinct rendering state, never folded into StatusEnded.
	StatusInvalid Status = "invalid"
)

const mysqlLayout = "2006-01-02 15:04:05"

// Parse accepts an RFC3339 timestamp or a naive MySQL-style datetime
// (interpreted as UTC). The second return is false when the value is
// empty or unparsable.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}

	if t, err := time.Parse(mysqlLayout, s); err == nil {
		return t.UTC(), true
	}

	// Some backends emit "YYYY-MM-DDTHH:MM:SS" without a zone.
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), true
	}

	return time.Time{}, false
}

// RemainingSeconds returns the whole seconds between now and the target
// timestamp, clamped at zero. The second return is false when the target
// does not parse; callers must treat that as "no countdown", not as zero.
func RemainingSeconds(now time.Time, target string) (int64, bool) {
	t, ok := Parse(target)
	if !ok {
		return 0, false
	}

	d := t.Sub(now)
	if d <= 0 {
		return 0, true
	}

	return int64(d / time.Second), true
}

// ContestStatus classifies now against the [start, end) window.
func ContestStatus(now time.Time, start, end string) Status {
	s, okS := Parse(start)
	e, okE := Parse(end)
	if !okS || !okE {
		return StatusInvalid
	}

	switch {
	case now.Before(s):
		return StatusUpcoming
	case now.Before(e):
		return StatusActive
	default:
		return StatusEnded
	}
}
