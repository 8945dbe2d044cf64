package contesttime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codigloo/contestd/internal/contesttime"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in     string
		want   time.Time
		wantOK bool
	}{
		"rfc3339 with zone": {
			in:     "2024-01-01T10:00:00Z",
			want:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		"mysql datetime treated as utc": {
			in:     "2024-01-01 10:00:00",
			want:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		"naive iso without zone": {
			in:     "2024-01-01T10:00:00",
			want:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		"garbage": {
			in:     "not-a-date",
			wantOK: false,
		},
		"empty": {
			in:     "",
			wantOK: false,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, ok := contesttime.Parse(tt.in)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRemainingSeconds(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)

	secs, ok := contesttime.RemainingSeconds(now, "2024-01-01 11:00:00")
	require.True(t, ok)
	require.EqualValues(t, 1800, secs)

	// Past targets clamp to zero, never negative.
	secs, ok = contesttime.RemainingSeconds(now, "2024-01-01 09:00:00")
	require.True(t, ok)
	require.EqualValues(t, 0, secs)

	// Target exactly now is zero.
	secs, ok = contesttime.RemainingSeconds(now, "2024-01-01 10:30:00")
	require.True(t, ok)
	require.EqualValues(t, 0, secs)

	// Malformed targets report not-ok, not zero-remaining.
	_, ok = contesttime.RemainingSeconds(now, "not-a-date")
	require.False(t, ok)
}

func TestContestStatus(t *testing.T) {
	t.Parallel()

	const (
		start = "2024-01-01 10:00:00"
		end   = "2024-01-01 11:00:00"
	)

	tests := map[string]struct {
		now        time.Time
		start, end string
		want       contesttime.Status
	}{
		"before start": {
			now:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			start: start, end: end,
			want: contesttime.StatusUpcoming,
		},
		"mid window": {
			now:   time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
			start: start, end: end,
			want: contesttime.StatusActive,
		},
		"after end": {
			now:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
			start: start, end: end,
			want: contesttime.StatusEnded,
		},
		"exactly at end is ended": {
			now:   time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
			start: start, end: end,
			want: contesttime.StatusEnded,
		},
		"malformed end is invalid, not ended": {
			now:   time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
			start: start, end: "not-a-date",
			want: contesttime.StatusInvalid,
		},
		"malformed start is invalid": {
			now:   time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
			start: "", end: end,
			want: contesttime.StatusInvalid,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, contesttime.ContestStatus(tt.now, tt.start, tt.end))
		})
	}
}
