// Package proctor records anti-cheating events captured during an attempt.
// Persistence is best effort: a violation that fails to insert is logged and
// dropped rather than surfacing into the participant's session.
package proctor

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codigloo/contestd/internal/domain"
	"github.com/codigloo/contestd/internal/errors"
	"github.com/codigloo/contestd/internal/event"
)

type Config struct {
	EventBus *event.Bus
	DB       *pgxpool.Pool
	Now      func() time.Time
}

type Service struct {
	eb  *event.Bus
	db  *pgxpool.Pool
	now func() time.Time
}

func NewService(c Config) *Service {
	if c.Now == nil {
		c.Now = time.Now
	}

	s := &Service{
		eb:  c.EventBus,
		db:  c.DB,
		now: c.Now,
	}

	s.eb.Subscribe(domain.EventNameProctorViolation, func(ctx context.Context, e event.Event) error {
		v := e.(domain.EventProctorViolation).Violation
		if err := s.insert(ctx, v); err != nil {
			slog.ErrorContext(ctx, "proctor: persist violation failed",
				"attempt", v.AttemptID,
				"kind", v.Kind,
				"error", err,
			)
		}
		return nil
	})

	return s
}

var validKinds = map[domain.ProctorKind]bool{
	domain.ProctorTabSwitch:      true,
	domain.ProctorFullscreenExit: true,
	domain.ProctorPasteBlocked:   true,
	domain.ProctorCopyBlocked:    true,
	domain.ProctorDevtoolsOpen:   true,
}

type RecordRequest struct {
	AttemptID string
	Kind      domain.ProctorKind
	Detail    string
}

// Record publishes a violation onto the bus; the insert happens off the
// request path so a slow database never stalls the reporting client.
func (s *Service) Record(ctx context.Context, req RecordRequest) error {
	if req.AttemptID == "" {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("attempt id is required"))
	}
	if !validKinds[req.Kind] {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("unknown violation kind %q", req.Kind))
	}

	s.eb.Publish(ctx, domain.EventProctorViolation{
		Violation: domain.ProctorViolation{
			AttemptID:  req.AttemptID,
			Kind:       req.Kind,
			Detail:     req.Detail,
			CreateTime: s.now(),
		},
	})

	return nil
}

func (s *Service) insert(ctx context.Context, v domain.ProctorViolation) error {
	const stmt = `
INSERT INTO proctor_events (attempt_id, kind, detail, create_time)
VALUES ($1, $2, $3, $4);`

	_, err := s.db.Exec(ctx, stmt, v.AttemptID, string(v.Kind), v.Detail, v.CreateTime)
	return err
}

type CountViolationsRequest struct {
	AttemptID string
}

// CountViolations returns per-kind counts for one attempt, for review tooling.
func (s *Service) CountViolations(ctx context.Context, req CountViolationsRequest) (map[domain.ProctorKind]int, error) {
	const stmt = `
SELECT kind, COUNT(*) AS total
FROM proctor_events
WHERE attempt_id = $1
GROUP BY kind;`

	rows, err := s.db.Query(ctx, stmt, req.AttemptID)
	if err != nil {
		return nil, err
	}

	type kindCount struct {
		kind  string
		total int
	}
	counts, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (kindCount, error) {
		var kc kindCount
		if err := r.Scan(&kc.kind, &kc.total); err != nil {
			return kindCount{}, err
		}
		return kc, nil
	})
	if err != nil {
		return nil, err
	}

	out := make(map[domain.ProctorKind]int, len(counts))
	for _, kc := range counts {
		out[domain.ProctorKind(kc.kind)] = kc.total
	}
	return out, nil
}
