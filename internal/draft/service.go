// Package draft persists in-progress, unsubmitted code keyed by
// (participant, question, language). Saves are idempotent overwrites.
package draft

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codigloo/contestd/internal/domain"
	"github.com/codigloo/contestd/internal/errors"
)

// Store is what the session runtime needs from draft persistence.
type Store interface {
	Get(ctx context.Context, participantID, questionID, language string) (*domain.CodeDraft, error)
	Save(ctx context.Context, d domain.CodeDraft) error
}

type Config struct {
	DB *pgxpool.Pool
}

type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	return &Service{db: c.DB}
}

// Get returns the latest draft, or a NotFound error when the participant has
// never saved one for this question and language.
func (s *Service) Get(ctx context.Context, participantID, questionID, language string) (*domain.CodeDraft, error) {
	const stmt = `
SELECT code, update_time
FROM code_drafts
WHERE participant_id = $1 AND question_id = $2 AND language = $3;`

	d := domain.CodeDraft{
		ParticipantID: participantID,
		QuestionID:    questionID,
		Language:      language,
	}

	err := s.db.QueryRow(ctx, stmt, participantID, questionID, language).Scan(&d.Code, &d.UpdateTime)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("draft not found: question=%s language=%s", questionID, language))
	}
	if err != nil {
		return nil, err
	}

	return &d, nil
}

// Save upserts the draft. Repeated saves of identical content are harmless.
func (s *Service) Save(ctx context.Context, d domain.CodeDraft) error {
	const stmt = `
INSERT INTO code_drafts (participant_id, question_id, language, code, update_time)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (participant_id, question_id, language)
DO UPDATE SET code = EXCLUDED.code, update_time = EXCLUDED.update_time;`

	t := d.UpdateTime
	if t.IsZero() {
		t = time.Now()
	}

	_, err := s.db.Exec(ctx, stmt, d.ParticipantID, d.QuestionID, d.Language, d.Code, t)
	return err
}
