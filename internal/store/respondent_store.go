package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vbonduro/foodsurvey/internal/domain"
)

type RespondentStore struct {
	db Querier
}

func NewRespondentStore(db Querier) *RespondentStore {
	return &RespondentStore{db: db}
}

// Upsert creates the respondent identified by dni, or overwrites its name and
// email if it already exists. Returns ErrEmailTaken when email belongs to a
// different respondent.
func (s *RespondentStore) Upsert(ctx context.Context, dni, apellido, email string, at time.Time) (*domain.Respondent, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO respondents (dni, apellido, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(dni) DO UPDATE SET
			apellido   = excluded.apellido,
			email      = excluded.email,
			updated_at = excluded.updated_at
	`, dni, apellido, email, at, at)
	if isUniqueViolation(err, "respondents.email") {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert respondent: %w", err)
	}

	respondent, err := s.GetByDNI(ctx, dni)
	if err != nil {
		return nil, err
	}
	if respondent == nil {
		return nil, fmt.Errorf("respondent %q missing after upsert", dni)
	}
	return respondent, nil
}

// GetByDNI returns nil, nil when no respondent has the given dni.
func (s *RespondentStore) GetByDNI(ctx context.Context, dni string) (*domain.Respondent, error) {
	r := &domain.Respondent{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, dni, apellido, email, created_at, updated_at FROM respondents WHERE dni = ?
	`, dni).Scan(&r.ID, &r.DNI, &r.Apellido, &r.Email, &r.CreatedAt, &r.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get respondent: %w", err)
	}

	return r, nil
}

func (s *RespondentStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM respondents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count respondents: %w", err)
	}
	return n, nil
}
