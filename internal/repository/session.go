package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mockloop/interview-engine/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	// Update writes the mutable fields of s if s.Version is still current and
	// bumps s.Version. A stale version yields ErrVersionConflict.
	Update(ctx context.Context, s *model.Session) error
	FindActive(ctx context.Context, limit int) ([]model.Session, error)
	List(ctx context.Context, status model.SessionStatus, limit, offset int) ([]model.Session, error)
	Count(ctx context.Context, status model.SessionStatus) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

type sessionRepo struct {
	db dbtx
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM interview_sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM interview_sessions WHERE token_hash = $1
	`, tokenHash)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO interview_sessions (
			id, user_id, token_hash, interview_type, mode, status,
			current_section, scores, section_history, started_at, section_started_at
		)
		VALUES ($1, $2, $3, $4, $5, 'active', $6, $7, '[]'::jsonb, $8, $8)
		RETURNING *
	`, params.ID, params.UserID, params.TokenHash, params.InterviewType, params.Mode,
		params.CurrentSection, model.NewScores(), params.StartedAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Update(ctx context.Context, s *model.Session) error {
	var row struct {
		Version   int       `db:"version"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	err := r.db.GetContext(ctx, &row, `
		UPDATE interview_sessions SET
			status = $3,
			current_section = $4,
			scores = $5,
			section_history = $6,
			behavioral_falloff = $7,
			falloff_reason = $8,
			evaluation_id = $9,
			section_started_at = $10,
			completed_at = $11,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`, s.ID, s.Version, s.Status, s.CurrentSection, s.Scores, s.SectionHistory,
		s.BehavioralFalloff, s.FalloffReason, s.EvaluationID, s.SectionStartedAt, s.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrVersionConflict
	}
	if err != nil {
		return err
	}
	s.Version = row.Version
	s.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *sessionRepo) FindActive(ctx context.Context, limit int) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM interview_sessions
		WHERE status = 'active'
		ORDER BY section_started_at ASC
		LIMIT $1
	`, limit)
	return sessions, err
}

func (r *sessionRepo) List(ctx context.Context, status model.SessionStatus, limit, offset int) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM interview_sessions
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	return sessions, err
}

func (r *sessionRepo) Count(ctx context.Context, status model.SessionStatus) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM interview_sessions WHERE ($1::text = '' OR status = $1::text)
	`, status)
	return count, err
}
