package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/mockloop/interview-engine/internal/model"
)

type SubmissionRepository interface {
	FindByID(ctx context.Context, sessionID, id string) (*model.CodeSubmission, error)
	FindBySession(ctx context.Context, sessionID string) ([]model.CodeSubmission, error)
	Create(ctx context.Context, params model.CreateSubmissionParams) (*model.CodeSubmission, error)
	// SaveComplexity records a complexity validation once. A submission that
	// already holds one yields ErrAlreadyValidated.
	SaveComplexity(ctx context.Context, id string, v model.ComplexityValidation) (*model.CodeSubmission, error)
	WithTx(tx *sqlx.Tx) SubmissionRepository
}

type submissionRepo struct {
	db dbtx
}

func NewSubmissionRepository(db *sqlx.DB) SubmissionRepository {
	return &submissionRepo{db: db}
}

func (r *submissionRepo) WithTx(tx *sqlx.Tx) SubmissionRepository {
	return &submissionRepo{db: tx}
}

// FindByID is scoped to the session so one session cannot read another's code.
func (r *submissionRepo) FindByID(ctx context.Context, sessionID, id string) (*model.CodeSubmission, error) {
	var sub model.CodeSubmission
	err := r.db.GetContext(ctx, &sub, `
		SELECT * FROM code_submissions WHERE id = $1 AND session_id = $2
	`, id, sessionID)
	return HandleNotFound(&sub, err)
}

func (r *submissionRepo) FindBySession(ctx context.Context, sessionID string) ([]model.CodeSubmission, error) {
	var subs []model.CodeSubmission
	err := r.db.SelectContext(ctx, &subs, `
		SELECT * FROM code_submissions
		WHERE session_id = $1
		ORDER BY created_at ASC
	`, sessionID)
	return subs, err
}

func (r *submissionRepo) Create(ctx context.Context, params model.CreateSubmissionParams) (*model.CodeSubmission, error) {
	var sub model.CodeSubmission
	err := r.db.GetContext(ctx, &sub, `
		INSERT INTO code_submissions (
			id, session_id, question_id, language, code, passed,
			passed_count, total_count, test_results, execution_time_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING *
	`, params.ID, params.SessionID, params.QuestionID, params.Language, params.Code, params.Passed,
		params.PassedCount, params.TotalCount, params.TestResults, params.ExecutionTimeMs)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepo) SaveComplexity(ctx context.Context, id string, v model.ComplexityValidation) (*model.CodeSubmission, error) {
	var sub model.CodeSubmission
	err := r.db.GetContext(ctx, &sub, `
		UPDATE code_submissions SET
			time_complexity_answer = $2,
			space_complexity_answer = $3,
			time_complexity_correct = $4,
			space_complexity_correct = $5,
			actual_time_complexity = $6,
			actual_space_complexity = $7,
			is_optimal = $8,
			confetti = $9
		WHERE id = $1 AND time_complexity_answer IS NULL
		RETURNING *
	`, id, v.TimeComplexityAnswer, v.SpaceComplexityAnswer, v.TimeComplexityCorrect, v.SpaceComplexityCorrect,
		v.ActualTimeComplexity, v.ActualSpaceComplexity, v.IsOptimal, v.Confetti)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlreadyValidated
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
