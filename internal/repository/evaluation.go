package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/mockloop/interview-engine/internal/model"
)

type EvaluationRepository interface {
	FindBySessionID(ctx context.Context, sessionID string) (*model.HiringEvaluation, error)
	// Create inserts e unless the session already has an evaluation, in which
	// case the stored one is returned and created is false.
	Create(ctx context.Context, e *model.HiringEvaluation) (stored *model.HiringEvaluation, created bool, err error)
	WithTx(tx *sqlx.Tx) EvaluationRepository
}

type evaluationRepo struct {
	db dbtx
}

func NewEvaluationRepository(db *sqlx.DB) EvaluationRepository {
	return &evaluationRepo{db: db}
}

func (r *evaluationRepo) WithTx(tx *sqlx.Tx) EvaluationRepository {
	return &evaluationRepo{db: tx}
}

func (r *evaluationRepo) FindBySessionID(ctx context.Context, sessionID string) (*model.HiringEvaluation, error) {
	var e model.HiringEvaluation
	err := r.db.GetContext(ctx, &e, `
		SELECT * FROM hiring_evaluations WHERE session_id = $1
	`, sessionID)
	return HandleNotFound(&e, err)
}

func (r *evaluationRepo) Create(ctx context.Context, e *model.HiringEvaluation) (*model.HiringEvaluation, bool, error) {
	var stored model.HiringEvaluation
	err := r.db.GetContext(ctx, &stored, `
		INSERT INTO hiring_evaluations (
			id, session_id, interview_type, mode, final_score,
			behavioral_score, coding_score, system_design_score, complexity_awareness_score,
			communication_score, resume_authenticity_score, time_management_score, architecture_maturity_score,
			level_projection, hire_recommendation, bar_comparison_summary,
			strengths_summary, weaknesses_summary, missed_depth_opportunities,
			coding_improvements, architecture_improvements, behavioral_rewrites,
			behavioral_falloff, degraded
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING *
	`, e.ID, e.SessionID, e.InterviewType, e.Mode, e.FinalScore,
		e.BehavioralScore, e.CodingScore, e.SystemDesignScore, e.ComplexityAwarenessScore,
		e.CommunicationScore, e.ResumeAuthenticityScore, e.TimeManagementScore, e.ArchitectureMaturityScore,
		e.LevelProjection, e.HireRecommendation, e.BarComparisonSummary,
		e.StrengthsSummary, e.WeaknessesSummary, e.MissedDepthOpportunities,
		e.CodingImprovements, e.ArchitectureImprovements, e.BehavioralRewrites,
		e.BehavioralFalloff, e.Degraded)
	if errors.Is(err, sql.ErrNoRows) {
		existing, findErr := r.FindBySessionID(ctx, e.SessionID)
		if findErr != nil {
			return nil, false, findErr
		}
		if existing == nil {
			return nil, false, errors.New("evaluation insert conflicted but no row found")
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &stored, true, nil
}
