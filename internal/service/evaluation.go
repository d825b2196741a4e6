package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mockloop/interview-engine/internal/audit"
	apperrors "github.com/mockloop/interview-engine/internal/errors"
	"github.com/mockloop/interview-engine/internal/interview"
	"github.com/mockloop/interview-engine/internal/metrics"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/oracle"
	"github.com/mockloop/interview-engine/internal/sse"
)

type EvaluationService struct {
	core
}

func NewEvaluationService(d Deps) *EvaluationService {
	return &EvaluationService{core: newCore(d)}
}

// Finalize produces the session's hiring evaluation and closes the session.
// It is idempotent: once an evaluation exists every call returns it, and
// concurrent calls resolve to whichever insert won.
func (s *EvaluationService) Finalize(ctx context.Context, sessionID string) (*model.HiringReport, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	existing, err := s.Evaluations.FindBySessionID(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return interview.BuildReport(existing), nil
	}

	verdict := interview.Finalize(session.InterviewType, session.Scores)

	messages, err := s.Messages.FindBySession(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	submissions, err := s.Submissions.FindBySession(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	analysis := s.Evaluator.BarAnalysis(ctx, oracle.BarAnalysisInput{
		InterviewType: session.InterviewType,
		Mode:          session.Mode,
		Verdict:       verdict,
		Falloff:       session.BehavioralFalloff,
		Messages:      messages,
		Submissions:   submissions,
	})

	now := s.now()
	eval := &model.HiringEvaluation{
		ID:                       newID(),
		SessionID:                session.ID,
		InterviewType:            session.InterviewType,
		Mode:                     session.Mode,
		FinalScore:               verdict.FinalScore,
		LevelProjection:          verdict.LevelProjection,
		HireRecommendation:       verdict.HireRecommendation,
		BarComparisonSummary:     analysis.Summary,
		StrengthsSummary:         analysis.Strengths,
		WeaknessesSummary:        analysis.Weaknesses,
		MissedDepthOpportunities: analysis.MissedDepth,
		CodingImprovements:       analysis.CodingImprovements,
		ArchitectureImprovements: analysis.ArchitectureImprovements,
		BehavioralRewrites:       analysis.BehavioralRewrites,
		BehavioralFalloff:        session.BehavioralFalloff,
		Degraded:                 analysis.Degraded,
		CreatedAt:                now,
	}
	eval.SetDimensionScores(verdict.Scores)

	var (
		stored  *model.HiringEvaluation
		created bool
	)
	err = s.withTx(ctx, func(r txRepos) error {
		var err error
		stored, created, err = r.evaluations.Create(ctx, eval)
		if err != nil || !created {
			return err
		}
		closeSession(session, stored.ID, now)
		return saveSession(ctx, r.sessions, session)
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return interview.BuildReport(stored), nil
	}

	metrics.IncFinalized(stored.HireRecommendation)
	log.Info().
		Str("sessionId", session.ID).
		Int("finalScore", stored.FinalScore).
		Str("recommendation", stored.HireRecommendation).
		Bool("degraded", stored.Degraded).
		Msg("Session finalized")
	audit.Log(ctx, audit.Event{
		Type:      audit.EventSessionFinalize,
		SessionID: session.ID,
		UserID:    session.UserID,
		Details: map[string]interface{}{
			"evaluationId":   stored.ID,
			"finalScore":     stored.FinalScore,
			"recommendation": stored.HireRecommendation,
		},
	})

	report := interview.BuildReport(stored)
	s.publish(ctx, session.ID, sse.EventFinalized, report)
	return report, nil
}

// closeSession marks s completed, recording time spent in the section it was
// in when it was closed.
func closeSession(s *model.Session, evaluationID string, now time.Time) {
	s.EvaluationID = &evaluationID
	if s.IsCompleted() {
		return
	}
	spent := now.Sub(s.SectionStartedAt)
	if spent < 0 {
		spent = 0
	}
	s.SectionHistory = append(s.SectionHistory, model.SectionRecord{
		Section:   s.CurrentSection,
		TimeSpent: int(spent / time.Second),
		EndedAt:   now,
	})
	s.CurrentSection = model.SectionDone
	s.SectionStartedAt = now
	s.Status = model.SessionStatusCompleted
	s.CompletedAt = &now
}

// Get returns the stored hiring evaluation with display metadata.
func (s *EvaluationService) Get(ctx context.Context, sessionID string) (*model.HiringReport, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	eval, err := s.Evaluations.FindBySessionID(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if eval == nil {
		if !session.IsCompleted() {
			return nil, apperrors.SessionActive("Interview still in progress")
		}
		return nil, apperrors.NotFound("Evaluation")
	}
	return interview.BuildReport(eval), nil
}
