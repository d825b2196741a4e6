package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mockloop/interview-engine/internal/errors"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/oracle"
	"github.com/mockloop/interview-engine/internal/sse"
)

func barAnalysis() *oracle.BarAnalysisResult {
	return &oracle.BarAnalysisResult{
		Summary:    "Solid coding, thin on trade-offs.",
		Strengths:  []string{"clean code"},
		Weaknesses: []string{"trade-off discussion"},
	}
}

func TestEvaluationService_Finalize(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	id := codingSession(t, e, model.ModeReal)

	_, err := e.evaluations.Get(ctx, id)
	assert.Equal(t, apperrors.ErrCodeSessionActive, apperrors.GetCode(err))

	e.clock.Advance(5 * time.Minute)
	e.evaluator.On("BarAnalysis", mock.Anything, mock.MatchedBy(func(in oracle.BarAnalysisInput) bool {
		return in.InterviewType == model.InterviewTypeTechnical && !in.Falloff
	})).Return(barAnalysis()).Once()

	report, err := e.evaluations.Finalize(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, report.SessionID)
	assert.Equal(t, 0, report.FinalScore)
	assert.Equal(t, "Solid coding, thin on trade-offs.", report.BarComparisonSummary)
	assert.NotEmpty(t, report.HireColor)
	assert.NotEmpty(t, report.ScoreCards)

	s := e.session(t, id)
	assert.True(t, s.IsCompleted())
	assert.Equal(t, model.SectionDone, s.CurrentSection)
	require.NotNil(t, s.EvaluationID)
	assert.Equal(t, report.ID, *s.EvaluationID)
	require.Len(t, s.SectionHistory, 2)
	assert.Equal(t, model.SectionCoding, s.SectionHistory[1].Section)
	assert.Equal(t, 300, s.SectionHistory[1].TimeSpent)
	assert.Contains(t, e.events.types(), sse.EventFinalized)

	again, err := e.evaluations.Finalize(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, report.ID, again.ID)

	got, err := e.evaluations.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, report.ID, got.ID)
}

func TestEvaluationService_FinalizeAfterTimeout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	id := codingSession(t, e, model.ModeReal)
	_, err := e.sessions.Advance(ctx, id, "")
	require.NoError(t, err)

	_, err = e.evaluations.Get(ctx, id)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))

	e.evaluator.On("BarAnalysis", mock.Anything, mock.Anything).Return(barAnalysis()).Once()
	report, err := e.evaluations.Finalize(ctx, id)
	require.NoError(t, err)

	s := e.session(t, id)
	require.Len(t, s.SectionHistory, 2)
	require.NotNil(t, s.EvaluationID)
	assert.Equal(t, report.ID, *s.EvaluationID)
}

func TestEvaluationService_FinalizeUnknownSession(t *testing.T) {
	e := newEnv(t)
	_, err := e.evaluations.Finalize(context.Background(), "missing")
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
}
