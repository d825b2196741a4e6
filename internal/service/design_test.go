package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mockloop/interview-engine/internal/errors"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/oracle"
)

func designSession(t *testing.T, e *env, mode model.Mode) string {
	t.Helper()
	id := e.start(t, model.InterviewTypeSystemDesign, mode).Session.ID
	_, err := e.sessions.Advance(context.Background(), id, model.SectionDesign)
	require.NoError(t, err)
	return id
}

func TestDesignService_EvaluateAndStress(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	id := designSession(t, e, model.ModePractice)

	e.evaluator.On("Design", mock.Anything, oracle.DesignInput{
		Question: "Design a URL shortener",
		Answer:   "Hash IDs into a KV store behind a cache.",
		Diagram:  `{"nodes":["api","cache","kv"]}`,
	}).Return(&oracle.DesignResult{
		Score:             6,
		CoverageGaps:      []string{"failure_handling"},
		Strengths:         []string{"caching"},
		StressTestsNeeded: []model.StressType{"cost_analysis", "made_up", model.StressTrafficSpike},
		Critique:          "Say what happens when the cache dies.",
		ScoreDelta:        model.ScoreDelta{model.DimensionSystemDesign: 2},
	}).Once()

	design, err := e.designs.Evaluate(ctx, id, DesignRequest{
		Question:    "Design a URL shortener",
		Answer:      "Hash IDs into a KV store behind a cache.",
		DiagramData: json.RawMessage(`{"nodes":["api","cache","kv"]}`),
	})
	require.NoError(t, err)
	assert.True(t, design.ShouldStressTest)
	assert.Equal(t, []model.StressType{model.StressTrafficSpike, model.StressCostAnalysis}, design.StressTestsNeeded)
	assert.Equal(t, 10, design.Scores[model.DimensionSystemDesign])

	t.Run("without an answer only the scenario is returned", func(t *testing.T) {
		res, err := e.designs.Stress(ctx, id, StressRequest{
			EvaluationID: design.EvaluationID,
			StressType:   model.StressTrafficSpike,
		})
		require.NoError(t, err)
		assert.False(t, res.AnswerEvaluated)
		assert.NotEmpty(t, res.Question)
		assert.Nil(t, res.Score)
		assert.Empty(t, res.ScoreDelta)
	})

	e.evaluator.On("Stress", mock.Anything, mock.MatchedBy(func(in oracle.StressInput) bool {
		return in.StressType == model.StressTrafficSpike && in.Criteria != ""
	})).Return(&oracle.StressResult{
		Score:      7,
		Passed:     true,
		Feedback:   "Good use of autoscaling.",
		ScoreDelta: model.ScoreDelta{model.DimensionArchitectureMaturity: 1},
	}).Once()

	res, err := e.designs.Stress(ctx, id, StressRequest{
		EvaluationID: design.EvaluationID,
		StressType:   model.StressTrafficSpike,
		Answer:       "Autoscale the API tier and shed load at the edge.",
	})
	require.NoError(t, err)
	assert.True(t, res.AnswerEvaluated)
	require.NotNil(t, res.Passed)
	assert.True(t, *res.Passed)
	require.NotNil(t, res.Feedback)
	assert.Equal(t, "Good use of autoscaling.", *res.Feedback)
	require.NotNil(t, res.NextStressType)
	assert.Equal(t, model.StressCostAnalysis, *res.NextStressType)
	assert.False(t, res.AllStressComplete)

	_, err = e.designs.Stress(ctx, id, StressRequest{
		EvaluationID: design.EvaluationID,
		StressType:   model.StressTrafficSpike,
		Answer:       "Again.",
	})
	assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))

	e.evaluator.On("Stress", mock.Anything, mock.MatchedBy(func(in oracle.StressInput) bool {
		return in.StressType == model.StressCostAnalysis
	})).Return(&oracle.StressResult{Score: 3, ScoreDelta: model.ScoreDelta{}}).Once()

	res, err = e.designs.Stress(ctx, id, StressRequest{
		EvaluationID: design.EvaluationID,
		StressType:   model.StressCostAnalysis,
		Answer:       "It is cheap.",
	})
	require.NoError(t, err)
	assert.Nil(t, res.NextStressType)
	assert.True(t, res.AllStressComplete)

	stress, _ := memMessages{e.store}.FindLinked(ctx, design.EvaluationID, model.MessageTypeStressEvaluation)
	assert.Len(t, stress, 2)
}

func TestDesignService_StressErrors(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	id := designSession(t, e, model.ModeReal)

	_, err := e.designs.Stress(ctx, id, StressRequest{StressType: model.StressMultiRegion})
	assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))

	_, err = e.designs.Stress(ctx, id, StressRequest{EvaluationID: "x", StressType: "earthquake"})
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))

	_, err = e.designs.Stress(ctx, id, StressRequest{EvaluationID: "x", StressType: model.StressMultiRegion})
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))

	_, err = e.designs.Evaluate(ctx, id, DesignRequest{Answer: " "})
	assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))
}
