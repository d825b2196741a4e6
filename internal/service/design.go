package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/mockloop/interview-engine/internal/errors"
	"github.com/mockloop/interview-engine/internal/interview"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/oracle"
	"github.com/mockloop/interview-engine/internal/repository"
)

type DesignRequest struct {
	QuestionID  string          `json:"questionId"`
	Question    string          `json:"question"`
	Answer      string          `json:"answer"`
	DiagramData json.RawMessage `json:"diagramData"`
}

type DesignResult struct {
	SessionID         string             `json:"sessionId"`
	QuestionID        string             `json:"questionId,omitempty"`
	EvaluationID      string             `json:"evaluationId"`
	Score             int                `json:"score"`
	CoverageGaps      model.StringList   `json:"coverageGaps"`
	Strengths         model.StringList   `json:"strengths"`
	StressTestsNeeded []model.StressType `json:"stressTestsNeeded"`
	ShouldStressTest  bool               `json:"shouldStressTest"`
	Critique          string             `json:"critique,omitempty"`
	ScoreDelta        model.ScoreDelta   `json:"scoreDelta"`
	Scores            model.Scores       `json:"scores,omitempty"`
	Degraded          bool               `json:"degraded,omitempty"`
}

type StressRequest struct {
	EvaluationID string           `json:"evaluationId"`
	StressType   model.StressType `json:"stressType"`
	Answer       string           `json:"answer"`
}

type StressResult struct {
	SessionID         string            `json:"sessionId"`
	StressType        model.StressType  `json:"stressType"`
	Question          string            `json:"question"`
	AnswerEvaluated   bool              `json:"answerEvaluated"`
	Score             *int              `json:"score"`
	Passed            *bool             `json:"passed"`
	Feedback          *string           `json:"feedback"`
	NextStressType    *model.StressType `json:"nextStressType"`
	AllStressComplete bool              `json:"allStressComplete"`
	ScoreDelta        model.ScoreDelta  `json:"scoreDelta"`
	Scores            model.Scores      `json:"scores,omitempty"`
	Degraded          bool              `json:"degraded,omitempty"`
}

type DesignService struct {
	core
}

func NewDesignService(d Deps) *DesignService {
	return &DesignService{core: newCore(d)}
}

// Evaluate scores a system design answer and picks the stress scenarios the
// design should face next.
func (s *DesignService) Evaluate(ctx context.Context, sessionID string, req DesignRequest) (*DesignResult, error) {
	answer := strings.TrimSpace(req.Answer)
	if answer == "" {
		return nil, apperrors.MissingRequired("answer")
	}

	session, err := s.loadActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var diagram string
	if len(req.DiagramData) > 0 && string(req.DiagramData) != "null" {
		diagram = string(req.DiagramData)
	}
	eval := s.Evaluator.Design(ctx, oracle.DesignInput{
		Question: req.Question,
		Answer:   answer,
		Diagram:  diagram,
	})
	stress := interview.FilterStressTypes(eval.StressTestsNeeded)

	record := evaluationRecord(eval.Score, eval.ScoreDelta, eval.Critique, eval.Degraded)
	record.Strengths = eval.Strengths
	record.CoverageGaps = eval.CoverageGaps
	record.StressTestsNeeded = stress
	record.ShouldStressTest = len(stress) > 0

	var evalMsg *model.Message
	err = s.withTx(ctx, func(r txRepos) error {
		answerMsg, err := r.messages.Create(ctx, model.CreateMessageParams{
			ID:          newID(),
			SessionID:   session.ID,
			Role:        model.RoleCandidate,
			Section:     model.SectionDesign,
			MessageType: model.MessageTypeDesignAnswer,
			Content:     answer,
		})
		if err != nil {
			return err
		}
		evalMsg, err = r.messages.Create(ctx, model.CreateMessageParams{
			ID:          newID(),
			SessionID:   session.ID,
			Role:        model.RoleEvaluation,
			Section:     model.SectionDesign,
			MessageType: model.MessageTypeDesignEvaluation,
			LinkedID:    ptr(answerMsg.ID),
			Evaluation:  record,
		})
		if err != nil {
			return err
		}
		if applyDelta(session, eval.ScoreDelta) {
			return saveSession(ctx, r.sessions, session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishScores(ctx, session)

	log.Info().
		Str("sessionId", session.ID).
		Int("score", eval.Score).
		Int("stressTests", len(stress)).
		Msg("Design evaluated")

	return &DesignResult{
		SessionID:         session.ID,
		QuestionID:        req.QuestionID,
		EvaluationID:      evalMsg.ID,
		Score:             eval.Score,
		CoverageGaps:      eval.CoverageGaps,
		Strengths:         eval.Strengths,
		StressTestsNeeded: stress,
		ShouldStressTest:  len(stress) > 0,
		Critique:          feedback(session.Mode, eval.Critique),
		ScoreDelta:        eval.ScoreDelta,
		Scores:            visibleScores(session),
		Degraded:          eval.Degraded,
	}, nil
}

// Stress presents one stress scenario against a design evaluation. Without an
// answer it only returns the scenario question. Each scenario can be answered
// once per design evaluation.
func (s *DesignService) Stress(ctx context.Context, sessionID string, req StressRequest) (*StressResult, error) {
	if req.EvaluationID == "" {
		return nil, apperrors.MissingRequired("evaluationId")
	}
	if !interview.ValidStressType(req.StressType) {
		return nil, apperrors.InvalidInput("stressType",
			"must be one of: traffic_spike, failure_injection, multi_region, cost_analysis")
	}

	session, err := s.loadActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	designEval, err := s.Messages.FindByID(ctx, session.ID, req.EvaluationID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if designEval == nil || designEval.Evaluation == nil || designEval.MessageType != model.MessageTypeDesignEvaluation {
		return nil, apperrors.NotFound("Evaluation")
	}

	question := interview.StressQuestions[req.StressType]
	result := &StressResult{
		SessionID:  session.ID,
		StressType: req.StressType,
		Question:   question,
		ScoreDelta: model.ScoreDelta{},
	}

	answer := strings.TrimSpace(req.Answer)
	if answer == "" {
		return result, nil
	}

	completed, err := s.completedStress(ctx, designEval.ID)
	if err != nil {
		return nil, err
	}
	if completed[req.StressType] {
		return nil, apperrors.Conflict("Stress scenario already answered: " + string(req.StressType))
	}

	eval := s.Evaluator.Stress(ctx, oracle.StressInput{
		StressType: req.StressType,
		Question:   question,
		Answer:     answer,
		Criteria:   interview.StressCriteria[req.StressType],
	})

	record := evaluationRecord(eval.Score, eval.ScoreDelta, "", eval.Degraded)
	record.Passed = ptr(eval.Passed)
	record.Feedback = eval.Feedback

	err = s.withTx(ctx, func(r txRepos) error {
		for _, p := range []model.CreateMessageParams{
			{Role: model.RoleInterviewer, MessageType: model.MessageTypeStressQuestion, Content: question},
			{Role: model.RoleCandidate, MessageType: model.MessageTypeStressAnswer, Content: answer},
			{Role: model.RoleEvaluation, MessageType: model.MessageTypeStressEvaluation, Evaluation: record},
		} {
			p.ID = newID()
			p.SessionID = session.ID
			p.Section = model.SectionDesign
			p.StressType = ptr(req.StressType)
			p.LinkedID = ptr(designEval.ID)
			if _, err := r.messages.Create(ctx, p); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return apperrors.Conflict("Stress scenario already answered: " + string(req.StressType))
				}
				return err
			}
		}
		if applyDelta(session, eval.ScoreDelta) {
			return saveSession(ctx, r.sessions, session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishScores(ctx, session)

	completed[req.StressType] = true
	next, ok := interview.NextStressType(designEval.Evaluation.StressTestsNeeded, completed, req.StressType)

	log.Info().
		Str("sessionId", session.ID).
		Str("stressType", string(req.StressType)).
		Int("score", eval.Score).
		Bool("passed", eval.Passed).
		Msg("Stress scenario evaluated")

	result.AnswerEvaluated = true
	result.Score = ptr(eval.Score)
	result.Passed = ptr(eval.Passed)
	if fb := feedback(session.Mode, eval.Feedback); fb != "" {
		result.Feedback = &fb
	}
	if ok {
		result.NextStressType = &next
	}
	result.AllStressComplete = !ok
	if eval.ScoreDelta != nil {
		result.ScoreDelta = eval.ScoreDelta
	}
	result.Scores = visibleScores(session)
	result.Degraded = eval.Degraded
	return result, nil
}

func (s *DesignService) completedStress(ctx context.Context, evaluationID string) (map[model.StressType]bool, error) {
	done, err := s.Messages.FindLinked(ctx, evaluationID, model.MessageTypeStressEvaluation)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	completed := make(map[model.StressType]bool, len(done))
	for _, m := range done {
		if m.StressType != nil {
			completed[*m.StressType] = true
		}
	}
	return completed, nil
}
