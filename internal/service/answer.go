package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/mockloop/interview-engine/internal/errors"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/oracle"
)

// falloffFollowUps is the number of earlier follow-ups after which the oracle
// is asked to judge behavioral falloff.
const falloffFollowUps = 2

type AnswerRequest struct {
	QuestionID string        `json:"questionId"`
	Question   string        `json:"question"`
	Answer     string        `json:"answer"`
	Section    model.Section `json:"section"`
}

type AnswerResult struct {
	SessionID      string           `json:"sessionId"`
	QuestionID     string           `json:"questionId,omitempty"`
	EvaluationID   string           `json:"evaluationId"`
	Score          int              `json:"score"`
	NeedsFollowUp  bool             `json:"needsFollowUp"`
	FollowUpReason *string          `json:"followUpReason"`
	Weaknesses     model.StringList `json:"weaknesses"`
	Strengths      model.StringList `json:"strengths"`
	Critique       string           `json:"critique,omitempty"`
	ScoreDelta     model.ScoreDelta `json:"scoreDelta"`
	Scores         model.Scores     `json:"scores,omitempty"`
	Degraded       bool             `json:"degraded,omitempty"`
}

type FollowUpRequest struct {
	EvaluationID string `json:"evaluationId"`
	Answer       string `json:"answer"`
}

type FollowUpResult struct {
	SessionID          string           `json:"sessionId"`
	EvaluationID       string           `json:"evaluationId"`
	FollowUpQuestionID string           `json:"followUpQuestionId"`
	FollowUpQuestion   string           `json:"followUpQuestion"`
	FollowUpScore      int              `json:"followUpScore"`
	BehavioralFalloff  bool             `json:"behavioralFalloff"`
	FalloffReason      *string          `json:"falloffReason"`
	UpdatedWeaknesses  model.StringList `json:"updatedWeaknesses"`
	Critique           string           `json:"critique,omitempty"`
	ScoreDelta         model.ScoreDelta `json:"scoreDelta"`
	Scores             model.Scores     `json:"scores,omitempty"`
	Degraded           bool             `json:"degraded,omitempty"`
}

type AnswerService struct {
	core
}

func NewAnswerService(d Deps) *AnswerService {
	return &AnswerService{core: newCore(d)}
}

func answerSection(s model.Section) bool {
	switch s {
	case model.SectionIntro, model.SectionBehavioral, model.SectionResumeDrill:
		return true
	}
	return false
}

// Evaluate scores a behavioral or resume answer and decides whether the
// interviewer should push back with a follow-up.
func (s *AnswerService) Evaluate(ctx context.Context, sessionID string, req AnswerRequest) (*AnswerResult, error) {
	answer := strings.TrimSpace(req.Answer)
	if answer == "" {
		return nil, apperrors.MissingRequired("answer")
	}

	session, err := s.loadActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	section := req.Section
	if section == "" {
		section = session.CurrentSection
	}
	if !answerSection(section) {
		return nil, apperrors.InvalidInput("section", "must be intro, behavioral or resume_drill")
	}

	eval := s.Evaluator.Answer(ctx, oracle.AnswerInput{
		InterviewType: session.InterviewType,
		Section:       section,
		Mode:          session.Mode,
		Question:      req.Question,
		Answer:        answer,
	})

	record := evaluationRecord(eval.Score, eval.ScoreDelta, eval.Critique, eval.Degraded)
	record.Strengths = eval.Strengths
	record.Weaknesses = eval.Weaknesses
	record.NeedsFollowUp = eval.NeedsFollowUp
	record.FollowUpReason = eval.FollowUpReason

	var evalMsg *model.Message
	err = s.withTx(ctx, func(r txRepos) error {
		answerMsg, err := r.messages.Create(ctx, model.CreateMessageParams{
			ID:          newID(),
			SessionID:   session.ID,
			Role:        model.RoleCandidate,
			Section:     section,
			MessageType: model.MessageTypeAnswer,
			Content:     answer,
		})
		if err != nil {
			return err
		}
		evalMsg, err = r.messages.Create(ctx, model.CreateMessageParams{
			ID:          newID(),
			SessionID:   session.ID,
			Role:        model.RoleEvaluation,
			Section:     section,
			MessageType: model.MessageTypeAnswerEvaluation,
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
		Str("section", string(section)).
		Int("score", eval.Score).
		Bool("needsFollowUp", eval.NeedsFollowUp).
		Msg("Answer evaluated")

	result := &AnswerResult{
		SessionID:     session.ID,
		QuestionID:    req.QuestionID,
		EvaluationID:  evalMsg.ID,
		Score:         eval.Score,
		NeedsFollowUp: eval.NeedsFollowUp,
		Weaknesses:    eval.Weaknesses,
		Strengths:     eval.Strengths,
		Critique:      feedback(session.Mode, eval.Critique),
		ScoreDelta:    eval.ScoreDelta,
		Scores:        visibleScores(session),
		Degraded:      eval.Degraded,
	}
	if eval.FollowUpReason != "" {
		result.FollowUpReason = ptr(eval.FollowUpReason)
	}
	return result, nil
}

// FollowUp re-evaluates a candidate's reply to a challenge raised by an earlier
// evaluation. Once the candidate has been followed up twice the oracle also
// judges behavioral falloff, which is sticky on the session.
func (s *AnswerService) FollowUp(ctx context.Context, sessionID string, req FollowUpRequest) (*FollowUpResult, error) {
	answer := strings.TrimSpace(req.Answer)
	if req.EvaluationID == "" {
		return nil, apperrors.MissingRequired("evaluationId")
	}
	if answer == "" {
		return nil, apperrors.MissingRequired("answer")
	}

	session, err := s.loadActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	prior, err := s.Messages.FindByID(ctx, session.ID, req.EvaluationID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if prior == nil || prior.Evaluation == nil ||
		(prior.MessageType != model.MessageTypeAnswerEvaluation && prior.MessageType != model.MessageTypeFollowUpEvaluation) {
		return nil, apperrors.NotFound("Evaluation")
	}

	count, err := s.Messages.CountBySessionAndType(ctx, session.ID, model.MessageTypeFollowUpEvaluation)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	eval := s.Evaluator.FollowUp(ctx, oracle.FollowUpInput{
		InterviewType:  session.InterviewType,
		Section:        prior.Section,
		FollowUpReason: prior.Evaluation.FollowUpReason,
		Weaknesses:     prior.Evaluation.Weaknesses,
		PriorScore:     prior.Evaluation.Score,
		Answer:         answer,
		FalloffRisk:    count >= falloffFollowUps,
	})

	record := evaluationRecord(eval.Score, eval.ScoreDelta, eval.Critique, eval.Degraded)
	record.Weaknesses = eval.Weaknesses
	record.BehavioralFalloff = eval.BehavioralFalloff
	record.FalloffReason = eval.FalloffReason

	var questionMsg, evalMsg *model.Message
	err = s.withTx(ctx, func(r txRepos) error {
		if _, err := r.messages.Create(ctx, model.CreateMessageParams{
			ID:          newID(),
			SessionID:   session.ID,
			Role:        model.RoleCandidate,
			Section:     prior.Section,
			MessageType: model.MessageTypeFollowUpAnswer,
			Content:     answer,
			LinkedID:    ptr(prior.ID),
		}); err != nil {
			return err
		}
		var err error
		questionMsg, err = r.messages.Create(ctx, model.CreateMessageParams{
			ID:          newID(),
			SessionID:   session.ID,
			Role:        model.RoleInterviewer,
			Section:     prior.Section,
			MessageType: model.MessageTypeFollowUpQuestion,
			Content:     eval.Question,
			LinkedID:    ptr(prior.ID),
		})
		if err != nil {
			return err
		}
		evalMsg, err = r.messages.Create(ctx, model.CreateMessageParams{
			ID:          newID(),
			SessionID:   session.ID,
			Role:        model.RoleEvaluation,
			Section:     prior.Section,
			MessageType: model.MessageTypeFollowUpEvaluation,
			LinkedID:    ptr(prior.ID),
			Evaluation:  record,
		})
		if err != nil {
			return err
		}

		changed := applyDelta(session, eval.ScoreDelta)
		if eval.BehavioralFalloff && !session.BehavioralFalloff {
			session.BehavioralFalloff = true
			session.FalloffReason = ptr(eval.FalloffReason)
			changed = true
		}
		if changed {
			return saveSession(ctx, r.sessions, session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishScores(ctx, session)

	if eval.BehavioralFalloff {
		log.Warn().
			Str("sessionId", session.ID).
			Str("reason", eval.FalloffReason).
			Msg("Behavioral falloff detected")
	}

	result := &FollowUpResult{
		SessionID:          session.ID,
		EvaluationID:       evalMsg.ID,
		FollowUpQuestionID: questionMsg.ID,
		FollowUpQuestion:   eval.Question,
		FollowUpScore:      eval.Score,
		BehavioralFalloff:  eval.BehavioralFalloff,
		UpdatedWeaknesses:  eval.Weaknesses,
		Critique:           feedback(session.Mode, eval.Critique),
		ScoreDelta:         eval.ScoreDelta,
		Scores:             visibleScores(session),
		Degraded:           eval.Degraded,
	}
	if eval.FalloffReason != "" {
		result.FalloffReason = ptr(eval.FalloffReason)
	}
	return result, nil
}
