package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mockloop/interview-engine/internal/audit"
	apperrors "github.com/mockloop/interview-engine/internal/errors"
	"github.com/mockloop/interview-engine/internal/interview"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/oracle"
	"github.com/mockloop/interview-engine/internal/repository"
	"github.com/mockloop/interview-engine/internal/sandbox"
	"github.com/mockloop/interview-engine/internal/sse"
)

const defaultQuestionID = "q1"

type SubmitCodeRequest struct {
	Language   model.Language   `json:"language"`
	Code       string           `json:"code"`
	QuestionID string           `json:"questionId"`
	TestCases  []model.TestCase `json:"testCases"`
}

type SubmitCodeResult struct {
	SubmissionID           string            `json:"submissionId"`
	Passed                 bool              `json:"passed"`
	PassedCount            int               `json:"passedCount"`
	TotalCount             int               `json:"totalCount"`
	TestResults            model.TestResults `json:"testResults"`
	ExecutionTimeMs        int64             `json:"executionTimeMs"`
	TriggerComplexityPopup bool              `json:"triggerComplexityPopup"`
	Stderr                 string            `json:"stderr"`
}

type ComplexityRequest struct {
	TimeComplexity  string `json:"timeComplexity"`
	SpaceComplexity string `json:"spaceComplexity"`
}

type ComplexityResult struct {
	SessionID              string           `json:"sessionId"`
	SubmissionID           string           `json:"submissionId"`
	TimeComplexityCorrect  bool             `json:"timeComplexityCorrect"`
	SpaceComplexityCorrect bool             `json:"spaceComplexityCorrect"`
	ActualTimeComplexity   string           `json:"actualTimeComplexity"`
	ActualSpaceComplexity  string           `json:"actualSpaceComplexity"`
	IsOptimal              bool             `json:"isOptimal"`
	Confetti               bool             `json:"confetti"`
	Feedback               string           `json:"feedback"`
	Critique               string           `json:"critique,omitempty"`
	ScoreDelta             model.ScoreDelta `json:"scoreDelta"`
	Scores                 model.Scores     `json:"scores,omitempty"`
	Degraded               bool             `json:"degraded,omitempty"`
}

type EscalateRequest struct {
	QuestionNumber int `json:"questionNumber"`
}

type EscalateResult struct {
	SessionID string `json:"sessionId"`
	interview.EscalationDecision
	NextQuestion   *string `json:"nextQuestion"`
	NextQuestionID *string `json:"nextQuestionId"`
	Degraded       bool    `json:"degraded,omitempty"`
}

type CodeService struct {
	core
}

func NewCodeService(d Deps) *CodeService {
	return &CodeService{core: newCore(d)}
}

// Submit runs candidate code in the sandbox and records the attempt. A passing
// run asks the client to collect the candidate's complexity estimate.
func (s *CodeService) Submit(ctx context.Context, sessionID string, req SubmitCodeRequest) (*SubmitCodeResult, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, apperrors.MissingRequired("code")
	}
	if len(req.TestCases) > sandbox.MaxTestCases {
		return nil, apperrors.InvalidInput("testCases", fmt.Sprintf("at most %d test cases per submission", sandbox.MaxTestCases))
	}
	if req.Language == "" {
		req.Language = model.LanguagePython
	}
	if req.QuestionID == "" {
		req.QuestionID = defaultQuestionID
	}

	session, err := s.loadActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	report, err := s.Runner.Run(ctx, req.Code, req.Language, req.TestCases)
	if err != nil {
		return nil, s.runError(ctx, session, req.Language, err)
	}

	sub, err := s.Submissions.Create(ctx, model.CreateSubmissionParams{
		ID:              newID(),
		SessionID:       session.ID,
		QuestionID:      req.QuestionID,
		Language:        req.Language,
		Code:            req.Code,
		Passed:          report.AllPassed,
		PassedCount:     report.PassedCount,
		TotalCount:      report.TotalCount,
		TestResults:     report.TestResults,
		ExecutionTimeMs: report.ExecutionTimeMs,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("submissionId", sub.ID).
		Str("language", string(req.Language)).
		Int("passed", report.PassedCount).
		Int("total", report.TotalCount).
		Msg("Code submission executed")
	s.publish(ctx, session.ID, sse.EventSubmission, map[string]any{
		"submissionId": sub.ID,
		"passed":       sub.Passed,
		"passedCount":  sub.PassedCount,
		"totalCount":   sub.TotalCount,
	})

	return &SubmitCodeResult{
		SubmissionID:           sub.ID,
		Passed:                 report.AllPassed,
		PassedCount:            report.PassedCount,
		TotalCount:             report.TotalCount,
		TestResults:            report.TestResults,
		ExecutionTimeMs:        report.ExecutionTimeMs,
		TriggerComplexityPopup: report.AllPassed,
		Stderr:                 report.Stderr,
	}, nil
}

func (s *CodeService) runError(ctx context.Context, session *model.Session, lang model.Language, err error) error {
	var rejected *sandbox.RejectedError
	switch {
	case errors.Is(err, sandbox.ErrUnsupportedLanguage):
		return apperrors.UnsupportedLanguage(string(lang), sandbox.SupportedLanguages())
	case errors.As(err, &rejected):
		audit.Log(ctx, audit.Event{
			Type:      audit.EventCodeRejected,
			SessionID: session.ID,
			Details: map[string]interface{}{
				"language": string(lang),
				"reason":   rejected.Reason,
			},
		})
		return apperrors.CodeRejected(rejected.Reason)
	}
	return apperrors.Internal("Code execution failed").WithCause(fmt.Errorf("sandbox run: %w", err))
}

// ValidateComplexity judges the candidate's stated complexity for a passing
// submission. A submission is validated at most once.
func (s *CodeService) ValidateComplexity(ctx context.Context, sessionID, submissionID string, req ComplexityRequest) (*ComplexityResult, error) {
	stated := interview.NormalizeComplexity(req.TimeComplexity)
	statedSpace := interview.NormalizeComplexity(req.SpaceComplexity)
	if stated == "" {
		return nil, apperrors.MissingRequired("timeComplexity")
	}
	if statedSpace == "" {
		return nil, apperrors.MissingRequired("spaceComplexity")
	}

	session, err := s.loadActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sub, err := s.loadSubmission(ctx, session.ID, submissionID)
	if err != nil {
		return nil, err
	}
	if !sub.Passed {
		return nil, apperrors.PolicyViolation("Cannot validate complexity: code did not pass all tests")
	}
	if sub.TimeComplexityAnswer != nil {
		return nil, apperrors.Conflict("Complexity already validated for this submission")
	}

	analysis := s.Evaluator.Complexity(ctx, oracle.ComplexityInput{
		Language:    sub.Language,
		Code:        sub.Code,
		StatedTime:  stated,
		StatedSpace: statedSpace,
	})
	confetti := analysis.TimeCorrect && analysis.SpaceCorrect

	err = s.withTx(ctx, func(r txRepos) error {
		if _, err := r.submissions.SaveComplexity(ctx, sub.ID, model.ComplexityValidation{
			TimeComplexityAnswer:   stated,
			SpaceComplexityAnswer:  statedSpace,
			TimeComplexityCorrect:  analysis.TimeCorrect,
			SpaceComplexityCorrect: analysis.SpaceCorrect,
			ActualTimeComplexity:   analysis.ActualTime,
			ActualSpaceComplexity:  analysis.ActualSpace,
			IsOptimal:              analysis.IsOptimal,
			Confetti:               confetti,
		}); err != nil {
			if errors.Is(err, repository.ErrAlreadyValidated) {
				return apperrors.Conflict("Complexity already validated for this submission")
			}
			return fmt.Errorf("save complexity: %w", err)
		}
		if applyDelta(session, analysis.ScoreDelta) {
			return saveSession(ctx, r.sessions, session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishScores(ctx, session)

	return &ComplexityResult{
		SessionID:              session.ID,
		SubmissionID:           sub.ID,
		TimeComplexityCorrect:  analysis.TimeCorrect,
		SpaceComplexityCorrect: analysis.SpaceCorrect,
		ActualTimeComplexity:   analysis.ActualTime,
		ActualSpaceComplexity:  analysis.ActualSpace,
		IsOptimal:              analysis.IsOptimal,
		Confetti:               confetti,
		Feedback:               analysis.Feedback,
		Critique:               feedback(session.Mode, analysis.Critique),
		ScoreDelta:             analysis.ScoreDelta,
		Scores:                 visibleScores(session),
		Degraded:               analysis.Degraded,
	}, nil
}

// Escalate decides whether the candidate earns a harder coding question and,
// if so, has the oracle write it. The decision itself never depends on the
// oracle.
func (s *CodeService) Escalate(ctx context.Context, sessionID, submissionID string, req EscalateRequest) (*EscalateResult, error) {
	if req.QuestionNumber == 0 {
		req.QuestionNumber = 1
	}
	if req.QuestionNumber < 0 {
		return nil, apperrors.InvalidInput("questionNumber", "must be positive")
	}

	session, err := s.loadActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sub, err := s.loadSubmission(ctx, session.ID, submissionID)
	if err != nil {
		return nil, err
	}

	decision := interview.DecideEscalation(interview.EscalationInput{
		QuestionNumber: req.QuestionNumber,
		Passed:         sub.Passed,
		Optimal:        sub.Optimal(),
		TimeCorrect:    sub.TimeComplexityCorrect != nil && *sub.TimeComplexityCorrect,
		SpaceCorrect:   sub.SpaceComplexityCorrect != nil && *sub.SpaceComplexityCorrect,
		SolveTime:      s.now().Sub(session.SectionStartedAt),
	})
	result := &EscalateResult{SessionID: session.ID, EscalationDecision: decision}
	if !decision.Escalate {
		return result, nil
	}

	prior, err := s.Messages.FindBySessionAndTypes(ctx, session.ID, model.MessageTypeEscalationQuestion)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	priorQuestions := make([]string, 0, len(prior))
	for _, m := range prior {
		priorQuestions = append(priorQuestions, m.Content)
	}

	question, degraded := s.Evaluator.EscalationQuestion(ctx, oracle.EscalationQuestionInput{
		InterviewType:  session.InterviewType,
		Difficulty:     decision.Difficulty,
		QuestionNumber: decision.QuestionNumber,
		PriorQuestions: priorQuestions,
	})

	msg, err := s.Messages.Create(ctx, model.CreateMessageParams{
		ID:             newID(),
		SessionID:      session.ID,
		Role:           model.RoleInterviewer,
		Section:        model.SectionCoding,
		MessageType:    model.MessageTypeEscalationQuestion,
		Content:        question,
		QuestionNumber: ptr(decision.QuestionNumber),
		Difficulty:     ptr(decision.Difficulty),
		LinkedID:       ptr(sub.ID),
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("difficulty", string(decision.Difficulty)).
		Int("questionNumber", decision.QuestionNumber).
		Msg("Coding question escalated")

	result.NextQuestion = &msg.Content
	result.NextQuestionID = &msg.ID
	result.Degraded = degraded
	return result, nil
}

func (s *CodeService) loadSubmission(ctx context.Context, sessionID, id string) (*model.CodeSubmission, error) {
	sub, err := s.Submissions.FindByID(ctx, sessionID, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if sub == nil {
		return nil, apperrors.NotFound("Submission")
	}
	return sub, nil
}
