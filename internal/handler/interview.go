package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/service"
)

type CodeAPI interface {
	Submit(ctx context.Context, sessionID string, req service.SubmitCodeRequest) (*service.SubmitCodeResult, error)
	ValidateComplexity(ctx context.Context, sessionID, submissionID string, req service.ComplexityRequest) (*service.ComplexityResult, error)
	Escalate(ctx context.Context, sessionID, submissionID string, req service.EscalateRequest) (*service.EscalateResult, error)
}

type AnswerAPI interface {
	Evaluate(ctx context.Context, sessionID string, req service.AnswerRequest) (*service.AnswerResult, error)
	FollowUp(ctx context.Context, sessionID string, req service.FollowUpRequest) (*service.FollowUpResult, error)
}

type DesignAPI interface {
	Evaluate(ctx context.Context, sessionID string, req service.DesignRequest) (*service.DesignResult, error)
	Stress(ctx context.Context, sessionID string, req service.StressRequest) (*service.StressResult, error)
}

type EvaluationAPI interface {
	Finalize(ctx context.Context, sessionID string) (*model.HiringReport, error)
	Get(ctx context.Context, sessionID string) (*model.HiringReport, error)
}

var (
	_ CodeAPI       = (*service.CodeService)(nil)
	_ AnswerAPI     = (*service.AnswerService)(nil)
	_ DesignAPI     = (*service.DesignService)(nil)
	_ EvaluationAPI = (*service.EvaluationService)(nil)
)

const submissionIDParam = "submissionId"

// InterviewHandler serves the candidate-facing evaluation endpoints of a
// session.
type InterviewHandler struct {
	code        CodeAPI
	answers     AnswerAPI
	designs     DesignAPI
	evaluations EvaluationAPI
}

func NewInterviewHandler(code CodeAPI, answers AnswerAPI, designs DesignAPI, evaluations EvaluationAPI) *InterviewHandler {
	return &InterviewHandler{
		code:        code,
		answers:     answers,
		designs:     designs,
		evaluations: evaluations,
	}
}

// handle decodes the request body into Req, runs fn and writes its result.
func handle[Req, Res any](w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, req Req) (Res, error)) {
	var req Req
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := fn(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/v1/sessions/{sessionId}/code
func (h *InterviewHandler) SubmitCode(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func(ctx context.Context, req service.SubmitCodeRequest) (*service.SubmitCodeResult, error) {
		return h.code.Submit(ctx, sessionID(r), req)
	})
}

// POST /api/v1/sessions/{sessionId}/submissions/{submissionId}/complexity
func (h *InterviewHandler) ValidateComplexity(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func(ctx context.Context, req service.ComplexityRequest) (*service.ComplexityResult, error) {
		return h.code.ValidateComplexity(ctx, sessionID(r), chi.URLParam(r, submissionIDParam), req)
	})
}

// POST /api/v1/sessions/{sessionId}/submissions/{submissionId}/escalate
func (h *InterviewHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func(ctx context.Context, req service.EscalateRequest) (*service.EscalateResult, error) {
		return h.code.Escalate(ctx, sessionID(r), chi.URLParam(r, submissionIDParam), req)
	})
}

// POST /api/v1/sessions/{sessionId}/answers
func (h *InterviewHandler) EvaluateAnswer(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func(ctx context.Context, req service.AnswerRequest) (*service.AnswerResult, error) {
		return h.answers.Evaluate(ctx, sessionID(r), req)
	})
}

// POST /api/v1/sessions/{sessionId}/follow-ups
func (h *InterviewHandler) FollowUp(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func(ctx context.Context, req service.FollowUpRequest) (*service.FollowUpResult, error) {
		return h.answers.FollowUp(ctx, sessionID(r), req)
	})
}

// POST /api/v1/sessions/{sessionId}/designs
func (h *InterviewHandler) EvaluateDesign(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func(ctx context.Context, req service.DesignRequest) (*service.DesignResult, error) {
		return h.designs.Evaluate(ctx, sessionID(r), req)
	})
}

// POST /api/v1/sessions/{sessionId}/stress
func (h *InterviewHandler) Stress(w http.ResponseWriter, r *http.Request) {
	handle(w, r, func(ctx context.Context, req service.StressRequest) (*service.StressResult, error) {
		return h.designs.Stress(ctx, sessionID(r), req)
	})
}

// POST /api/v1/sessions/{sessionId}/finalize
func (h *InterviewHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	report, err := h.evaluations.Finalize(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GET /api/v1/sessions/{sessionId}/evaluation
func (h *InterviewHandler) Evaluation(w http.ResponseWriter, r *http.Request) {
	report, err := h.evaluations.Get(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
