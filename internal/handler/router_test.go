package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/mockloop/interview-engine/internal/errors"
	"github.com/mockloop/interview-engine/internal/interview"
	"github.com/mockloop/interview-engine/internal/middleware"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/service"
)

const (
	testSessionID = "6f1c2b1e-4f7a-4d8e-9b0a-2c3d4e5f6a7b"
	testToken     = "token-123"
)

type mockSessions struct{ mock.Mock }

func (m *mockSessions) Start(ctx context.Context, req service.StartSessionRequest) (*service.StartSessionResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*service.StartSessionResult)
	return res, args.Error(1)
}

func (m *mockSessions) Get(ctx context.Context, id string) (*service.SessionView, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*service.SessionView)
	return res, args.Error(1)
}

func (m *mockSessions) Timer(ctx context.Context, id string) (*interview.TimerState, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*interview.TimerState)
	return res, args.Error(1)
}

func (m *mockSessions) ModeContext(ctx context.Context, id string) (*service.ModeContext, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*service.ModeContext)
	return res, args.Error(1)
}

func (m *mockSessions) Advance(ctx context.Context, id string, requested model.Section) (*interview.Transition, error) {
	args := m.Called(ctx, id, requested)
	res, _ := args.Get(0).(*interview.Transition)
	return res, args.Error(1)
}

type mockCode struct{ mock.Mock }

func (m *mockCode) Submit(ctx context.Context, sessionID string, req service.SubmitCodeRequest) (*service.SubmitCodeResult, error) {
	args := m.Called(ctx, sessionID, req)
	res, _ := args.Get(0).(*service.SubmitCodeResult)
	return res, args.Error(1)
}

func (m *mockCode) ValidateComplexity(ctx context.Context, sessionID, submissionID string, req service.ComplexityRequest) (*service.ComplexityResult, error) {
	args := m.Called(ctx, sessionID, submissionID, req)
	res, _ := args.Get(0).(*service.ComplexityResult)
	return res, args.Error(1)
}

func (m *mockCode) Escalate(ctx context.Context, sessionID, submissionID string, req service.EscalateRequest) (*service.EscalateResult, error) {
	args := m.Called(ctx, sessionID, submissionID, req)
	res, _ := args.Get(0).(*service.EscalateResult)
	return res, args.Error(1)
}

type mockEvaluations struct{ mock.Mock }

func (m *mockEvaluations) Finalize(ctx context.Context, sessionID string) (*model.HiringReport, error) {
	args := m.Called(ctx, sessionID)
	res, _ := args.Get(0).(*model.HiringReport)
	return res, args.Error(1)
}

func (m *mockEvaluations) Get(ctx context.Context, sessionID string) (*model.HiringReport, error) {
	args := m.Called(ctx, sessionID)
	res, _ := args.Get(0).(*model.HiringReport)
	return res, args.Error(1)
}

type mockAdmin struct{ mock.Mock }

func (m *mockAdmin) ListSessions(ctx context.Context, status model.SessionStatus, limit, offset int) ([]model.Session, int, error) {
	args := m.Called(ctx, status, limit, offset)
	res, _ := args.Get(0).([]model.Session)
	return res, args.Int(1), args.Error(2)
}

func (m *mockAdmin) Sweep(ctx context.Context) (*service.SweepResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*service.SweepResult)
	return res, args.Error(1)
}

type tokenAuth struct{}

func (tokenAuth) Authenticate(_ context.Context, sessionID, token string) (*model.Session, error) {
	if token != testToken {
		return nil, apperrors.InvalidToken("Invalid session token")
	}
	return &model.Session{ID: sessionID, Status: model.SessionStatusActive}, nil
}

type testAPI struct {
	sessions    *mockSessions
	code        *mockCode
	evaluations *mockEvaluations
	admin       *mockAdmin
	router      http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	api := &testAPI{
		sessions:    &mockSessions{},
		code:        &mockCode{},
		evaluations: &mockEvaluations{},
		admin:       &mockAdmin{},
	}
	api.router = NewRouter(RouterConfig{
		Sessions:    NewSessionHandler(api.sessions),
		Interview:   NewInterviewHandler(api.code, nil, nil, api.evaluations),
		Admin:       NewAdminHandler(api.admin),
		SessionAuth: middleware.NewSessionAuthMiddleware(tokenAuth{}),
		AdminAuth:   middleware.NewAdminAuthMiddleware(string(hash)),
		CodeLimit:   middleware.NewCodeRateLimitMiddleware(middleware.NewRateLimiter(), 1),
		CORSOrigins: []string{"http://localhost:5173"},
	})
	t.Cleanup(func() {
		api.sessions.AssertExpectations(t)
		api.code.AssertExpectations(t)
		api.evaluations.AssertExpectations(t)
		api.admin.AssertExpectations(t)
	})
	return api
}

func (a *testAPI) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRouter_Health(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestRouter_StartSession(t *testing.T) {
	api := newTestAPI(t)
	api.sessions.On("Start", mock.Anything, service.StartSessionRequest{
		InterviewType: model.InterviewTypeSystemDesign,
		Mode:          model.ModePractice,
	}).Return(&service.StartSessionResult{
		Session:      &model.Session{ID: testSessionID, CurrentSection: model.SectionResumeDrill},
		SessionToken: testToken,
	}, nil)

	rec := api.do(http.MethodPost, "/api/v1/sessions", `{"interviewType":"system_design","mode":"practice"}`, false)

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, testToken, body["sessionToken"])
	assert.Equal(t, testSessionID, body["session"].(map[string]any)["sessionId"])
}

func TestRouter_StartSession_InvalidJSON(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodPost, "/api/v1/sessions", `{not json`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeBody(t, rec)["code"])
}

func TestRouter_SessionRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/api/v1/sessions/"+testSessionID+"/timer", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Advance(t *testing.T) {
	api := newTestAPI(t)

	t.Run("passes requested section", func(t *testing.T) {
		api.sessions.On("Advance", mock.Anything, testSessionID, model.SectionCoding).
			Return(&interview.Transition{
				PreviousSection: model.SectionResumeDrill,
				CurrentSection:  model.SectionCoding,
			}, nil).Once()

		rec := api.do(http.MethodPost, "/api/v1/sessions/"+testSessionID+"/advance", `{"requestedSection":"coding"}`, true)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "coding", decodeBody(t, rec)["currentSection"])
	})

	t.Run("empty body advances canonically", func(t *testing.T) {
		api.sessions.On("Advance", mock.Anything, testSessionID, model.Section("")).
			Return(&interview.Transition{CurrentSection: model.SectionDone}, nil).Once()

		rec := api.do(http.MethodPost, "/api/v1/sessions/"+testSessionID+"/advance", "", true)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("maps invalid transition", func(t *testing.T) {
		api.sessions.On("Advance", mock.Anything, testSessionID, model.SectionDesign).
			Return(nil, apperrors.InvalidTransition("Invalid transition. Expected: coding")).Once()

		rec := api.do(http.MethodPost, "/api/v1/sessions/"+testSessionID+"/advance", `{"requestedSection":"design"}`, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "INVALID_TRANSITION", body["code"])
		assert.Equal(t, "Invalid transition. Expected: coding", body["error"])
	})
}

func TestRouter_SubmitCode_RateLimited(t *testing.T) {
	api := newTestAPI(t)
	req := service.SubmitCodeRequest{Language: model.LanguagePython, Code: "print(1)"}
	api.code.On("Submit", mock.Anything, testSessionID, req).
		Return(&service.SubmitCodeResult{SubmissionID: "sub-1", Passed: true, TriggerComplexityPopup: true}, nil).Once()

	path := "/api/v1/sessions/" + testSessionID + "/code"
	body := `{"language":"python","code":"print(1)"}`

	rec := api.do(http.MethodPost, path, body, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["triggerComplexityPopup"])

	rec = api.do(http.MethodPost, path, body, true)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRouter_SubmitCode_Rejected(t *testing.T) {
	api := newTestAPI(t)
	api.code.On("Submit", mock.Anything, testSessionID, mock.Anything).
		Return(nil, apperrors.CodeRejected("Disallowed construct: 'import os'")).Once()

	rec := api.do(http.MethodPost, "/api/v1/sessions/"+testSessionID+"/code", `{"code":"import os"}`, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "CODE_REJECTED", body["code"])
	assert.Equal(t, "Code rejected: Disallowed construct: 'import os'", body["error"])
}

func TestRouter_ComplexityUsesSubmissionParam(t *testing.T) {
	api := newTestAPI(t)
	api.code.On("ValidateComplexity", mock.Anything, testSessionID, "sub-9", service.ComplexityRequest{
		TimeComplexity:  "O(n)",
		SpaceComplexity: "O(1)",
	}).Return(&service.ComplexityResult{SubmissionID: "sub-9", Confetti: true}, nil).Once()

	rec := api.do(http.MethodPost, "/api/v1/sessions/"+testSessionID+"/submissions/sub-9/complexity",
		`{"timeComplexity":"O(n)","spaceComplexity":"O(1)"}`, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["confetti"])
}

func TestRouter_EvaluationWhileActive(t *testing.T) {
	api := newTestAPI(t)
	api.evaluations.On("Get", mock.Anything, testSessionID).
		Return(nil, apperrors.SessionActive("Interview still in progress")).Once()

	rec := api.do(http.MethodGet, "/api/v1/sessions/"+testSessionID+"/evaluation", "", true)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SESSION_ACTIVE", decodeBody(t, rec)["code"])
}

func TestRouter_Finalize(t *testing.T) {
	api := newTestAPI(t)
	api.evaluations.On("Finalize", mock.Anything, testSessionID).Return(&model.HiringReport{
		HiringEvaluation: &model.HiringEvaluation{ID: "eval-1", FinalScore: 77, HireRecommendation: "Hire"},
		ScoreBand:        "Strong",
		HireColor:        "blue",
	}, nil).Once()

	rec := api.do(http.MethodPost, "/api/v1/sessions/"+testSessionID+"/finalize", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "eval-1", body["evaluationId"])
	assert.Equal(t, "blue", body["hireColor"])
	assert.EqualValues(t, 77, body["finalScore"])
}

func TestRouter_Admin(t *testing.T) {
	api := newTestAPI(t)

	t.Run("requires credentials", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/admin/sessions", "", false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("lists sessions", func(t *testing.T) {
		api.admin.On("ListSessions", mock.Anything, model.SessionStatusActive, 10, 0).
			Return([]model.Session{{ID: testSessionID}}, 1, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/admin/sessions?status=active&limit=10", nil)
		req.SetBasicAuth(middleware.AdminUser, "admin-pass")
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.EqualValues(t, 1, body["total"])
		assert.Len(t, body["items"], 1)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/sessions?status=paused", nil)
		req.SetBasicAuth(middleware.AdminUser, "admin-pass")
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("sweeps", func(t *testing.T) {
		api.admin.On("Sweep", mock.Anything).Return(&service.SweepResult{Scanned: 3, Advanced: 1}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/admin/sweep", nil)
		req.SetBasicAuth(middleware.AdminUser, "admin-pass")
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, decodeBody(t, rec)["advanced"])
	})
}

func TestRouter_CORSPreflight(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
