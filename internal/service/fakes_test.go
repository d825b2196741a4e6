package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/mockloop/interview-engine/internal/database"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/oracle"
	"github.com/mockloop/interview-engine/internal/repository"
	"github.com/mockloop/interview-engine/internal/sandbox"
	"github.com/mockloop/interview-engine/internal/sse"
)

// store is an in-memory stand-in for the Postgres repositories. Every read
// hands out copies so services see the same isolation a database gives them.
type store struct {
	mu          sync.Mutex
	clock       *testClock
	sessions    map[string]model.Session
	submissions map[string]model.CodeSubmission
	messages    []model.Message
	evaluations map[string]model.HiringEvaluation
}

func newStore(clock *testClock) *store {
	return &store{
		clock:       clock,
		sessions:    map[string]model.Session{},
		submissions: map[string]model.CodeSubmission{},
		evaluations: map[string]model.HiringEvaluation{},
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func copySession(s model.Session) *model.Session {
	s.Scores = s.Scores.Clone()
	s.SectionHistory = append(model.SectionHistory(nil), s.SectionHistory...)
	return &s
}

type memSessions struct{ *store }

func (r memSessions) WithTx(*sqlx.Tx) repository.SessionRepository { return r }

func (r memSessions) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

func (r memSessions) FindByTokenHash(_ context.Context, tokenHash string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TokenHash == tokenHash {
			return copySession(s), nil
		}
	}
	return nil, nil
}

func (r memSessions) Create(_ context.Context, p model.CreateSessionParams) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := model.Session{
		ID:               p.ID,
		UserID:           p.UserID,
		TokenHash:        p.TokenHash,
		InterviewType:    p.InterviewType,
		Mode:             p.Mode,
		Status:           model.SessionStatusActive,
		CurrentSection:   p.CurrentSection,
		Scores:           model.NewScores(),
		SectionHistory:   model.SectionHistory{},
		StartedAt:        p.StartedAt,
		SectionStartedAt: p.StartedAt,
		Version:          1,
		CreatedAt:        p.StartedAt,
		UpdatedAt:        p.StartedAt,
	}
	r.sessions[s.ID] = s
	return copySession(s), nil
}

func (r memSessions) Update(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.sessions[s.ID]
	if !ok || cur.Version != s.Version {
		return repository.ErrVersionConflict
	}
	s.Version++
	s.UpdatedAt = r.clock.Now()
	r.sessions[s.ID] = *copySession(*s)
	return nil
}

func (r memSessions) FindActive(_ context.Context, limit int) ([]model.Session, error) {
	out := r.filter(model.SessionStatusActive)
	sort.Slice(out, func(i, j int) bool { return out[i].SectionStartedAt.Before(out[j].SectionStartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memSessions) List(_ context.Context, status model.SessionStatus, limit, offset int) ([]model.Session, error) {
	out := r.filter(status)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memSessions) Count(_ context.Context, status model.SessionStatus) (int, error) {
	return len(r.filter(status)), nil
}

func (r memSessions) filter(status model.SessionStatus) []model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Session
	for _, s := range r.sessions {
		if status == "" || s.Status == status {
			out = append(out, *copySession(s))
		}
	}
	return out
}

type memSubmissions struct{ *store }

func (r memSubmissions) WithTx(*sqlx.Tx) repository.SubmissionRepository { return r }

func (r memSubmissions) FindByID(_ context.Context, sessionID, id string) (*model.CodeSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	if !ok || sub.SessionID != sessionID {
		return nil, nil
	}
	return &sub, nil
}

func (r memSubmissions) FindBySession(_ context.Context, sessionID string) ([]model.CodeSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.CodeSubmission
	for _, sub := range r.submissions {
		if sub.SessionID == sessionID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r memSubmissions) Create(_ context.Context, p model.CreateSubmissionParams) (*model.CodeSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := model.CodeSubmission{
		ID:              p.ID,
		SessionID:       p.SessionID,
		QuestionID:      p.QuestionID,
		Language:        p.Language,
		Code:            p.Code,
		Passed:          p.Passed,
		PassedCount:     p.PassedCount,
		TotalCount:      p.TotalCount,
		TestResults:     p.TestResults,
		ExecutionTimeMs: p.ExecutionTimeMs,
		CreatedAt:       r.clock.Now(),
	}
	r.submissions[sub.ID] = sub
	return &sub, nil
}

func (r memSubmissions) SaveComplexity(_ context.Context, id string, v model.ComplexityValidation) (*model.CodeSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := r.submissions[id]
	if sub.TimeComplexityAnswer != nil {
		return nil, repository.ErrAlreadyValidated
	}
	sub.TimeComplexityAnswer = &v.TimeComplexityAnswer
	sub.SpaceComplexityAnswer = &v.SpaceComplexityAnswer
	sub.TimeComplexityCorrect = &v.TimeComplexityCorrect
	sub.SpaceComplexityCorrect = &v.SpaceComplexityCorrect
	sub.ActualTimeComplexity = &v.ActualTimeComplexity
	sub.ActualSpaceComplexity = &v.ActualSpaceComplexity
	sub.IsOptimal = &v.IsOptimal
	sub.Confetti = &v.Confetti
	r.submissions[id] = sub
	return &sub, nil
}

type memMessages struct{ *store }

func (r memMessages) WithTx(*sqlx.Tx) repository.MessageRepository { return r }

func (r memMessages) FindByID(_ context.Context, sessionID, id string) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id && m.SessionID == sessionID {
			return &m, nil
		}
	}
	return nil, nil
}

func (r memMessages) FindBySession(ctx context.Context, sessionID string) ([]model.Message, error) {
	return r.where(func(m model.Message) bool { return m.SessionID == sessionID }), nil
}

func (r memMessages) FindBySessionAndTypes(_ context.Context, sessionID string, types ...model.MessageType) ([]model.Message, error) {
	return r.where(func(m model.Message) bool {
		if m.SessionID != sessionID {
			return false
		}
		for _, t := range types {
			if m.MessageType == t {
				return true
			}
		}
		return false
	}), nil
}

func (r memMessages) FindLinked(_ context.Context, linkedID string, messageType model.MessageType) ([]model.Message, error) {
	return r.where(func(m model.Message) bool {
		return m.LinkedID != nil && *m.LinkedID == linkedID && m.MessageType == messageType
	}), nil
}

func (r memMessages) CountBySessionAndType(_ context.Context, sessionID string, messageType model.MessageType) (int, error) {
	return len(r.where(func(m model.Message) bool {
		return m.SessionID == sessionID && m.MessageType == messageType
	})), nil
}

func (r memMessages) Create(_ context.Context, p model.CreateMessageParams) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.MessageType == model.MessageTypeStressEvaluation {
		for _, m := range r.messages {
			if m.MessageType == p.MessageType && *m.LinkedID == *p.LinkedID && *m.StressType == *p.StressType {
				return nil, repository.ErrDuplicate
			}
		}
	}
	m := model.Message{
		ID:             p.ID,
		SessionID:      p.SessionID,
		Role:           p.Role,
		Section:        p.Section,
		MessageType:    p.MessageType,
		Content:        p.Content,
		QuestionNumber: p.QuestionNumber,
		Difficulty:     p.Difficulty,
		StressType:     p.StressType,
		LinkedID:       p.LinkedID,
		Evaluation:     p.Evaluation,
		CreatedAt:      r.clock.Now(),
	}
	r.messages = append(r.messages, m)
	return &m, nil
}

func (r memMessages) where(keep func(model.Message) bool) []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Message
	for _, m := range r.messages {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

type memEvaluations struct{ *store }

func (r memEvaluations) WithTx(*sqlx.Tx) repository.EvaluationRepository { return r }

func (r memEvaluations) FindBySessionID(_ context.Context, sessionID string) (*model.HiringEvaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.evaluations[sessionID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r memEvaluations) Create(_ context.Context, e *model.HiringEvaluation) (*model.HiringEvaluation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.evaluations[e.SessionID]; ok {
		return &existing, false, nil
	}
	r.evaluations[e.SessionID] = *e
	stored := *e
	return &stored, true, nil
}

// inlineTx runs fn without a real transaction; the in-memory repositories
// ignore the tx handle.
type inlineTx struct{}

func (inlineTx) WithTx(_ context.Context, fn database.TxFunc) error {
	return fn(nil)
}

type mockEvaluator struct{ mock.Mock }

func (m *mockEvaluator) Complexity(ctx context.Context, in oracle.ComplexityInput) *oracle.ComplexityResult {
	return m.Called(ctx, in).Get(0).(*oracle.ComplexityResult)
}

func (m *mockEvaluator) Answer(ctx context.Context, in oracle.AnswerInput) *oracle.AnswerResult {
	return m.Called(ctx, in).Get(0).(*oracle.AnswerResult)
}

func (m *mockEvaluator) FollowUp(ctx context.Context, in oracle.FollowUpInput) *oracle.FollowUpResult {
	return m.Called(ctx, in).Get(0).(*oracle.FollowUpResult)
}

func (m *mockEvaluator) Design(ctx context.Context, in oracle.DesignInput) *oracle.DesignResult {
	return m.Called(ctx, in).Get(0).(*oracle.DesignResult)
}

func (m *mockEvaluator) Stress(ctx context.Context, in oracle.StressInput) *oracle.StressResult {
	return m.Called(ctx, in).Get(0).(*oracle.StressResult)
}

func (m *mockEvaluator) EscalationQuestion(ctx context.Context, in oracle.EscalationQuestionInput) (string, bool) {
	args := m.Called(ctx, in)
	return args.String(0), args.Bool(1)
}

func (m *mockEvaluator) BarAnalysis(ctx context.Context, in oracle.BarAnalysisInput) *oracle.BarAnalysisResult {
	return m.Called(ctx, in).Get(0).(*oracle.BarAnalysisResult)
}

type fakeRunner struct {
	report *sandbox.Report
	err    error
	calls  int
}

func (r *fakeRunner) Run(context.Context, string, model.Language, []model.TestCase) (*sandbox.Report, error) {
	r.calls++
	return r.report, r.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []sse.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, ev sse.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// env bundles one set of services over a shared in-memory store.
type env struct {
	clock     *testClock
	store     *store
	evaluator *mockEvaluator
	runner    *fakeRunner
	events    *recordingPublisher

	sessions    *SessionService
	code        *CodeService
	answers     *AnswerService
	designs     *DesignService
	evaluations *EvaluationService
	admin       *AdminService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := newTestClock()
	st := newStore(clock)
	e := &env{
		clock:     clock,
		store:     st,
		evaluator: &mockEvaluator{},
		runner:    &fakeRunner{},
		events:    &recordingPublisher{},
	}
	d := Deps{
		Tx:          inlineTx{},
		Sessions:    memSessions{st},
		Submissions: memSubmissions{st},
		Messages:    memMessages{st},
		Evaluations: memEvaluations{st},
		Evaluator:   e.evaluator,
		Runner:      e.runner,
		Events:      e.events,
		Now:         clock.Now,
	}
	e.sessions = NewSessionService(d)
	e.code = NewCodeService(d)
	e.answers = NewAnswerService(d)
	e.designs = NewDesignService(d)
	e.evaluations = NewEvaluationService(d)
	e.admin = NewAdminService(e.sessions, e.evaluations, 24*time.Hour)
	t.Cleanup(func() { e.evaluator.AssertExpectations(t) })
	return e
}

func (e *env) start(t *testing.T, typ model.InterviewType, mode model.Mode) *StartSessionResult {
	t.Helper()
	res, err := e.sessions.Start(context.Background(), StartSessionRequest{InterviewType: typ, Mode: mode})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return res
}

func (e *env) session(t *testing.T, id string) *model.Session {
	t.Helper()
	s, err := memSessions{e.store}.FindByID(context.Background(), id)
	if err != nil || s == nil {
		t.Fatalf("load session %s: %v", id, err)
	}
	return s
}
