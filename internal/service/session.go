package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mockloop/interview-engine/internal/audit"
	apperrors "github.com/mockloop/interview-engine/internal/errors"
	"github.com/mockloop/interview-engine/internal/interview"
	"github.com/mockloop/interview-engine/internal/metrics"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/sse"
	"github.com/mockloop/interview-engine/internal/util"
)

type StartSessionRequest struct {
	InterviewType model.InterviewType `json:"interviewType"`
	Mode          model.Mode          `json:"mode"`
	UserID        string              `json:"userId"`
}

type StartSessionResult struct {
	Session      *model.Session       `json:"session"`
	SessionToken string               `json:"sessionToken"`
	TimerState   interview.TimerState `json:"timerState"`
}

type SessionView struct {
	*model.Session
	TimerState interview.TimerState `json:"timerState"`
}

type ModeContext struct {
	Mode       model.Mode           `json:"mode"`
	Rules      interview.ModeRules  `json:"rules"`
	TonePrompt string               `json:"tonePrompt"`
	Progress   SessionProgress      `json:"progress"`
	TimerState interview.TimerState `json:"timerState"`
}

type SessionProgress struct {
	CurrentSection    model.Section   `json:"currentSection"`
	SectionOrder      []model.Section `json:"sectionOrder"`
	CompletedSections []model.Section `json:"completedSections"`
	Status            string          `json:"status"`
}

type SessionService struct {
	core
}

func NewSessionService(d Deps) *SessionService {
	return &SessionService{core: newCore(d)}
}

func (s *SessionService) Start(ctx context.Context, req StartSessionRequest) (*StartSessionResult, error) {
	if req.InterviewType == "" {
		req.InterviewType = model.InterviewTypeTechnical
	}
	if req.Mode == "" {
		req.Mode = model.ModeReal
	}
	if !req.InterviewType.Valid() {
		return nil, apperrors.InvalidInput("interviewType", "must be behavioral, technical or system_design")
	}
	if !req.Mode.Valid() {
		return nil, apperrors.InvalidInput("mode", "must be practice or real")
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	session, err := s.Sessions.Create(ctx, model.CreateSessionParams{
		ID:             newID(),
		UserID:         req.UserID,
		TokenHash:      util.HashToken(token),
		InterviewType:  req.InterviewType,
		Mode:           req.Mode,
		CurrentSection: interview.FirstSection(req.InterviewType),
		StartedAt:      now,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:      audit.EventSessionStart,
		SessionID: session.ID,
		UserID:    req.UserID,
		Details: map[string]interface{}{
			"interviewType": string(session.InterviewType),
			"mode":          string(session.Mode),
		},
	})

	return &StartSessionResult{
		Session:      session,
		SessionToken: token,
		TimerState:   interview.ComputeTimerState(session, now),
	}, nil
}

// Authenticate resolves a bearer token to its session. The token must belong
// to the session named in the path.
func (s *SessionService) Authenticate(ctx context.Context, sessionID, token string) (*model.Session, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("Missing session token")
	}
	session, err := s.Sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil || !util.ConstantTimeEqual(util.HashToken(token), session.TokenHash) {
		return nil, apperrors.InvalidToken("Invalid session token")
	}
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (*SessionView, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SessionView{Session: session, TimerState: interview.ComputeTimerState(session, s.now())}, nil
}

func (s *SessionService) Timer(ctx context.Context, id string) (*interview.TimerState, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	state := interview.ComputeTimerState(session, s.now())
	return &state, nil
}

func (s *SessionService) ModeContext(ctx context.Context, id string) (*ModeContext, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	completed := make([]model.Section, 0, len(session.SectionHistory))
	for _, rec := range session.SectionHistory {
		completed = append(completed, rec.Section)
	}

	return &ModeContext{
		Mode:       session.Mode,
		Rules:      interview.RulesFor(session.Mode),
		TonePrompt: interview.TonePrompt(session.Mode),
		Progress: SessionProgress{
			CurrentSection:    session.CurrentSection,
			SectionOrder:      interview.SectionOrder(session.InterviewType),
			CompletedSections: completed,
			Status:            string(session.Status),
		},
		TimerState: interview.ComputeTimerState(session, s.now()),
	}, nil
}

// Advance moves the session to its next section. An expired section timer
// forces the canonical next section whatever was requested.
func (s *SessionService) Advance(ctx context.Context, id string, requested model.Section) (*interview.Transition, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.advance(ctx, session, requested)
}

func (s *SessionService) advance(ctx context.Context, session *model.Session, requested model.Section) (*interview.Transition, error) {
	transition, err := interview.Advance(session, requested, s.now())
	if err != nil {
		return nil, transitionError(err)
	}

	if err := saveSession(ctx, s.Sessions, session); err != nil {
		return nil, err
	}

	metrics.IncTransition(string(transition.PreviousSection), transition.Forced)
	log.Info().
		Str("sessionId", session.ID).
		Str("from", string(transition.PreviousSection)).
		Str("to", string(transition.CurrentSection)).
		Bool("forced", transition.Forced).
		Msg("Section transition")
	audit.Log(ctx, audit.Event{
		Type:      audit.EventTransition,
		SessionID: session.ID,
		Details: map[string]interface{}{
			"from":      string(transition.PreviousSection),
			"to":        string(transition.CurrentSection),
			"forced":    transition.Forced,
			"timeSpent": transition.TimeSpentSeconds,
		},
	})
	s.publish(ctx, session.ID, sse.EventTransition, transition)

	return transition, nil
}

func transitionError(err error) error {
	var te *interview.TransitionError
	switch {
	case errors.Is(err, interview.ErrSessionCompleted):
		return apperrors.SessionCompleted()
	case errors.As(err, &te):
		return apperrors.InvalidTransition(te.Error()).WithDetails(map[string]any{
			"section":  te.Section,
			"expected": te.Expected,
		})
	}
	return err
}

// List backs the admin listing.
func (s *SessionService) List(ctx context.Context, status model.SessionStatus, limit, offset int) ([]model.Session, int, error) {
	sessions, err := s.Sessions.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Database(err)
	}
	total, err := s.Sessions.Count(ctx, status)
	if err != nil {
		return nil, 0, apperrors.Database(err)
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return sessions, total, nil
}

// ActiveSessions returns up to limit active sessions, oldest section first.
func (s *SessionService) ActiveSessions(ctx context.Context, limit int) ([]model.Session, error) {
	sessions, err := s.Sessions.FindActive(ctx, limit)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return sessions, nil
}

// AdvanceIfOverdue forces the transition of a session whose section timer has
// run out. It reports whether a transition happened.
func (s *SessionService) AdvanceIfOverdue(ctx context.Context, session *model.Session, now time.Time) (*interview.Transition, error) {
	if session.IsCompleted() || !interview.ComputeTimerState(session, now).ForceTransition {
		return nil, nil
	}
	return s.advance(ctx, session, "")
}
