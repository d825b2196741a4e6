package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mockloop/interview-engine/internal/model"
)

const sweepBatchSize = 500

type SweepResult struct {
	Scanned   int `json:"scanned"`
	Advanced  int `json:"advanced"`
	Finalized int `json:"finalized"`
	Failed    int `json:"failed"`
}

type AdminService struct {
	sessions     *SessionService
	evaluations  *EvaluationService
	abandonAfter time.Duration
	now          func() time.Time
}

func NewAdminService(sessions *SessionService, evaluations *EvaluationService, abandonAfter time.Duration) *AdminService {
	return &AdminService{
		sessions:     sessions,
		evaluations:  evaluations,
		abandonAfter: abandonAfter,
		now:          sessions.now,
	}
}

func (s *AdminService) ListSessions(ctx context.Context, status model.SessionStatus, limit, offset int) ([]model.Session, int, error) {
	return s.sessions.List(ctx, status, limit, offset)
}

// Sweep enforces timers on sessions nobody is driving. Overdue sections get a
// forced transition, sessions that reach done that way are finalized, and
// sessions idle past the abandon window are finalized where they stand.
func (s *AdminService) Sweep(ctx context.Context) (*SweepResult, error) {
	active, err := s.sessions.ActiveSessions(ctx, sweepBatchSize)
	if err != nil {
		return nil, err
	}

	res := &SweepResult{Scanned: len(active)}
	now := s.now()
	for i := range active {
		if ctx.Err() != nil {
			break
		}
		session := &active[i]

		if s.abandonAfter > 0 && now.Sub(session.UpdatedAt) >= s.abandonAfter {
			s.finalize(ctx, session.ID, "abandoned", res)
			continue
		}

		transition, err := s.sessions.AdvanceIfOverdue(ctx, session, now)
		if err != nil {
			res.Failed++
			log.Error().Err(err).Str("sessionId", session.ID).Msg("Failed to advance overdue session")
			continue
		}
		if transition == nil {
			continue
		}
		res.Advanced++
		if transition.CurrentSection == model.SectionDone {
			s.finalize(ctx, session.ID, "time expired", res)
		}
	}

	if res.Advanced > 0 || res.Finalized > 0 || res.Failed > 0 {
		log.Info().
			Int("scanned", res.Scanned).
			Int("advanced", res.Advanced).
			Int("finalized", res.Finalized).
			Int("failed", res.Failed).
			Msg("Session sweep finished")
	}
	return res, nil
}

func (s *AdminService) finalize(ctx context.Context, sessionID, reason string, res *SweepResult) {
	if _, err := s.evaluations.Finalize(ctx, sessionID); err != nil {
		res.Failed++
		log.Error().Err(err).Str("sessionId", sessionID).Str("reason", reason).Msg("Failed to finalize session")
		return
	}
	res.Finalized++
}
