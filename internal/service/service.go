package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/mockloop/interview-engine/internal/database"
	apperrors "github.com/mockloop/interview-engine/internal/errors"
	"github.com/mockloop/interview-engine/internal/interview"
	"github.com/mockloop/interview-engine/internal/model"
	"github.com/mockloop/interview-engine/internal/oracle"
	"github.com/mockloop/interview-engine/internal/repository"
	"github.com/mockloop/interview-engine/internal/sandbox"
	"github.com/mockloop/interview-engine/internal/sse"
)

// Evaluator judges free-form candidate input. Implementations never fail;
// they return a degraded fallback instead.
type Evaluator interface {
	Complexity(ctx context.Context, in oracle.ComplexityInput) *oracle.ComplexityResult
	Answer(ctx context.Context, in oracle.AnswerInput) *oracle.AnswerResult
	FollowUp(ctx context.Context, in oracle.FollowUpInput) *oracle.FollowUpResult
	Design(ctx context.Context, in oracle.DesignInput) *oracle.DesignResult
	Stress(ctx context.Context, in oracle.StressInput) *oracle.StressResult
	EscalationQuestion(ctx context.Context, in oracle.EscalationQuestionInput) (string, bool)
	BarAnalysis(ctx context.Context, in oracle.BarAnalysisInput) *oracle.BarAnalysisResult
}

var _ Evaluator = (*oracle.Evaluator)(nil)

type CodeRunner interface {
	Run(ctx context.Context, code string, lang model.Language, cases []model.TestCase) (*sandbox.Report, error)
}

var _ CodeRunner = (*sandbox.Harness)(nil)

type Publisher interface {
	Publish(ctx context.Context, sessionID string, event sse.Event) error
}

type Transactor interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// Deps is everything the interview services share.
type Deps struct {
	Tx          Transactor
	Sessions    repository.SessionRepository
	Submissions repository.SubmissionRepository
	Messages    repository.MessageRepository
	Evaluations repository.EvaluationRepository
	Evaluator   Evaluator
	Runner      CodeRunner
	Events      Publisher
	Now         func() time.Time
}

type core struct {
	Deps
}

func newCore(d Deps) core {
	if d.Now == nil {
		d.Now = time.Now
	}
	return core{Deps: d}
}

func (c *core) now() time.Time {
	return c.Now().UTC()
}

func newID() string {
	return uuid.NewString()
}

func (c *core) loadSession(ctx context.Context, id string) (*model.Session, error) {
	s, err := c.Sessions.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if s == nil {
		return nil, apperrors.NotFound("Session")
	}
	if s.Scores == nil {
		s.Scores = model.NewScores()
	}
	return s, nil
}

func (c *core) loadActiveSession(ctx context.Context, id string) (*model.Session, error) {
	s, err := c.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.IsCompleted() {
		return nil, apperrors.SessionCompleted()
	}
	return s, nil
}

// saveSession writes s under its version guard.
func saveSession(ctx context.Context, repo repository.SessionRepository, s *model.Session) error {
	err := repo.Update(ctx, s)
	if errors.Is(err, repository.ErrVersionConflict) {
		return apperrors.VersionConflict("Session")
	}
	if err != nil {
		return apperrors.Database(err)
	}
	return nil
}

// withTx runs fn with repositories bound to one transaction.
func (c *core) withTx(ctx context.Context, fn func(r txRepos) error) error {
	err := c.Tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(txRepos{
			sessions:    c.Sessions.WithTx(tx),
			submissions: c.Submissions.WithTx(tx),
			messages:    c.Messages.WithTx(tx),
			evaluations: c.Evaluations.WithTx(tx),
		})
	})
	if err != nil && !apperrors.IsAppError(err) {
		return apperrors.Database(err)
	}
	return err
}

type txRepos struct {
	sessions    repository.SessionRepository
	submissions repository.SubmissionRepository
	messages    repository.MessageRepository
	evaluations repository.EvaluationRepository
}

// applyDelta moves the session ledger and reports whether anything changed.
func applyDelta(s *model.Session, delta model.ScoreDelta) bool {
	scores, changed := interview.ApplyDelta(s.Scores, delta)
	s.Scores = scores
	return len(changed) > 0
}

func (c *core) publish(ctx context.Context, sessionID, eventType string, data any) {
	if c.Events == nil {
		return
	}
	ev, err := sse.NewEvent(eventType, data)
	if err == nil {
		err = c.Events.Publish(ctx, sessionID, ev)
	}
	if err != nil {
		log.Warn().Err(err).Str("sessionId", sessionID).Str("event", eventType).Msg("Failed to publish session event")
	}
}

func (c *core) publishScores(ctx context.Context, s *model.Session) {
	c.publish(ctx, s.ID, sse.EventScores, map[string]any{"scores": s.Scores})
}

// visibleScores returns the ledger only in modes that show it live.
func visibleScores(s *model.Session) model.Scores {
	if interview.RulesFor(s.Mode).ShowScores {
		return s.Scores
	}
	return nil
}

// feedback hides narrative critique in modes that withhold it.
func feedback(m model.Mode, text string) string {
	if interview.ShowsFeedback(m) {
		return text
	}
	return ""
}

func evaluationRecord(score int, delta model.ScoreDelta, critique string, degraded bool) *model.EvaluationRecord {
	if delta == nil {
		delta = model.ScoreDelta{}
	}
	return &model.EvaluationRecord{
		Score:      score,
		ScoreDelta: delta,
		Critique:   critique,
		Degraded:   degraded,
	}
}

func ptr[T any](v T) *T {
	return &v
}
