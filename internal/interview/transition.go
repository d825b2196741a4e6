package interview

import (
	"errors"
	"fmt"
	"time"

	"github.com/mockloop/interview-engine/internal/model"
)

var (
	ErrSessionCompleted  = errors.New("session already completed")
	ErrUnknownSection    = errors.New("unknown section")
	ErrInvalidTransition = errors.New("invalid transition")
)

// TransitionError carries the section that caused a rejected transition.
type TransitionError struct {
	Err      error
	Section  model.Section
	Expected model.Section
}

func (e *TransitionError) Error() string {
	switch e.Err {
	case ErrUnknownSection:
		return fmt.Sprintf("Unknown section: %s", e.Section)
	case ErrInvalidTransition:
		return fmt.Sprintf("Invalid transition. Expected: %s", e.Expected)
	}
	return e.Err.Error()
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// Transition describes a completed section change.
type Transition struct {
	PreviousSection  model.Section       `json:"previousSection"`
	CurrentSection   model.Section       `json:"currentSection"`
	TimeSpentSeconds int                 `json:"timeSpentSeconds"`
	Forced           bool                `json:"forced"`
	SessionStatus    model.SessionStatus `json:"sessionStatus"`
	TimerState       TimerState          `json:"timerState"`
}

// NextSection returns the section after current in the canonical order.
func NextSection(t model.InterviewType, current model.Section) (model.Section, error) {
	order := policyFor(t).order
	for i, s := range order {
		if s != current {
			continue
		}
		if i+1 >= len(order) {
			return "", ErrSessionCompleted
		}
		return order[i+1], nil
	}
	return "", &TransitionError{Err: ErrUnknownSection, Section: current}
}

// Advance moves the session to its next section. When the section timer has
// run out the requested section is ignored and the canonical next section is
// used. The session is mutated in place; persisting it is the caller's job.
func Advance(s *model.Session, requested model.Section, now time.Time) (*Transition, error) {
	if s.IsCompleted() {
		return nil, ErrSessionCompleted
	}

	next, err := NextSection(s.InterviewType, s.CurrentSection)
	if err != nil {
		return nil, err
	}

	timer := ComputeTimerState(s, now)
	forced := timer.ForceTransition
	if !forced && requested != "" && requested != next {
		return nil, &TransitionError{Err: ErrInvalidTransition, Section: requested, Expected: next}
	}

	previous := s.CurrentSection
	spent := max(0, seconds(now.Sub(s.SectionStartedAt)))

	s.SectionHistory = append(s.SectionHistory, model.SectionRecord{
		Section:   previous,
		TimeSpent: spent,
		EndedAt:   now,
	})
	s.CurrentSection = next
	s.SectionStartedAt = now
	if next == model.SectionDone {
		s.Status = model.SessionStatusCompleted
		completedAt := now
		s.CompletedAt = &completedAt
	}

	return &Transition{
		PreviousSection:  previous,
		CurrentSection:   next,
		TimeSpentSeconds: spent,
		Forced:           forced,
		SessionStatus:    s.Status,
		TimerState:       ComputeTimerState(s, now),
	}, nil
}
