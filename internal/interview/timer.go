package interview

import (
	"time"

	"github.com/mockloop/interview-engine/internal/model"
)

// TimerState is the authoritative clock view of a session. All durations are
// whole seconds.
type TimerState struct {
	CurrentSection   model.Section `json:"currentSection"`
	SectionElapsed   int           `json:"sectionElapsed"`
	SectionRemaining int           `json:"sectionRemaining"`
	TotalElapsed     int           `json:"totalElapsed"`
	TotalRemaining   int           `json:"totalRemaining"`
	ActiveWarning    *int          `json:"activeWarning"`
	ForceTransition  bool          `json:"forceTransition"`
}

// ComputeTimerState derives the timer from the stored start timestamps. It is
// pure: callers persist nothing from this call alone.
func ComputeTimerState(s *model.Session, now time.Time) TimerState {
	sectionElapsed := max(0, now.Sub(s.SectionStartedAt))
	totalElapsed := max(0, now.Sub(s.StartedAt))

	sectionRemaining := max(0, SectionLimit(s.InterviewType, s.CurrentSection)-sectionElapsed)
	totalRemaining := max(0, TotalLimit(s.InterviewType)-totalElapsed)

	state := TimerState{
		CurrentSection:   s.CurrentSection,
		SectionElapsed:   seconds(sectionElapsed),
		SectionRemaining: seconds(sectionRemaining),
		TotalElapsed:     seconds(totalElapsed),
		TotalRemaining:   seconds(totalRemaining),
		ForceTransition:  sectionRemaining <= 0,
	}
	state.ActiveWarning = activeWarning(sectionRemaining)
	return state
}

// activeWarning picks the smallest threshold the remaining time has crossed.
func activeWarning(remaining time.Duration) *int {
	var warning *int
	for _, t := range WarningThresholds {
		if remaining <= time.Duration(t)*time.Second && (warning == nil || t < *warning) {
			v := t
			warning = &v
		}
	}
	return warning
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
