// Package interview holds the deterministic core of the engine: the section
// timer, the section state machine, the scoring ledger and the escalation and
// stress-test sequencers. Nothing here performs I/O.
package interview

import (
	"time"

	"github.com/mockloop/interview-engine/internal/model"
)

// DefaultSectionLimit applies to sections missing from a type's limit table.
const DefaultSectionLimit = 60 * time.Minute

// WarningThresholds are the remaining-time marks, in seconds, at which the
// frontend warns the candidate.
var WarningThresholds = []int{300, 120, 60}

type timeLimits struct {
	total    time.Duration
	sections map[model.Section]time.Duration
}

type typePolicy struct {
	limits  timeLimits
	order   []model.Section
	weights map[model.Dimension]int // hundredths, sum 100
}

var policies = map[model.InterviewType]typePolicy{
	model.InterviewTypeBehavioral: {
		limits: timeLimits{
			total: 35 * time.Minute,
			sections: map[model.Section]time.Duration{
				model.SectionIntro:      5 * time.Minute,
				model.SectionBehavioral: 30 * time.Minute,
			},
		},
		order: []model.Section{model.SectionIntro, model.SectionBehavioral, model.SectionDone},
		weights: map[model.Dimension]int{
			model.DimensionBehavioral:         40,
			model.DimensionCommunication:      30,
			model.DimensionResumeAuthenticity: 15,
			model.DimensionTimeManagement:     15,
		},
	},
	model.InterviewTypeTechnical: {
		limits: timeLimits{
			total: 75 * time.Minute,
			sections: map[model.Section]time.Duration{
				model.SectionResumeDrill: 15 * time.Minute,
				model.SectionCoding:      60 * time.Minute,
			},
		},
		order: []model.Section{model.SectionResumeDrill, model.SectionCoding, model.SectionDone},
		weights: map[model.Dimension]int{
			model.DimensionBehavioral:          10,
			model.DimensionCommunication:       10,
			model.DimensionResumeAuthenticity:  10,
			model.DimensionTimeManagement:      10,
			model.DimensionCoding:              35,
			model.DimensionComplexityAwareness: 15,
			model.DimensionSystemDesign:        10,
		},
	},
	model.InterviewTypeSystemDesign: {
		limits: timeLimits{
			total: 75 * time.Minute,
			sections: map[model.Section]time.Duration{
				model.SectionResumeDrill: 15 * time.Minute,
				model.SectionDesign:      60 * time.Minute,
			},
		},
		order: []model.Section{model.SectionResumeDrill, model.SectionDesign, model.SectionDone},
		weights: map[model.Dimension]int{
			model.DimensionBehavioral:           5,
			model.DimensionCommunication:        15,
			model.DimensionResumeAuthenticity:   10,
			model.DimensionTimeManagement:       10,
			model.DimensionComplexityAwareness:  10,
			model.DimensionSystemDesign:         30,
			model.DimensionArchitectureMaturity: 20,
		},
	},
}

// policyFor falls back to the technical policy for unknown interview types.
func policyFor(t model.InterviewType) typePolicy {
	if p, ok := policies[t]; ok {
		return p
	}
	return policies[model.InterviewTypeTechnical]
}

// SectionOrder returns the canonical section order for an interview type,
// ending with the terminal section.
func SectionOrder(t model.InterviewType) []model.Section {
	order := policyFor(t).order
	out := make([]model.Section, len(order))
	copy(out, order)
	return out
}

// FirstSection is where a new session of the given type starts.
func FirstSection(t model.InterviewType) model.Section {
	return policyFor(t).order[0]
}

// SectionLimit returns the time budget of a section for an interview type.
func SectionLimit(t model.InterviewType, s model.Section) time.Duration {
	if limit, ok := policyFor(t).limits.sections[s]; ok {
		return limit
	}
	return DefaultSectionLimit
}

// TotalLimit returns the whole-session time budget for an interview type.
func TotalLimit(t model.InterviewType) time.Duration {
	return policyFor(t).limits.total
}

// Weights returns the final-score weight of every dimension for an interview
// type as fractions. Dimensions irrelevant to the type carry weight 0.
func Weights(t model.InterviewType) map[model.Dimension]float64 {
	w := policyFor(t).weights
	out := make(map[model.Dimension]float64, len(model.Dimensions))
	for _, d := range model.Dimensions {
		out[d] = float64(w[d]) / 100
	}
	return out
}

// Threshold pairs a minimum score with a label. Tables are ordered by
// descending threshold and end at 0.
type Threshold struct {
	Min   int
	Label string
}

var (
	LevelThresholds = []Threshold{
		{88, "L6"},
		{74, "L5"},
		{58, "L4"},
		{0, "L3"},
	}

	HireThresholds = []Threshold{
		{85, "Strong Hire"},
		{72, "Hire"},
		{58, "Lean Hire"},
		{42, "Lean No Hire"},
		{0, "No Hire"},
	}

	ScoreBands = []Threshold{
		{85, "Exceptional"},
		{70, "Strong"},
		{55, "Meets Bar"},
		{40, "Below Bar"},
		{0, "Significantly Below Bar"},
	}
)

// Label scans a descending threshold table and returns the first label whose
// minimum is at or below score. Scores below every minimum get the last label.
func Label(score int, table []Threshold) string {
	for _, t := range table {
		if score >= t.Min {
			return t.Label
		}
	}
	return table[len(table)-1].Label
}
