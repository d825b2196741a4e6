package interview

import (
	"fmt"

	"github.com/mockloop/interview-engine/internal/model"
)

var hireColors = map[string]string{
	"Strong Hire":  "green",
	"Hire":         "blue",
	"Lean Hire":    "yellow",
	"Lean No Hire": "orange",
	"No Hire":      "red",
}

func HireColor(recommendation string) string {
	if c, ok := hireColors[recommendation]; ok {
		return c
	}
	return "gray"
}

var scoreCardLabels = map[model.Dimension]struct{ key, label string }{
	model.DimensionBehavioral:           {"behavioral", "Behavioral"},
	model.DimensionCoding:               {"coding", "Coding"},
	model.DimensionSystemDesign:         {"systemDesign", "System Design"},
	model.DimensionComplexityAwareness:  {"complexityAwareness", "Complexity Awareness"},
	model.DimensionCommunication:        {"communication", "Communication"},
	model.DimensionResumeAuthenticity:   {"resumeAuthenticity", "Resume Authenticity"},
	model.DimensionTimeManagement:       {"timeManagement", "Time Management"},
	model.DimensionArchitectureMaturity: {"architectureMaturity", "Architecture Maturity"},
}

// BuildReport decorates a stored evaluation with score bands, the hire colour
// and one card per dimension.
func BuildReport(e *model.HiringEvaluation) *model.HiringReport {
	cards := make([]model.ScoreCard, 0, len(model.Dimensions))
	for _, d := range model.Dimensions {
		meta := scoreCardLabels[d]
		score := e.DimensionScore(d)
		cards = append(cards, model.ScoreCard{
			Key:   meta.key,
			Label: meta.label,
			Score: score,
			Band:  Label(score, ScoreBands),
		})
	}

	return &model.HiringReport{
		HiringEvaluation: e,
		ScoreBand:        Label(e.FinalScore, ScoreBands),
		HireColor:        HireColor(e.HireRecommendation),
		ScoreCards:       cards,
	}
}

// FallbackBarSummary is the narrative used when the oracle cannot write one.
func FallbackBarSummary(v Verdict) string {
	return fmt.Sprintf("Final score %d/100 — %s at %s bar.", v.FinalScore, v.HireRecommendation, v.LevelProjection)
}
