package interview

import "github.com/mockloop/interview-engine/internal/model"

const (
	// DeltaScale maps an oracle delta onto the 0-100 ledger.
	DeltaScale = 5
	// MaxDelta bounds a single oracle delta in either direction.
	MaxDelta = 3

	minScore = 0
	maxScore = 100
)

// ClampDelta bounds an oracle delta to [-MaxDelta, MaxDelta].
func ClampDelta(d int) int {
	return min(MaxDelta, max(-MaxDelta, d))
}

// ApplyDelta returns a copy of scores with each nonzero delta applied and
// clamped to [0,100]. Dimensions absent from the delta, and unknown keys, are
// left untouched. The second return lists the dimensions that were adjusted.
func ApplyDelta(scores model.Scores, delta model.ScoreDelta) (model.Scores, []model.Dimension) {
	out := scores.Clone()
	if len(out) == 0 {
		out = model.NewScores()
	}

	var changed []model.Dimension
	for _, d := range model.Dimensions {
		v, ok := delta[d]
		if !ok || v == 0 {
			continue
		}
		out[d] = clampScore(out[d] + ClampDelta(v)*DeltaScale)
		changed = append(changed, d)
	}
	return out, changed
}

// Verdict is the outcome of finalizing a session's scores.
type Verdict struct {
	Scores             model.Scores `json:"scores"`
	FinalScore         int          `json:"finalScore"`
	LevelProjection    string       `json:"levelProjection"`
	HireRecommendation string       `json:"hireRecommendation"`
}

// Finalize computes the weighted final score and its level and hire labels.
// The weighted sum is accumulated in hundredths so the floor is exact.
func Finalize(t model.InterviewType, scores model.Scores) Verdict {
	weights := policyFor(t).weights

	clamped := make(model.Scores, len(model.Dimensions))
	total := 0
	for _, d := range model.Dimensions {
		s := clampScore(scores[d])
		clamped[d] = s
		total += s * weights[d]
	}
	final := total / 100

	return Verdict{
		Scores:             clamped,
		FinalScore:         final,
		LevelProjection:    Label(final, LevelThresholds),
		HireRecommendation: Label(final, HireThresholds),
	}
}

func clampScore(v int) int {
	return min(maxScore, max(minScore, v))
}
