package interview

import "github.com/mockloop/interview-engine/internal/model"

// ModeRules controls what a candidate sees while the interview is running.
// Scoring is identical in both modes.
type ModeRules struct {
	ShowScores          bool     `json:"showScores"`
	ShowCritique        bool     `json:"showCritique"`
	ShowComplexityHints bool     `json:"showComplexityHints"`
	AllowRetry          bool     `json:"allowRetry"`
	AllowCheatSheet     bool     `json:"allowCheatSheet"`
	ToneProfile         string   `json:"toneProfile"`
	RevealOnEnd         []string `json:"revealOnEnd"`
}

var modeRules = map[model.Mode]ModeRules{
	model.ModePractice: {
		ShowScores:          true,
		ShowCritique:        true,
		ShowComplexityHints: true,
		AllowRetry:          true,
		AllowCheatSheet:     true,
		ToneProfile:         "coaching",
		RevealOnEnd: []string{
			"full_transcript",
			"all_scores",
			"behavioral_rewrites",
			"coding_improvements",
			"architecture_improvements",
			"hiring_recommendation",
			"level_projection",
		},
	},
	model.ModeReal: {
		ToneProfile: "high_pressure",
		RevealOnEnd: []string{
			"final_score",
			"level_projection",
			"hire_recommendation",
			"bar_comparison_summary",
			"strengths_summary",
			"weaknesses_summary",
			"missed_depth_opportunities",
			"full_transcript",
		},
	},
}

var tonePrompts = map[string]string{
	"coaching": "You are a supportive but rigorous FAANG interviewer in a practice session. " +
		"After each answer, give direct, actionable feedback. " +
		"Point out exactly what was missing and how to improve it. " +
		"Be encouraging but honest — do not sugarcoat weaknesses.",
	"high_pressure": "You are a demanding FAANG bar-raiser in a real interview. " +
		"Do not give feedback or hints during the interview. " +
		"Maintain professional but high-pressure tone. " +
		"Challenge weak answers immediately with sharp follow-ups. " +
		"Do not reveal how the candidate is doing at any point.",
}

// RulesFor returns the visibility rules of a mode; unknown modes get practice rules.
func RulesFor(m model.Mode) ModeRules {
	if r, ok := modeRules[m]; ok {
		return r
	}
	return modeRules[model.ModePractice]
}

func TonePrompt(m model.Mode) string {
	return tonePrompts[RulesFor(m).ToneProfile]
}

// ShowsFeedback reports whether critiques are returned to the candidate live.
func ShowsFeedback(m model.Mode) bool {
	return m == model.ModePractice
}
