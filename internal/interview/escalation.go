package interview

import (
	"fmt"
	"time"

	"github.com/mockloop/interview-engine/internal/model"
)

const (
	MaxQuestions  = 3
	FastSolveTime = 15 * time.Minute
)

type EscalationInput struct {
	QuestionNumber int
	Passed         bool
	Optimal        bool
	TimeCorrect    bool
	SpaceCorrect   bool
	// SolveTime is measured from the start of the current section on the server.
	SolveTime time.Duration
}

type EscalationDecision struct {
	Escalate       bool             `json:"escalate"`
	Reason         string           `json:"escalationReason"`
	Difficulty     model.Difficulty `json:"difficulty,omitempty"`
	QuestionNumber int              `json:"questionNumber"`
}

// DecideEscalation applies the coding escalation policy. A failing submission
// never escalates and nothing escalates past the third question.
func DecideEscalation(in EscalationInput) EscalationDecision {
	stop := func(reason string) EscalationDecision {
		return EscalationDecision{Reason: reason, QuestionNumber: in.QuestionNumber}
	}
	raise := func(d model.Difficulty, reason string) EscalationDecision {
		return EscalationDecision{
			Escalate:       true,
			Reason:         reason,
			Difficulty:     d,
			QuestionNumber: in.QuestionNumber + 1,
		}
	}

	if in.QuestionNumber >= MaxQuestions {
		return stop(fmt.Sprintf("Maximum questions reached (%d)", MaxQuestions))
	}
	if !in.Passed {
		return stop("Solution did not pass all tests")
	}

	minutes := in.SolveTime.Minutes()
	exceptional := in.SolveTime <= FastSolveTime && in.Optimal && in.TimeCorrect && in.SpaceCorrect

	switch in.QuestionNumber {
	case 1:
		if exceptional {
			return raise(model.DifficultyHard, fmt.Sprintf(
				"Solved Q1 in %.1f min — optimal solution + correct complexity. Escalating to hard question.", minutes))
		}
		if in.Optimal {
			return raise(model.DifficultyMedium, "Correct and optimal — giving standard second question.")
		}
		return stop("Solution passed but not optimal. Stopping at 1 question.")
	case 2:
		if exceptional {
			return raise(model.DifficultyVeryHard, fmt.Sprintf(
				"Exceptional performance — solved Q2 in %.1f min, optimal + correct complexity. Bonus hard variant.", minutes))
		}
		return stop("Good performance but not exceptional. Stopping at 2 questions.")
	}
	return stop("Maximum questions reached")
}

// FallbackQuestions are served when the oracle cannot write an escalated question.
var FallbackQuestions = map[model.Difficulty]string{
	model.DifficultyMedium: "Given a string s, find the length of the longest substring without repeating characters.\n\n" +
		"Example 1: Input: s = 'abcabcbb' → Output: 3\n" +
		"Example 2: Input: s = 'bbbbb' → Output: 1\n\n" +
		"Constraints: 0 <= s.length <= 5 * 10^4, s consists of English letters, digits, symbols and spaces.",
	model.DifficultyHard: "Given an array of integers nums and an integer k, return the number of subarrays " +
		"where the product of all elements is strictly less than k.\n\n" +
		"Example 1: Input: nums = [10,5,2,6], k = 100 → Output: 8\n\n" +
		"Constraints: 1 <= nums.length <= 3 * 10^4, 1 <= nums[i] <= 1000, 0 <= k <= 10^6.",
	model.DifficultyVeryHard: "Given a string s and a dictionary of strings wordDict, add spaces in s to construct " +
		"a sentence where each word is a valid dictionary word. Return all such possible sentences " +
		"in any order.\n\n" +
		"Example: Input: s = 'catsanddog', wordDict = ['cat','cats','and','sand','dog']\n" +
		"Output: ['cats and dog', 'cat sand dog']\n\n" +
		"Constraints: 1 <= s.length <= 20, 1 <= wordDict.length <= 1000.",
}

// DifficultyGuides describe each difficulty to the question writer.
var DifficultyGuides = map[model.Difficulty]string{
	model.DifficultyMedium:   "LeetCode medium — arrays, strings, hash maps, two pointers, sliding window",
	model.DifficultyHard:     "LeetCode hard — DP, graphs, advanced data structures, backtracking",
	model.DifficultyVeryHard: "LeetCode hard variant or follow-up — optimized DP, segment trees, advanced graph algorithms",
}

func FallbackQuestion(d model.Difficulty) string {
	if q, ok := FallbackQuestions[d]; ok {
		return q
	}
	return FallbackQuestions[model.DifficultyMedium]
}
