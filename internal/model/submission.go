package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// TestCase is one stdin/expected-stdout pair. Inputs that arrive as JSON values
// other than strings are kept as their compact JSON text.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
}

func (tc *TestCase) UnmarshalJSON(data []byte) error {
	var raw struct {
		Input          json.RawMessage `json:"input"`
		ExpectedOutput json.RawMessage `json:"expectedOutput"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	tc.Input = rawText(raw.Input)
	tc.ExpectedOutput = rawText(raw.ExpectedOutput)
	return nil
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

type TestResult struct {
	Passed   bool   `json:"passed"`
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Error    string `json:"error"`
}

type TestResults []TestResult

func (r TestResults) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return jsonValue([]TestResult(r))
}

func (r *TestResults) Scan(src any) error {
	return jsonScan(src, (*[]TestResult)(r))
}

// CodeSubmission records one execution attempt. Complexity fields stay nil until
// the submission has passed and been validated.
type CodeSubmission struct {
	ID                     string      `db:"id" json:"submissionId"`
	SessionID              string      `db:"session_id" json:"sessionId"`
	QuestionID             string      `db:"question_id" json:"questionId"`
	Language               Language    `db:"language" json:"language"`
	Code                   string      `db:"code" json:"code"`
	Passed                 bool        `db:"passed" json:"passed"`
	PassedCount            int         `db:"passed_count" json:"passedCount"`
	TotalCount             int         `db:"total_count" json:"totalCount"`
	TestResults            TestResults `db:"test_results" json:"testResults"`
	ExecutionTimeMs        int64       `db:"execution_time_ms" json:"executionTimeMs"`
	TimeComplexityAnswer   *string     `db:"time_complexity_answer" json:"timeComplexityAnswer,omitempty"`
	SpaceComplexityAnswer  *string     `db:"space_complexity_answer" json:"spaceComplexityAnswer,omitempty"`
	TimeComplexityCorrect  *bool       `db:"time_complexity_correct" json:"timeComplexityCorrect,omitempty"`
	SpaceComplexityCorrect *bool       `db:"space_complexity_correct" json:"spaceComplexityCorrect,omitempty"`
	ActualTimeComplexity   *string     `db:"actual_time_complexity" json:"actualTimeComplexity,omitempty"`
	ActualSpaceComplexity  *string     `db:"actual_space_complexity" json:"actualSpaceComplexity,omitempty"`
	IsOptimal              *bool       `db:"is_optimal" json:"isOptimal,omitempty"`
	Confetti               *bool       `db:"confetti" json:"confetti,omitempty"`
	CreatedAt              time.Time   `db:"created_at" json:"createdAt"`
}

// ComplexityCorrect reports whether both stated complexities were judged correct.
func (s *CodeSubmission) ComplexityCorrect() bool {
	return boolValue(s.TimeComplexityCorrect) && boolValue(s.SpaceComplexityCorrect)
}

func (s *CodeSubmission) Optimal() bool {
	return boolValue(s.IsOptimal)
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

type CreateSubmissionParams struct {
	ID              string
	SessionID       string
	QuestionID      string
	Language        Language
	Code            string
	Passed          bool
	PassedCount     int
	TotalCount      int
	TestResults     TestResults
	ExecutionTimeMs int64
}

type ComplexityValidation struct {
	TimeComplexityAnswer   string
	SpaceComplexityAnswer  string
	TimeComplexityCorrect  bool
	SpaceComplexityCorrect bool
	ActualTimeComplexity   string
	ActualSpaceComplexity  string
	IsOptimal              bool
	Confetti               bool
}
