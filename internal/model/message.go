package model

import (
	"database/sql/driver"
	"time"
)

// EvaluationRecord is the immutable payload of a message with role "evaluation".
// Fields not produced by a given evaluation kind stay at their zero value.
type EvaluationRecord struct {
	Score             int          `json:"score"`
	Strengths         StringList   `json:"strengths"`
	Weaknesses        StringList   `json:"weaknesses"`
	ScoreDelta        ScoreDelta   `json:"scoreDelta"`
	Critique          string       `json:"critique,omitempty"`
	Feedback          string       `json:"feedback,omitempty"`
	NeedsFollowUp     bool         `json:"needsFollowUp,omitempty"`
	FollowUpReason    string       `json:"followUpReason,omitempty"`
	CoverageGaps      StringList   `json:"coverageGaps,omitempty"`
	StressTestsNeeded []StressType `json:"stressTestsNeeded,omitempty"`
	ShouldStressTest  bool         `json:"shouldStressTest,omitempty"`
	Passed            *bool        `json:"passed,omitempty"`
	BehavioralFalloff bool         `json:"behavioralFalloff,omitempty"`
	FalloffReason     string       `json:"falloffReason,omitempty"`
	Degraded          bool         `json:"degraded,omitempty"`
}

func (e *EvaluationRecord) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return jsonValue(e)
}

func (e *EvaluationRecord) Scan(src any) error {
	return jsonScan(src, e)
}

// Message is one append-only entry in a session transcript: interviewer
// questions, candidate answers and evaluation records.
type Message struct {
	ID             string            `db:"id" json:"messageId"`
	SessionID      string            `db:"session_id" json:"sessionId"`
	Role           MessageRole       `db:"role" json:"role"`
	Section        Section           `db:"section" json:"section"`
	MessageType    MessageType       `db:"message_type" json:"messageType"`
	Content        string            `db:"content" json:"content"`
	QuestionNumber *int              `db:"question_number" json:"questionNumber,omitempty"`
	Difficulty     *Difficulty       `db:"difficulty" json:"difficulty,omitempty"`
	StressType     *StressType       `db:"stress_type" json:"stressType,omitempty"`
	LinkedID       *string           `db:"linked_id" json:"linkedId,omitempty"`
	Evaluation     *EvaluationRecord `db:"evaluation" json:"evaluation,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"createdAt"`
}

type CreateMessageParams struct {
	ID             string
	SessionID      string
	Role           MessageRole
	Section        Section
	MessageType    MessageType
	Content        string
	QuestionNumber *int
	Difficulty     *Difficulty
	StressType     *StressType
	LinkedID       *string
	Evaluation     *EvaluationRecord
}
