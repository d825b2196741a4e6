package model

import (
	"database/sql/driver"
	"time"
)

// Scores maps each dimension to its cumulative 0-100 score.
type Scores map[Dimension]int

// NewScores returns a ledger with every dimension at zero.
func NewScores() Scores {
	s := make(Scores, len(Dimensions))
	for _, d := range Dimensions {
		s[d] = 0
	}
	return s
}

func (s Scores) Clone() Scores {
	out := make(Scores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s Scores) Value() (driver.Value, error) {
	if s == nil {
		return jsonValue(NewScores())
	}
	return jsonValue(map[Dimension]int(s))
}

func (s *Scores) Scan(src any) error {
	return jsonScan(src, (*map[Dimension]int)(s))
}

// ScoreDelta is a small signed adjustment per dimension, as emitted by the oracle.
type ScoreDelta map[Dimension]int

func (d ScoreDelta) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return jsonValue(map[Dimension]int(d))
}

func (d *ScoreDelta) Scan(src any) error {
	return jsonScan(src, (*map[Dimension]int)(d))
}

type SectionRecord struct {
	Section   Section   `json:"section"`
	TimeSpent int       `json:"timeSpent"`
	EndedAt   time.Time `json:"endedAt"`
}

type SectionHistory []SectionRecord

func (h SectionHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return jsonValue([]SectionRecord(h))
}

func (h *SectionHistory) Scan(src any) error {
	return jsonScan(src, (*[]SectionRecord)(h))
}

// Session is the root aggregate of one interview attempt. Version increments on
// every persisted mutation and guards conditional updates.
type Session struct {
	ID                string         `db:"id" json:"sessionId"`
	UserID            string         `db:"user_id" json:"userId"`
	TokenHash         string         `db:"token_hash" json:"-"`
	InterviewType     InterviewType  `db:"interview_type" json:"interviewType"`
	Mode              Mode           `db:"mode" json:"mode"`
	Status            SessionStatus  `db:"status" json:"status"`
	CurrentSection    Section        `db:"current_section" json:"currentSection"`
	Scores            Scores         `db:"scores" json:"scores"`
	SectionHistory    SectionHistory `db:"section_history" json:"sectionHistory"`
	BehavioralFalloff bool           `db:"behavioral_falloff" json:"behavioralFalloff"`
	FalloffReason     *string        `db:"falloff_reason" json:"falloffReason,omitempty"`
	EvaluationID      *string        `db:"evaluation_id" json:"evaluationId,omitempty"`
	StartedAt         time.Time      `db:"started_at" json:"startedAt"`
	SectionStartedAt  time.Time      `db:"section_started_at" json:"sectionStartedAt"`
	CompletedAt       *time.Time     `db:"completed_at" json:"completedAt,omitempty"`
	Version           int            `db:"version" json:"version"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updatedAt"`
}

func (s *Session) IsCompleted() bool {
	return s.Status == SessionStatusCompleted
}

type CreateSessionParams struct {
	ID             string
	UserID         string
	TokenHash      string
	InterviewType  InterviewType
	Mode           Mode
	CurrentSection Section
	StartedAt      time.Time
}
