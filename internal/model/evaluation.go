package model

import "time"

// HiringEvaluation is the final artifact of a session, written exactly once.
type HiringEvaluation struct {
	ID                        string        `db:"id" json:"evaluationId"`
	SessionID                 string        `db:"session_id" json:"sessionId"`
	InterviewType             InterviewType `db:"interview_type" json:"interviewType"`
	Mode                      Mode          `db:"mode" json:"mode"`
	FinalScore                int           `db:"final_score" json:"finalScore"`
	BehavioralScore           int           `db:"behavioral_score" json:"behavioralScore"`
	CodingScore               int           `db:"coding_score" json:"codingScore"`
	SystemDesignScore         int           `db:"system_design_score" json:"systemDesignScore"`
	ComplexityAwarenessScore  int           `db:"complexity_awareness_score" json:"complexityAwarenessScore"`
	CommunicationScore        int           `db:"communication_score" json:"communicationScore"`
	ResumeAuthenticityScore   int           `db:"resume_authenticity_score" json:"resumeAuthenticityScore"`
	TimeManagementScore       int           `db:"time_management_score" json:"timeManagementScore"`
	ArchitectureMaturityScore int           `db:"architecture_maturity_score" json:"architectureMaturityScore"`
	LevelProjection           string        `db:"level_projection" json:"levelProjection"`
	HireRecommendation        string        `db:"hire_recommendation" json:"hireRecommendation"`
	BarComparisonSummary      string        `db:"bar_comparison_summary" json:"barComparisonSummary"`
	StrengthsSummary          StringList    `db:"strengths_summary" json:"strengthsSummary"`
	WeaknessesSummary         StringList    `db:"weaknesses_summary" json:"weaknessesSummary"`
	MissedDepthOpportunities  StringList    `db:"missed_depth_opportunities" json:"missedDepthOpportunities"`
	CodingImprovements        StringList    `db:"coding_improvements" json:"codingImprovements"`
	ArchitectureImprovements  StringList    `db:"architecture_improvements" json:"architectureImprovements"`
	BehavioralRewrites        StringList    `db:"behavioral_rewrites" json:"behavioralRewrites"`
	BehavioralFalloff         bool          `db:"behavioral_falloff" json:"behavioralFalloff"`
	Degraded                  bool          `db:"degraded" json:"degraded"`
	CreatedAt                 time.Time     `db:"created_at" json:"createdAt"`
}

// DimensionScore returns the stored score for one dimension.
func (e *HiringEvaluation) DimensionScore(d Dimension) int {
	switch d {
	case DimensionBehavioral:
		return e.BehavioralScore
	case DimensionCoding:
		return e.CodingScore
	case DimensionSystemDesign:
		return e.SystemDesignScore
	case DimensionComplexityAwareness:
		return e.ComplexityAwarenessScore
	case DimensionCommunication:
		return e.CommunicationScore
	case DimensionResumeAuthenticity:
		return e.ResumeAuthenticityScore
	case DimensionTimeManagement:
		return e.TimeManagementScore
	case DimensionArchitectureMaturity:
		return e.ArchitectureMaturityScore
	}
	return 0
}

// SetDimensionScores copies clamped ledger scores into the flat score fields.
func (e *HiringEvaluation) SetDimensionScores(scores Scores) {
	e.BehavioralScore = scores[DimensionBehavioral]
	e.CodingScore = scores[DimensionCoding]
	e.SystemDesignScore = scores[DimensionSystemDesign]
	e.ComplexityAwarenessScore = scores[DimensionComplexityAwareness]
	e.CommunicationScore = scores[DimensionCommunication]
	e.ResumeAuthenticityScore = scores[DimensionResumeAuthenticity]
	e.TimeManagementScore = scores[DimensionTimeManagement]
	e.ArchitectureMaturityScore = scores[DimensionArchitectureMaturity]
}

type ScoreCard struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Score int    `json:"score"`
	Band  string `json:"band"`
}

// HiringReport is a stored evaluation enriched with display metadata.
type HiringReport struct {
	*HiringEvaluation
	ScoreBand  string      `json:"scoreBand"`
	HireColor  string      `json:"hireColor"`
	ScoreCards []ScoreCard `json:"scoreCards"`
}
