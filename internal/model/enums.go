package model

type InterviewType string

const (
	InterviewTypeBehavioral   InterviewType = "behavioral"
	InterviewTypeTechnical    InterviewType = "technical"
	InterviewTypeSystemDesign InterviewType = "system_design"
)

func (t InterviewType) Valid() bool {
	switch t {
	case InterviewTypeBehavioral, InterviewTypeTechnical, InterviewTypeSystemDesign:
		return true
	}
	return false
}

type Mode string

const (
	ModePractice Mode = "practice"
	ModeReal     Mode = "real"
)

func (m Mode) Valid() bool {
	return m == ModePractice || m == ModeReal
}

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

type Section string

const (
	SectionIntro       Section = "intro"
	SectionBehavioral  Section = "behavioral"
	SectionResumeDrill Section = "resume_drill"
	SectionCoding      Section = "coding"
	SectionDesign      Section = "design"
	SectionDone        Section = "done"
)

// Dimension is one of the eight scoring axes.
type Dimension string

const (
	DimensionBehavioral           Dimension = "behavioral"
	DimensionCoding               Dimension = "coding"
	DimensionSystemDesign         Dimension = "system_design"
	DimensionComplexityAwareness  Dimension = "complexity_awareness"
	DimensionCommunication        Dimension = "communication"
	DimensionResumeAuthenticity   Dimension = "resume_authenticity"
	DimensionTimeManagement       Dimension = "time_management"
	DimensionArchitectureMaturity Dimension = "architecture_maturity"
)

// Dimensions lists every scoring axis in report order.
var Dimensions = []Dimension{
	DimensionBehavioral,
	DimensionCoding,
	DimensionSystemDesign,
	DimensionComplexityAwareness,
	DimensionCommunication,
	DimensionResumeAuthenticity,
	DimensionTimeManagement,
	DimensionArchitectureMaturity,
}

func (d Dimension) Valid() bool {
	for _, known := range Dimensions {
		if d == known {
			return true
		}
	}
	return false
}

type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageJava       Language = "java"
)

type Difficulty string

const (
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
	DifficultyVeryHard Difficulty = "very_hard"
)

type StressType string

const (
	StressTrafficSpike     StressType = "traffic_spike"
	StressFailureInjection StressType = "failure_injection"
	StressMultiRegion      StressType = "multi_region"
	StressCostAnalysis     StressType = "cost_analysis"
)

type MessageRole string

const (
	RoleInterviewer MessageRole = "interviewer"
	RoleCandidate   MessageRole = "candidate"
	RoleEvaluation  MessageRole = "evaluation"
)

type MessageType string

const (
	MessageTypeAnswer             MessageType = "answer"
	MessageTypeAnswerEvaluation   MessageType = "answer_evaluation"
	MessageTypeFollowUpAnswer     MessageType = "follow_up_answer"
	MessageTypeFollowUpQuestion   MessageType = "follow_up_question"
	MessageTypeFollowUpEvaluation MessageType = "follow_up_evaluation"
	MessageTypeDesignAnswer       MessageType = "design_answer"
	MessageTypeDesignEvaluation   MessageType = "design_evaluation"
	MessageTypeStressQuestion     MessageType = "stress_question"
	MessageTypeStressAnswer       MessageType = "stress_answer"
	MessageTypeStressEvaluation   MessageType = "stress_evaluation"
	MessageTypeEscalationQuestion MessageType = "escalation_question"
)
