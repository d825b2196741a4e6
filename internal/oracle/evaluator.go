package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/mockloop/interview-engine/internal/interview"
	"github.com/mockloop/interview-engine/internal/metrics"
	"github.com/mockloop/interview-engine/internal/model"
)

const DefaultFalloffReason = "Repeated avoidance of specifics"

// Dimensions each evaluation kind may move. Anything else in a reply's
// scoreDelta is ignored.
var (
	complexityDims = []model.Dimension{model.DimensionCoding, model.DimensionComplexityAwareness}
	answerDims     = []model.Dimension{
		model.DimensionBehavioral,
		model.DimensionCommunication,
		model.DimensionResumeAuthenticity,
		model.DimensionTimeManagement,
	}
	designDims = []model.Dimension{
		model.DimensionSystemDesign,
		model.DimensionArchitectureMaturity,
		model.DimensionCommunication,
	}
)

// Evaluator turns oracle replies into typed results. It never returns an
// error for a bad reply; it returns the fallback with Degraded set.
type Evaluator struct {
	oracle  Oracle
	prompts map[string]*Prompt
	schemas map[string]*jsonschema.Schema
}

func NewEvaluator(o Oracle) (*Evaluator, error) {
	prompts, err := loadPrompts()
	if err != nil {
		return nil, err
	}
	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}
	for _, kind := range []string{KindComplexity, KindAnswer, KindFollowUp, KindDesign, KindStress, KindEscalationQuestion, KindBarAnalysis} {
		if _, ok := prompts[kind]; !ok {
			return nil, fmt.Errorf("missing prompt template %q", kind)
		}
	}
	return &Evaluator{oracle: o, prompts: prompts, schemas: schemas}, nil
}

// generate renders and sends the prompt for kind and returns the raw reply.
func (e *Evaluator) generate(ctx context.Context, kind string, data any) (string, error) {
	req, err := e.prompts[kind].Render(data)
	if err != nil {
		return "", err
	}
	return e.oracle.Generate(ctx, req)
}

func (e *Evaluator) ask(ctx context.Context, kind string, data any) (gjson.Result, error) {
	raw, err := e.generate(ctx, kind, data)
	if err != nil {
		return gjson.Result{}, err
	}
	return parseReply(ctx, e.schemas, kind, raw)
}

func (e *Evaluator) degrade(kind string, err error) {
	log.Warn().Err(err).Str("kind", kind).Msg("Oracle reply unusable, using fallback")
	metrics.ObserveOracleCall(kind, true)
}

func (e *Evaluator) ok(kind string) {
	metrics.ObserveOracleCall(kind, false)
}

type ComplexityInput struct {
	Language    model.Language
	Code        string
	StatedTime  string
	StatedSpace string
}

type ComplexityResult struct {
	ActualTime   string
	ActualSpace  string
	TimeCorrect  bool
	SpaceCorrect bool
	IsOptimal    bool
	Feedback     string
	Critique     string
	ScoreDelta   model.ScoreDelta
	Degraded     bool
}

func complexityFallback() *ComplexityResult {
	return &ComplexityResult{
		ActualTime:  "Unknown",
		ActualSpace: "Unknown",
		Feedback:    "Complexity analysis failed.",
		Critique:    "Could not analyze code.",
		ScoreDelta: model.ScoreDelta{
			model.DimensionCoding:              0,
			model.DimensionComplexityAwareness: -1,
		},
		Degraded: true,
	}
}

func (e *Evaluator) Complexity(ctx context.Context, in ComplexityInput) *ComplexityResult {
	r, err := e.ask(ctx, KindComplexity, in)
	if err != nil {
		e.degrade(KindComplexity, err)
		return complexityFallback()
	}
	e.ok(KindComplexity)

	return &ComplexityResult{
		ActualTime:   r.Get("actualTimeComplexity").String(),
		ActualSpace:  r.Get("actualSpaceComplexity").String(),
		TimeCorrect:  r.Get("timeComplexityCorrect").Bool(),
		SpaceCorrect: r.Get("spaceComplexityCorrect").Bool(),
		IsOptimal:    r.Get("isOptimal").Bool(),
		Feedback:     r.Get("feedback").String(),
		Critique:     r.Get("critique").String(),
		ScoreDelta:   readDelta(r.Get("scoreDelta"), complexityDims),
	}
}

type AnswerInput struct {
	InterviewType model.InterviewType
	Section       model.Section
	Mode          model.Mode
	Question      string
	Answer        string
}

type AnswerResult struct {
	Score          int
	NeedsFollowUp  bool
	FollowUpReason string
	Weaknesses     []string
	Strengths      []string
	Critique       string
	ScoreDelta     model.ScoreDelta
	Degraded       bool
}

func answerFallback() *AnswerResult {
	return &AnswerResult{
		Score:          5,
		NeedsFollowUp:  true,
		FollowUpReason: "Could not parse evaluation — defaulting to follow-up.",
		Weaknesses:     []string{"Evaluation parsing failed"},
		Strengths:      []string{},
		Critique:       "Evaluation service error.",
		ScoreDelta:     model.ScoreDelta{},
		Degraded:       true,
	}
}

func (e *Evaluator) Answer(ctx context.Context, in AnswerInput) *AnswerResult {
	r, err := e.ask(ctx, KindAnswer, in)
	if err != nil {
		e.degrade(KindAnswer, err)
		return answerFallback()
	}
	e.ok(KindAnswer)

	return &AnswerResult{
		Score:          clampTen(r.Get("score").Int()),
		NeedsFollowUp:  r.Get("needsFollowUp").Bool(),
		FollowUpReason: r.Get("followUpReason").String(),
		Weaknesses:     stringList(r.Get("weaknesses")),
		Strengths:      stringList(r.Get("strengths")),
		Critique:       r.Get("critique").String(),
		ScoreDelta:     readDelta(r.Get("scoreDelta"), answerDims),
	}
}

type FollowUpInput struct {
	InterviewType  model.InterviewType
	Section        model.Section
	FollowUpReason string
	Weaknesses     []string
	PriorScore     int
	Answer         string
	// FalloffRisk is set once the candidate has been followed up at least twice.
	FalloffRisk bool
}

type FollowUpResult struct {
	Question          string
	Score             int
	BehavioralFalloff bool
	FalloffReason     string
	Weaknesses        []string
	Critique          string
	ScoreDelta        model.ScoreDelta
	Degraded          bool
}

func followUpFallback(in FollowUpInput) *FollowUpResult {
	weaknesses := append([]string{}, in.Weaknesses...)
	return &FollowUpResult{
		Question:   "Let me be direct — what specific number or outcome can you point to?",
		Score:      max(in.PriorScore-1, 0),
		Weaknesses: weaknesses,
		Critique:   "Evaluation parsing failed.",
		ScoreDelta: model.ScoreDelta{model.DimensionBehavioral: -1},
		Degraded:   true,
	}
}

func (e *Evaluator) FollowUp(ctx context.Context, in FollowUpInput) *FollowUpResult {
	r, err := e.ask(ctx, KindFollowUp, in)
	if err != nil {
		e.degrade(KindFollowUp, err)
		return followUpFallback(in)
	}
	e.ok(KindFollowUp)

	out := &FollowUpResult{
		Question:          strings.TrimSpace(r.Get("followUpQuestion").String()),
		Score:             clampTen(r.Get("followUpScore").Int()),
		BehavioralFalloff: r.Get("behavioralFalloff").Bool(),
		Critique:          r.Get("critique").String(),
		ScoreDelta:        readDelta(r.Get("scoreDelta"), answerDims),
	}
	if out.BehavioralFalloff {
		out.FalloffReason = r.Get("falloffReason").String()
		if out.FalloffReason == "" {
			out.FalloffReason = DefaultFalloffReason
		}
	}
	if w := r.Get("updatedWeaknesses"); w.Exists() {
		out.Weaknesses = stringList(w)
	} else {
		out.Weaknesses = append([]string{}, in.Weaknesses...)
	}
	return out
}

type DesignInput struct {
	Question string
	Answer   string
	Diagram  string
}

type DesignResult struct {
	Score             int
	CoverageGaps      []string
	Strengths         []string
	StressTestsNeeded []model.StressType
	Critique          string
	ScoreDelta        model.ScoreDelta
	Degraded          bool
}

// ShouldStressTest reports whether the design earned any stress tests.
func (r *DesignResult) ShouldStressTest() bool {
	return len(r.StressTestsNeeded) > 0
}

func designFallback() *DesignResult {
	return &DesignResult{
		Score:             5,
		CoverageGaps:      []string{"Evaluation failed"},
		Strengths:         []string{},
		StressTestsNeeded: []model.StressType{model.StressTrafficSpike, model.StressFailureInjection},
		Critique:          "Could not evaluate design.",
		ScoreDelta:        model.ScoreDelta{},
		Degraded:          true,
	}
}

func (e *Evaluator) Design(ctx context.Context, in DesignInput) *DesignResult {
	data := struct {
		DesignInput
		Checklist []string
	}{in, interview.CoverageChecklist}

	r, err := e.ask(ctx, KindDesign, data)
	if err != nil {
		e.degrade(KindDesign, err)
		return designFallback()
	}
	e.ok(KindDesign)

	var requested []model.StressType
	for _, s := range stringList(r.Get("stressTestsNeeded")) {
		requested = append(requested, model.StressType(s))
	}
	return &DesignResult{
		Score:             clampTen(r.Get("score").Int()),
		CoverageGaps:      stringList(r.Get("coverageGaps")),
		Strengths:         stringList(r.Get("strengths")),
		StressTestsNeeded: interview.FilterStressTypes(requested),
		Critique:          r.Get("critique").String(),
		ScoreDelta:        readDelta(r.Get("scoreDelta"), designDims),
	}
}

type StressInput struct {
	StressType model.StressType
	Question   string
	Answer     string
	Criteria   string
}

type StressResult struct {
	Score      int
	Passed     bool
	Feedback   string
	ScoreDelta model.ScoreDelta
	Degraded   bool
}

func stressFallback() *StressResult {
	return &StressResult{
		Score:      5,
		Feedback:   "Evaluation failed.",
		ScoreDelta: model.ScoreDelta{},
		Degraded:   true,
	}
}

func (e *Evaluator) Stress(ctx context.Context, in StressInput) *StressResult {
	r, err := e.ask(ctx, KindStress, in)
	if err != nil {
		e.degrade(KindStress, err)
		return stressFallback()
	}
	e.ok(KindStress)

	score := clampTen(r.Get("score").Int())
	passed := score >= 6
	if p := r.Get("passed"); p.Exists() {
		passed = p.Bool()
	}
	return &StressResult{
		Score:      score,
		Passed:     passed,
		Feedback:   r.Get("feedback").String(),
		ScoreDelta: readDelta(r.Get("scoreDelta"), designDims),
	}
}

type EscalationQuestionInput struct {
	InterviewType  model.InterviewType
	Difficulty     model.Difficulty
	QuestionNumber int
	PriorQuestions []string
}

// EscalationQuestion writes the next coding problem. The reply is plain text;
// the second return value is true when the fixed fallback problem was used.
func (e *Evaluator) EscalationQuestion(ctx context.Context, in EscalationQuestionInput) (string, bool) {
	prior := in.PriorQuestions
	if len(prior) > 3 {
		prior = prior[:3]
	}
	data := struct {
		EscalationQuestionInput
		Guide string
	}{in, interview.DifficultyGuides[in.Difficulty]}
	data.PriorQuestions = prior

	raw, err := e.generate(ctx, KindEscalationQuestion, data)
	if err == nil && strings.TrimSpace(raw) == "" {
		err = ErrEmptyReply
	}
	if err != nil {
		e.degrade(KindEscalationQuestion, err)
		return interview.FallbackQuestion(in.Difficulty), true
	}
	e.ok(KindEscalationQuestion)
	return strings.TrimSpace(raw), false
}

type DimensionScore struct {
	Dimension model.Dimension
	Score     int
}

type BarAnalysisInput struct {
	InterviewType model.InterviewType
	Mode          model.Mode
	Verdict       interview.Verdict
	Falloff       bool
	Messages      []model.Message
	Submissions   []model.CodeSubmission
}

type BarAnalysisResult struct {
	Summary                  string
	Strengths                []string
	Weaknesses               []string
	MissedDepth              []string
	CodingImprovements       []string
	ArchitectureImprovements []string
	BehavioralRewrites       []string
	Degraded                 bool
}

func barFallback(v interview.Verdict) *BarAnalysisResult {
	return &BarAnalysisResult{
		Summary:                  interview.FallbackBarSummary(v),
		Strengths:                []string{},
		Weaknesses:               []string{},
		MissedDepth:              []string{},
		CodingImprovements:       []string{},
		ArchitectureImprovements: []string{},
		BehavioralRewrites:       []string{},
		Degraded:                 true,
	}
}

func (e *Evaluator) BarAnalysis(ctx context.Context, in BarAnalysisInput) *BarAnalysisResult {
	scores := make([]DimensionScore, 0, len(model.Dimensions))
	for _, d := range model.Dimensions {
		scores = append(scores, DimensionScore{Dimension: d, Score: in.Verdict.Scores[d]})
	}
	data := struct {
		InterviewType  model.InterviewType
		Mode           model.Mode
		Scores         []DimensionScore
		FinalScore     int
		Level          string
		Recommendation string
		Falloff        bool
		Transcript     string
		Code           string
	}{
		InterviewType:  in.InterviewType,
		Mode:           in.Mode,
		Scores:         scores,
		FinalScore:     in.Verdict.FinalScore,
		Level:          in.Verdict.LevelProjection,
		Recommendation: in.Verdict.HireRecommendation,
		Falloff:        in.Falloff,
		Transcript:     transcriptExcerpt(in.Messages),
		Code:           submissionExcerpt(in.Submissions),
	}

	r, err := e.ask(ctx, KindBarAnalysis, data)
	if err != nil {
		e.degrade(KindBarAnalysis, err)
		return barFallback(in.Verdict)
	}
	e.ok(KindBarAnalysis)

	summary := strings.TrimSpace(r.Get("barComparisonSummary").String())
	if summary == "" {
		summary = interview.FallbackBarSummary(in.Verdict)
	}
	return &BarAnalysisResult{
		Summary:                  summary,
		Strengths:                stringList(r.Get("strengthsSummary")),
		Weaknesses:               stringList(r.Get("weaknessesSummary")),
		MissedDepth:              stringList(r.Get("missedDepthOpportunities")),
		CodingImprovements:       stringList(r.Get("codingImprovements")),
		ArchitectureImprovements: stringList(r.Get("architectureImprovements")),
		BehavioralRewrites:       stringList(r.Get("behavioralRewrites")),
	}
}

const (
	maxExcerptMessages    = 40
	maxExcerptSubmissions = 5
	maxMessageRunes       = 200
)

func transcriptExcerpt(msgs []model.Message) string {
	if len(msgs) > maxExcerptMessages {
		msgs = msgs[:maxExcerptMessages]
	}
	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "[%s] %s: %s\n", m.Section, m.Role, truncate(m.Content, maxMessageRunes))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func submissionExcerpt(subs []model.CodeSubmission) string {
	if len(subs) > maxExcerptSubmissions {
		subs = subs[:maxExcerptSubmissions]
	}
	var sb strings.Builder
	for _, s := range subs {
		fmt.Fprintf(&sb, "- %s: %d/%d tests passed", s.Language, s.PassedCount, s.TotalCount)
		if s.ActualTimeComplexity != nil {
			fmt.Fprintf(&sb, ", time %s", *s.ActualTimeComplexity)
		}
		if s.IsOptimal != nil {
			fmt.Fprintf(&sb, ", optimal %t", *s.IsOptimal)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// readDelta keeps only the allowed dimensions from a scoreDelta object and
// clamps each value.
func readDelta(r gjson.Result, allowed []model.Dimension) model.ScoreDelta {
	delta := model.ScoreDelta{}
	for _, d := range allowed {
		v := r.Get(string(d))
		if v.Type != gjson.Number {
			continue
		}
		delta[d] = interview.ClampDelta(int(v.Int()))
	}
	return delta
}

func clampTen(v int64) int {
	return int(min(max(v, 0), 10))
}
