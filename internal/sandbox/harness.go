// Package sandbox runs untrusted candidate code against test cases. Every
// case gets a fresh source file, its own process or container, a wall-clock
// limit and capped output. Failures of individual cases are reported in the
// results and never fail the run as a whole.
package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mockloop/interview-engine/internal/metrics"
	"github.com/mockloop/interview-engine/internal/model"
)

const (
	CaseTimeout = 10 * time.Second
	// MaxTestCases keeps a full run inside one request's time budget.
	MaxTestCases = 20
)

const notStartedMessage = "Not run: execution time budget exhausted before this case started"

// DefaultTestCases are used when a submission carries none (two-sum).
var DefaultTestCases = []model.TestCase{
	{Input: "[2,7,11,15]\n9", ExpectedOutput: "[0,1]"},
	{Input: "[3,2,4]\n6", ExpectedOutput: "[1,2]"},
	{Input: "[3,3]\n6", ExpectedOutput: "[0,1]"},
}

type Report struct {
	TestResults     model.TestResults
	PassedCount     int
	TotalCount      int
	ExecutionTimeMs int64
	AllPassed       bool
	// Stderr joins the non-empty per-case errors with " | ".
	Stderr string
}

type Harness struct {
	runner  Runner
	slots   *semaphore.Weighted
	timeout time.Duration
}

// NewHarness bounds concurrently running cases across every Run call to
// maxConcurrent.
func NewHarness(runner Runner, maxConcurrent int) *Harness {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Harness{
		runner:  runner,
		slots:   semaphore.NewWeighted(int64(maxConcurrent)),
		timeout: CaseTimeout,
	}
}

// Run pre-screens code and executes it against cases, falling back to
// DefaultTestCases when none are given. Results keep the input order. The
// returned error is ErrUnsupportedLanguage or a *RejectedError; cases still
// waiting for a slot when ctx ends are reported as failed, not as an error.
func (h *Harness) Run(ctx context.Context, code string, lang model.Language, cases []model.TestCase) (*Report, error) {
	spec, err := langSpec(lang)
	if err != nil {
		return nil, err
	}
	if err := Prescreen(code); err != nil {
		metrics.IncSandboxRejection()
		return nil, err
	}
	if len(cases) == 0 {
		cases = DefaultTestCases
	}

	start := time.Now()
	results := make(model.TestResults, len(cases))

	var g errgroup.Group
	for i, tc := range cases {
		g.Go(func() error {
			if err := h.slots.Acquire(ctx, 1); err != nil {
				results[i] = notStarted(spec, tc)
				return nil
			}
			defer h.slots.Release(1)
			results[i] = h.runCase(ctx, spec, code, tc)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		TestResults:     results,
		TotalCount:      len(results),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
	var errs []string
	for _, r := range results {
		if r.Passed {
			report.PassedCount++
		}
		if r.Error != "" {
			errs = append(errs, r.Error)
		}
	}
	report.AllPassed = report.PassedCount == report.TotalCount
	report.Stderr = strings.Join(errs, " | ")
	return report, nil
}

func (h *Harness) runCase(ctx context.Context, spec LanguageSpec, code string, tc model.TestCase) model.TestResult {
	result := model.TestResult{
		Input:    tc.Input,
		Expected: strings.TrimSpace(tc.ExpectedOutput),
	}
	if spec.Stub != "" {
		result.Error = spec.Stub
		metrics.ObserveSandboxCase(string(spec.Language), metrics.OutcomeError, 0)
		return result
	}

	caseCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	out, err := h.runner.RunCase(caseCtx, spec, code, tc.Input)

	var outcome string
	switch {
	case err != nil:
		result.Error = truncate(err.Error(), MaxStderrBytes)
		outcome = metrics.OutcomeError
	case out.TimedOut:
		result.Error = fmt.Sprintf("Time limit exceeded (%ds)", int(h.timeout.Seconds()))
		outcome = metrics.OutcomeTimeout
	default:
		result.Actual = strings.TrimSpace(truncate(out.Stdout, MaxStdoutBytes))
		result.Error = truncate(out.Stderr, MaxStderrBytes)
		result.Passed = result.Actual == result.Expected
		outcome = metrics.OutcomeFailed
		if result.Passed {
			outcome = metrics.OutcomePassed
		}
	}
	metrics.ObserveSandboxCase(string(spec.Language), outcome, time.Since(start))
	return result
}

func notStarted(spec LanguageSpec, tc model.TestCase) model.TestResult {
	metrics.ObserveSandboxCase(string(spec.Language), metrics.OutcomeTimeout, 0)
	return model.TestResult{
		Input:    tc.Input,
		Expected: strings.TrimSpace(tc.ExpectedOutput),
		Error:    notStartedMessage,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
