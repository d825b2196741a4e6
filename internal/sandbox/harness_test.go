package sandbox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockloop/interview-engine/internal/model"
)

type fakeRunner struct {
	mu     sync.Mutex
	calls  int
	active int
	peak   int
	run    func(ctx context.Context, stdin string) (Execution, error)
}

func (f *fakeRunner) RunCase(ctx context.Context, spec LanguageSpec, code, stdin string) (Execution, error) {
	f.mu.Lock()
	f.calls++
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()
	return f.run(ctx, stdin)
}

func echoRunner() *fakeRunner {
	return &fakeRunner{run: func(_ context.Context, stdin string) (Execution, error) {
		return Execution{Stdout: stdin + "\n"}, nil
	}}
}

func TestHarnessRun(t *testing.T) {
	t.Run("results follow input order", func(t *testing.T) {
		runner := &fakeRunner{run: func(_ context.Context, stdin string) (Execution, error) {
			// later cases finish first
			delay := map[string]time.Duration{"a": 30 * time.Millisecond, "b": 15 * time.Millisecond, "c": 0}
			time.Sleep(delay[stdin])
			return Execution{Stdout: stdin}, nil
		}}
		h := NewHarness(runner, 3)

		report, err := h.Run(context.Background(), "print(input())", model.LanguagePython, []model.TestCase{
			{Input: "a", ExpectedOutput: "a"},
			{Input: "b", ExpectedOutput: "x"},
			{Input: "c", ExpectedOutput: "c"},
		})

		require.NoError(t, err)
		require.Len(t, report.TestResults, 3)
		assert.Equal(t, []string{"a", "b", "c"}, []string{
			report.TestResults[0].Actual,
			report.TestResults[1].Actual,
			report.TestResults[2].Actual,
		})
		assert.Equal(t, 2, report.PassedCount)
		assert.Equal(t, 3, report.TotalCount)
		assert.False(t, report.AllPassed)
		assert.False(t, report.TestResults[1].Passed)
	})

	t.Run("defaults to two-sum cases", func(t *testing.T) {
		answers := map[string]string{}
		for _, tc := range DefaultTestCases {
			answers[tc.Input] = tc.ExpectedOutput
		}
		runner := &fakeRunner{run: func(_ context.Context, stdin string) (Execution, error) {
			return Execution{Stdout: "  " + answers[stdin] + "\n\n"}, nil
		}}

		report, err := NewHarness(runner, 2).Run(context.Background(), "solve()", model.LanguagePython, nil)

		require.NoError(t, err)
		assert.Equal(t, 3, report.TotalCount)
		assert.True(t, report.AllPassed)
		assert.Empty(t, report.Stderr)
		assert.Equal(t, "[0,1]", report.TestResults[0].Expected)
	})

	t.Run("bounded concurrency", func(t *testing.T) {
		runner := &fakeRunner{run: func(_ context.Context, stdin string) (Execution, error) {
			time.Sleep(10 * time.Millisecond)
			return Execution{Stdout: stdin}, nil
		}}
		cases := make([]model.TestCase, 8)
		for i := range cases {
			cases[i] = model.TestCase{Input: "1", ExpectedOutput: "1"}
		}

		report, err := NewHarness(runner, 2).Run(context.Background(), "x", model.LanguageJavaScript, cases)

		require.NoError(t, err)
		assert.True(t, report.AllPassed)
		assert.Equal(t, 8, runner.calls)
		assert.LessOrEqual(t, runner.peak, 2)
	})

	t.Run("timeouts fail the case only", func(t *testing.T) {
		runner := &fakeRunner{run: func(ctx context.Context, stdin string) (Execution, error) {
			if stdin == "slow" {
				<-ctx.Done()
				return Execution{TimedOut: true}, nil
			}
			return Execution{Stdout: stdin}, nil
		}}
		h := NewHarness(runner, 4)
		h.timeout = 20 * time.Millisecond

		report, err := h.Run(context.Background(), "x", model.LanguagePython, []model.TestCase{
			{Input: "fast", ExpectedOutput: "fast"},
			{Input: "slow", ExpectedOutput: ""},
		})

		require.NoError(t, err)
		assert.True(t, report.TestResults[0].Passed)
		assert.False(t, report.TestResults[1].Passed)
		assert.True(t, strings.HasPrefix(report.TestResults[1].Error, "Time limit exceeded"))
		assert.Equal(t, report.TestResults[1].Error, report.Stderr)
	})

	t.Run("cases still queued when the request ends fail without erroring", func(t *testing.T) {
		runner := &fakeRunner{run: func(ctx context.Context, stdin string) (Execution, error) {
			select {
			case <-time.After(300 * time.Millisecond):
				return Execution{Stdout: stdin}, nil
			case <-ctx.Done():
				return Execution{TimedOut: true}, nil
			}
		}}
		cases := make([]model.TestCase, 10)
		for i := range cases {
			cases[i] = model.TestCase{Input: "ok", ExpectedOutput: "ok"}
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		report, err := NewHarness(runner, 1).Run(ctx, "x", model.LanguagePython, cases)

		require.NoError(t, err)
		require.Len(t, report.TestResults, 10)
		assert.GreaterOrEqual(t, report.PassedCount, 1)
		assert.False(t, report.AllPassed)
		assert.Less(t, runner.calls, 10)
		queued := 0
		for _, r := range report.TestResults {
			if r.Error == notStartedMessage {
				queued++
				assert.False(t, r.Passed)
				assert.Equal(t, "ok", r.Expected)
			}
		}
		assert.Positive(t, queued)
	})

	t.Run("runner errors are reported per case", func(t *testing.T) {
		runner := &fakeRunner{run: func(_ context.Context, stdin string) (Execution, error) {
			if stdin == "2" {
				return Execution{}, errors.New("spawn failed")
			}
			return Execution{Stdout: stdin, Stderr: "warn " + stdin}, nil
		}}

		report, err := NewHarness(runner, 1).Run(context.Background(), "x", model.LanguagePython, []model.TestCase{
			{Input: "1", ExpectedOutput: "1"},
			{Input: "2", ExpectedOutput: "2"},
		})

		require.NoError(t, err)
		assert.Equal(t, 1, report.PassedCount)
		assert.Equal(t, "warn 1 | spawn failed", report.Stderr)
	})

	t.Run("java is accepted but never executed", func(t *testing.T) {
		runner := echoRunner()

		report, err := NewHarness(runner, 2).Run(context.Background(), "class Main {}", model.LanguageJava, nil)

		require.NoError(t, err)
		assert.Zero(t, runner.calls)
		assert.Equal(t, 0, report.PassedCount)
		for _, r := range report.TestResults {
			assert.Equal(t, "java execution requires a compiler toolchain", r.Error)
		}
	})

	t.Run("unsupported language", func(t *testing.T) {
		_, err := NewHarness(echoRunner(), 1).Run(context.Background(), "x", "cobol", nil)
		assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	})

	t.Run("rejected code never reaches the runner", func(t *testing.T) {
		runner := echoRunner()

		_, err := NewHarness(runner, 1).Run(context.Background(), "import os", model.LanguagePython, nil)

		var rej *RejectedError
		require.True(t, errors.As(err, &rej))
		assert.Equal(t, "Disallowed construct: 'import os'", rej.Reason)
		assert.Zero(t, runner.calls)
	})

	t.Run("output is capped before comparison", func(t *testing.T) {
		big := strings.Repeat("y", MaxStdoutBytes+100)
		runner := &fakeRunner{run: func(context.Context, string) (Execution, error) {
			return Execution{Stdout: big, Stderr: strings.Repeat("e", 5000)}, nil
		}}

		report, err := NewHarness(runner, 1).Run(context.Background(), "x", model.LanguagePython, []model.TestCase{{Input: "", ExpectedOutput: big}})

		require.NoError(t, err)
		assert.False(t, report.AllPassed)
		assert.Len(t, report.TestResults[0].Actual, MaxStdoutBytes)
		assert.Len(t, report.TestResults[0].Error, MaxStderrBytes)
	})
}

func TestCappedBuffer(t *testing.T) {
	b := newCappedBuffer(5)

	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = b.Write([]byte("defgh"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assert.Equal(t, "abcde", b.String())
}
