package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	// MemoryLimitKB is the base memory ceiling of a child process.
	MemoryLimitKB = 256 * 1024

	childPath = "PATH=/usr/bin:/usr/local/bin"
)

// ProcessRunner executes each case as a local child process. The child gets
// its language's memory ulimit applied by the shell before exec and an
// environment holding only PATH.
type ProcessRunner struct {
	workDir string
}

// NewProcessRunner writes source files under workDir, or the system temp
// directory when workDir is empty.
func NewProcessRunner(workDir string) *ProcessRunner {
	return &ProcessRunner{workDir: workDir}
}

func (r *ProcessRunner) RunCase(ctx context.Context, spec LanguageSpec, code, stdin string) (Execution, error) {
	if spec.Interpreter == "" {
		return Execution{}, ErrUnsupportedLanguage
	}

	f, err := os.CreateTemp(r.workDir, "submission-*"+spec.Ext)
	if err != nil {
		return Execution{}, fmt.Errorf("create source file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return Execution{}, fmt.Errorf("write source file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Execution{}, fmt.Errorf("close source file: %w", err)
	}

	stdout := newCappedBuffer(MaxStdoutBytes)
	stderr := newCappedBuffer(MaxStderrBytes)

	script := `exec "$0" "$@"`
	if lim := spec.MemoryLimit; lim.Flag != "" {
		script = fmt.Sprintf("ulimit %s %d; %s", lim.Flag, lim.KB, script)
	}
	argv := spec.Command(path)
	cmd := exec.CommandContext(ctx, "/bin/sh", append([]string{"-c", script}, argv...)...)
	cmd.Env = []string{childPath}
	cmd.Dir = os.TempDir()
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	runErr := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Execution{TimedOut: true}, nil
	}
	if ctx.Err() != nil {
		return Execution{}, ctx.Err()
	}

	res := Execution{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return Execution{}, fmt.Errorf("run %s: %w", spec.Interpreter, runErr)
	}
	return res, nil
}
