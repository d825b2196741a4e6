package sandbox

import (
	"context"
	"sync"
)

const (
	MaxStdoutBytes = 64 * 1024
	MaxStderrBytes = 1024
)

// Execution is the raw outcome of running one test case.
type Execution struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Runner executes a single test case. Implementations must honour ctx
// cancellation, write the code to fresh storage per call and clean it up on
// every path. An error means the case could not be run at all.
type Runner interface {
	RunCase(ctx context.Context, spec LanguageSpec, code, stdin string) (Execution, error)
}

// cappedBuffer keeps the first limit bytes written to it and silently drops
// the rest, so a chatty child never blocks on a full pipe.
type cappedBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if room := c.limit - len(c.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		c.buf = append(c.buf, p[:room]...)
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.buf)
}
