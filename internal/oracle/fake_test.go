package oracle

import (
	"context"
	"sync"
)

// fakeOracle replays canned replies and records the requests it saw.
type fakeOracle struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []Request
}

func (f *fakeOracle) Generate(_ context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func (f *fakeOracle) last() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}
