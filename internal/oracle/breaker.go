package oracle

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Breaker stops calling the wrapped oracle after a run of consecutive
// failures and lets a single probe through once the reset window passes.
type Breaker struct {
	next      Oracle
	threshold int32
	reset     time.Duration
	now       func() time.Time

	failures  int32
	openUntil int64 // unix nano
}

func NewBreaker(next Oracle, threshold int, reset time.Duration) *Breaker {
	return &Breaker{
		next:      next,
		threshold: int32(threshold),
		reset:     reset,
		now:       time.Now,
	}
}

func (b *Breaker) Generate(ctx context.Context, req Request) (string, error) {
	if b.isOpen() {
		return "", ErrCircuitOpen
	}

	out, err := b.next.Generate(ctx, req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			b.recordFailure()
		}
		return "", err
	}
	atomic.StoreInt32(&b.failures, 0)
	return out, nil
}

func (b *Breaker) isOpen() bool {
	if atomic.LoadInt32(&b.failures) < b.threshold {
		return false
	}
	if b.now().UnixNano() < atomic.LoadInt64(&b.openUntil) {
		return true
	}
	// half-open: allow one probe
	atomic.StoreInt32(&b.failures, b.threshold-1)
	return false
}

func (b *Breaker) recordFailure() {
	if v := atomic.AddInt32(&b.failures, 1); v >= b.threshold {
		atomic.StoreInt64(&b.openUntil, b.now().Add(b.reset).UnixNano())
		if v == b.threshold {
			log.Warn().Int32("failures", v).Dur("reset", b.reset).Msg("Oracle circuit opened")
		}
	}
}
