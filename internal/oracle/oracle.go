// Package oracle wraps the external language model that judges free-form
// answers. Every call has a fixed fallback result, so the engine keeps working
// when the model is down, slow or returns something unparseable.
package oracle

import (
	"context"
	"errors"
)

var (
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrCircuitOpen       = errors.New("oracle circuit open")
	ErrEmptyReply        = errors.New("oracle returned an empty reply")
)

// Request is one prompt sent to the model.
type Request struct {
	Kind        string
	Prompt      string
	Temperature float32
	MaxTokens   int32
}

type Oracle interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// DisabledOracle is used when no model is configured. Every call fails, so
// every evaluation takes its fallback.
type DisabledOracle struct{}

func (DisabledOracle) Generate(context.Context, Request) (string, error) {
	return "", ErrOracleUnavailable
}
