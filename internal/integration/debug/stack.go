package debug

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-dap"

	"github.com/dshills/scriptpoint/internal/integration/debug/wire"
)

// Errors of the adapter round trips a stop issues.
var (
	// ErrNoFrames is returned when a stack trace has no frames.
	ErrNoFrames = errors.New("debug: stack trace has no frames")

	// ErrNoMemoryReference is returned by memory for a value without a memory reference.
	ErrNoMemoryReference = errors.New("no memory reference")
)

// topFrame fetches the innermost frame of a stopped thread.
func (t *Tracker) topFrame(ctx context.Context, threadID int) (*dap.StackFrame, error) {
	args := dap.StackTraceArguments{
		ThreadId:   threadID,
		StartFrame: 0,
		Levels:     1,
	}
	env, err := t.adapter.Request(ctx, wire.CommandStackTrace, args)
	if err != nil {
		return nil, fmt.Errorf("stack trace of thread %d: %w", threadID, err)
	}

	var body dap.StackTraceResponseBody
	if err := env.DecodeBody(&body); err != nil {
		return nil, fmt.Errorf("stack trace of thread %d: %w", threadID, err)
	}
	if len(body.StackFrames) == 0 {
		return nil, ErrNoFrames
	}
	return &body.StackFrames[0], nil
}

// evaluate evaluates expr in a frame in the repl context.
func (t *Tracker) evaluate(ctx context.Context, frameID int, expr string) (*dap.EvaluateResponseBody, error) {
	args := dap.EvaluateArguments{
		Expression: expr,
		FrameId:    frameID,
		Context:    "repl",
	}
	env, err := t.adapter.Request(ctx, wire.CommandEvaluate, args)
	if err != nil {
		return nil, err
	}

	var body dap.EvaluateResponseBody
	if err := env.DecodeBody(&body); err != nil {
		return nil, err
	}
	return &body, nil
}

// readMemory evaluates expr and reads count bytes at its memory reference.
func (t *Tracker) readMemory(ctx context.Context, frameID int, expr string, count int) (string, error) {
	value, err := t.evaluate(ctx, frameID, expr)
	if err != nil {
		return "", err
	}
	if value.MemoryReference == "" {
		return "", fmt.Errorf("%w: %s", ErrNoMemoryReference, expr)
	}

	args := dap.ReadMemoryArguments{
		MemoryReference: value.MemoryReference,
		Offset:          0,
		Count:           count,
	}
	env, err := t.adapter.Request(ctx, wire.CommandReadMemory, args)
	if err != nil {
		return "", err
	}

	var body dap.ReadMemoryResponseBody
	if err := env.DecodeBody(&body); err != nil {
		return "", err
	}
	return body.Data, nil
}
