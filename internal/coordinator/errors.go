package coordinator

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failed Chat call.
type ErrorKind string

const (
	KindModel            ErrorKind = "model"
	KindToolLoopExceeded ErrorKind = "tool_loop_exceeded"
	KindCancelled        ErrorKind = "cancelled"
)

var (
	ErrModel            = errors.New("model error")
	ErrToolLoopExceeded = errors.New("tool loop exceeded")
	ErrCancelled        = errors.New("chat cancelled")

	// ErrNoMessages is returned when Chat is called without messages.
	ErrNoMessages = errors.New("coordinator: no messages to send")
)

// Error is the only error type Chat returns, apart from ErrNoMessages.
// Rounds is the number of tool dispatch rounds completed before the failure.
type Error struct {
	Kind   ErrorKind
	Rounds int
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("coordinator: %s after %d tool rounds", e.Kind, e.Rounds)
	}
	return fmt.Sprintf("coordinator: %s after %d tool rounds: %v", e.Kind, e.Rounds, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrModel:
		return e.Kind == KindModel
	case ErrToolLoopExceeded:
		return e.Kind == KindToolLoopExceeded
	case ErrCancelled:
		return e.Kind == KindCancelled
	}
	return false
}

// generateError wraps a Generate failure, reporting Cancelled when the
// caller's context ended.
func generateError(ctx context.Context, rounds int, err error) *Error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindCancelled, Rounds: rounds, Err: err}
	}
	return &Error{Kind: KindModel, Rounds: rounds, Err: err}
}
