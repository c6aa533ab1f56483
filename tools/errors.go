package tools

import (
	"encoding/json"
	"errors"
)

// ErrorCode classifies a tool failure.
type ErrorCode string

const (
	CodeUnknownTool     ErrorCode = "ERR_UNKNOWN_TOOL"
	CodeInvalidParams   ErrorCode = "ERR_INVALID_PARAMS"
	CodeExecutionFailed ErrorCode = "ERR_EXECUTION_FAILED"
)

var (
	ErrUnknownTool       = errors.New("unknown tool")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrExecutionFailed   = errors.New("tool execution failed")
)

// ToolError is a machine-readable failure surfaced back to the model as JSON.
type ToolError struct {
	Code    ErrorCode `json:"code"`
	Tool    string    `json:"tool"`
	Message string    `json:"message"`

	err error
}

// Error returns a compact, single-line JSON string to keep tool results small.
func (e *ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

func (e *ToolError) Unwrap() error { return e.err }

// Is matches the sentinel for e's code.
func (e *ToolError) Is(target error) bool {
	switch target {
	case ErrUnknownTool:
		return e.Code == CodeUnknownTool
	case ErrInvalidParameters:
		return e.Code == CodeInvalidParams
	case ErrExecutionFailed:
		return e.Code == CodeExecutionFailed
	}
	return false
}

type paramsError struct{ err error }

func (e *paramsError) Error() string { return e.err.Error() }
func (e *paramsError) Unwrap() error { return e.err }

// InvalidParams marks err as a parameter problem. Handlers return it when
// the input decodes but is semantically unusable.
func InvalidParams(err error) error {
	if err == nil {
		return nil
	}
	return &paramsError{err: err}
}
