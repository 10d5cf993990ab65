package engine

import (
	"errors"
	"fmt"
)

// ErrorCode classifies engine failures. The set is closed; callers
// dispatch on codes, never on message text.
type ErrorCode string

const (
	CodeEntityNotFound   ErrorCode = "ENTITY_NOT_FOUND"
	CodeCommandNotFound  ErrorCode = "COMMAND_NOT_FOUND"
	CodeInstanceNotFound ErrorCode = "INSTANCE_NOT_FOUND"
	CodeInvalidData      ErrorCode = "INVALID_DATA"
	CodeInvalidParams    ErrorCode = "INVALID_PARAMS"
	CodeEval             ErrorCode = "EVAL_ERROR"
)

// Error is a structured engine failure.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from err, or "" when err is not an
// engine Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func errf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
