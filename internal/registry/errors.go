package registry

import (
	"errors"
	"fmt"
)

// Code classifies registry failures so callers can map them to a transport status.
type Code string

const (
	// CodeNotFound indicates the token does not match any registered project.
	CodeNotFound Code = "NOT_FOUND"
	// CodeFailedPrecondition indicates a submitted timestamp does not advance the history.
	CodeFailedPrecondition Code = "FAILED_PRECONDITION"
	// CodeInvalidArgument indicates malformed input, such as an empty project name.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	// CodeInternal indicates a broken invariant, such as token generation exhaustion.
	CodeInternal Code = "INTERNAL"
)

// Sentinel errors for use with errors.Is. Any *Error matches the sentinel
// carrying the same Code.
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "project not found"}
	ErrFailedPrecondition = &Error{Code: CodeFailedPrecondition, Message: "timestamp must increase"}
	ErrInvalidArgument    = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// Error is a classified registry failure.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a registry error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code Code, message string, context map[string]any) *Error {
	return &Error{Code: code, Message: message, Context: context}
}

// errProjectNotFound returns a fresh error so callers cannot mutate the sentinel.
func errProjectNotFound() *Error {
	return newError(CodeNotFound, "project not found", nil)
}

// CodeOf returns the registry code carried by err, or an empty code when err
// is nil or did not originate in the registry.
func CodeOf(err error) Code {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
