// Package errors provides structured error handling for ProcLens.
// Errors carry codes for programmatic handling plus free-form context.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies an error category for programmatic handling.
type Code string

const (
	// Caller errors (1xx)
	CodeInvalidThreshold Code = "E101"
	CodeEmptyLog         Code = "E102"

	// Input errors (2xx)
	CodeFileNotFound     Code = "E201"
	CodeInvalidFormat    Code = "E202"
	CodeMissingColumn    Code = "E203"
	CodeInvalidTimestamp Code = "E204"
	CodeParseFailed      Code = "E205"

	// System errors (4xx)
	CodeContextCanceled Code = "E401"

	// Unknown
	CodeUnknown Code = "E999"
)

// Error is the base error type for all ProcLens errors.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		sb.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause attaches an underlying cause, keeping errors.Is matches
// against sentinel errors intact.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// New creates a new Error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// --- Convenience constructors ---

// InvalidThreshold reports a threshold argument outside [0.0, 1.0].
// Raised before any trace is inspected; recoverable by the caller
// supplying a valid value.
func InvalidThreshold(name string, value float64) *Error {
	return New(CodeInvalidThreshold, "threshold must be within [0.0, 1.0]").
		WithContext("threshold", name).
		WithContext("value", value)
}

// EmptyLog reports an event log with zero traces. Absence of evidence
// is distinct from a confirmed absence of relations, so an empty log
// never silently yields an all-None matrix.
func EmptyLog() *Error {
	return New(CodeEmptyLog, "event log contains no traces")
}

// FileNotFound reports a missing input file.
func FileNotFound(path string) *Error {
	return New(CodeFileNotFound, "file not found").WithContext("path", path)
}

// MissingColumn reports a required column absent from tabular input.
func MissingColumn(column string) *Error {
	return New(CodeMissingColumn, "required column not found").
		WithContext("column", column)
}

// ParseError reports a parsing failure with location.
func ParseError(format string, row int, err error) *Error {
	return Wrap(err, CodeParseFailed, "parse error").
		WithContext("format", format).
		WithContext("row", row)
}

// --- Error checking utilities ---

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
