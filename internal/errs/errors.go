// Package errs defines the error taxonomy shared by the query core and the
// index adapter.
//
// Two runtime categories exist:
//   - CONFIGURATION: a strategy, mode or field was used outside its declared
//     domain (NOT EQUAL without a value, sorting on a field without doc
//     values, unknown strategy name). Fails fast; no defaults substituted.
//   - ENGINE_UNAVAILABLE: the index cannot be opened or read. Propagated to
//     the caller verbatim and never retried here.
//
// Semantic violations (a strategy returning the wrong documents) are defects,
// not runtime errors. They are reported by internal/conformance in tests.
package errs

import (
	"errors"
	"fmt"
)

// Code categorizes an Error.
type Code string

const (
	// CodeConfiguration marks misuse of a strategy, mode or field.
	CodeConfiguration Code = "CONFIGURATION"

	// CodeEngineUnavailable marks an index that cannot be opened or read.
	CodeEngineUnavailable Code = "ENGINE_UNAVAILABLE"
)

// Error is a coded error with optional structured context.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op names the operation that failed (e.g. "build NOT_EQUAL/RANGE_EXCLUSION").
	Op string

	// Field is the affected field name, if any.
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" (field=%s)", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Configuration creates a CONFIGURATION error.
func Configuration(op, field, format string, args ...any) *Error {
	return &Error{
		Code:    CodeConfiguration,
		Op:      op,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// EngineUnavailable wraps an engine failure. The cause is kept intact so
// callers can still match driver errors with errors.Is/As.
func EngineUnavailable(op string, err error) *Error {
	return &Error{
		Code:    CodeEngineUnavailable,
		Op:      op,
		Message: "index unavailable",
		Err:     err,
	}
}

// IsConfiguration reports whether err is a CONFIGURATION error.
// Uses errors.As to handle wrapped errors.
func IsConfiguration(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeConfiguration
	}
	return false
}

// IsEngineUnavailable reports whether err is an ENGINE_UNAVAILABLE error.
// Uses errors.As to handle wrapped errors.
func IsEngineUnavailable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeEngineUnavailable
	}
	return false
}
