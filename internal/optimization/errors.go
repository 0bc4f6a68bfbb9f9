package optimization

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error produced by this module wraps one of them (or the
// failure returned by a caller-supplied cost function), so callers can match
// with errors.Is.
var (
	// ErrConfiguration reports an invalid engine or cost function setup.
	ErrConfiguration = errors.New("configuration error")
	// ErrDimensionMismatch reports a parameter vector of the wrong length.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrUninitialized reports use of an engine before its population exists.
	ErrUninitialized = errors.New("population not initialized")
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewErrorf creates a new optimization error with formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: message,
		Err:     err,
	}
}

// ConfigurationError reports an invalid setup detected at construction time.
func ConfigurationError(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Err:     ErrConfiguration,
	}
}

// DimensionMismatch reports that a vector of length got was supplied where
// want parameters were expected.
func DimensionMismatch(got, want int) *Error {
	return &Error{
		Message: fmt.Sprintf("got %d parameters, want %d", got, want),
		Err:     ErrDimensionMismatch,
	}
}

// UninitializedStateError reports an operation that needs a population
// before InitializePopulation has been called.
func UninitializedStateError(op string) *Error {
	return &Error{
		Message: "InitializePopulation must be called first",
		Op:      op,
		Err:     ErrUninitialized,
	}
}

// IsOptimizationError checks if an error chain contains an *Error.
// If so, it returns the outermost one and true.
func IsOptimizationError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
