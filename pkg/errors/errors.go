// Package errors provides the structured error types used while building
// split-search histograms. Errors carry enough context (column, bounds, bin
// counts) to be logged as structured events and are annotated with stack
// traces via cockroachdb/errors.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// RangeError reports a degenerate bin layout: the linear interpolation step
// derived from the declared column bounds is non-positive, infinite or NaN.
// The caller treats the column as unusable for the current node and moves on
// to the remaining columns, so this error is non-fatal at the tree level.
type RangeError struct {
	Column string
	Step   float64
	Bins   int
	Min    float64
	MaxEx  float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("column=%s leads to invalid histogram (check numeric range) -> [max=%v, min=%v], step=%v, bins=%d",
		e.Column, e.MaxEx, e.Min, e.Step, e.Bins)
}

// MarshalZerologObject adds the structured layout context to a zerolog event.
func (e *RangeError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).
		Float64("step", e.Step).
		Int("bins", e.Bins).
		Float64("min", e.Min).
		Float64("max_ex", e.MaxEx).
		Str("type", "RangeError")
}

// NewRangeError creates a new RangeError with a stack trace attached.
func NewRangeError(column string, step float64, bins int, min, maxEx float64) error {
	err := &RangeError{Column: column, Step: step, Bins: bins, Min: min, MaxEx: maxEx}
	return errors.WithStack(err)
}

// IsRangeError reports whether err wraps a RangeError.
func IsRangeError(err error) bool {
	var re *RangeError
	return errors.As(err, &re)
}

// ValidationError reports an invalid construction parameter.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("histogram: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the structured parameter context to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a new ValidationError with a stack trace attached.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// LayoutMismatchError reports an attempt to merge two histograms whose bin
// layouts differ. This is a programming error in the surrounding reduction
// logic rather than a data problem.
type LayoutMismatchError struct {
	Column string
	Detail string
}

func (e *LayoutMismatchError) Error() string {
	return fmt.Sprintf("histogram: %s: cannot merge histograms with mismatched layouts: %s", e.Column, e.Detail)
}

// MarshalZerologObject adds the structured merge context to a zerolog event.
func (e *LayoutMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).
		Str("detail", e.Detail).
		Str("type", "LayoutMismatchError")
}

// NewLayoutMismatchError creates a new LayoutMismatchError with a stack trace attached.
func NewLayoutMismatchError(column, detail string) error {
	err := &LayoutMismatchError{Column: column, Detail: detail}
	return errors.WithStack(err)
}

// NumericalInstabilityError reports NaN or Inf showing up where the
// accumulation protocol requires finite values.
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("histogram: numerical instability detected in %s. Values: [%s]", e.Operation, valStr)
}

// NewNumericalInstabilityError creates a new NumericalInstabilityError with a
// stack trace attached.
func NewNumericalInstabilityError(operation string, values []float64) error {
	err := &NumericalInstabilityError{Operation: operation, Values: values}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an existing error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// Common error variables.
var (
	// ErrNotInitialized is returned when a histogram operation requires the
	// accumulator arrays but Init was never called.
	ErrNotInitialized = New("histogram not initialized")

	// ErrEmptyData is returned when an empty row set is passed where at
	// least one row is required.
	ErrEmptyData = New("empty data")
)
