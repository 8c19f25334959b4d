// Package domain holds the error taxonomy shared by every simulation component.
package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by the simulation core.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation_error"
	KindMissingColumns   ErrorKind = "missing_columns"
	KindInvalidShockType ErrorKind = "invalid_shock_type"
	KindInfeasibleBounds ErrorKind = "infeasible_bounds"
	KindInfeasible       ErrorKind = "infeasible"
	KindSolver           ErrorKind = "solver_error"
	KindDegenerateInput  ErrorKind = "degenerate_input"
)

// Error is the structured error returned by every core operation.
// Two errors match under errors.Is when their kinds are equal.
type Error struct {
	Kind   ErrorKind `json:"kind"`
	Field  string    `json:"field,omitempty"`
	Detail string    `json:"detail"`
	Err    error     `json:"-"`
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrMissingColumns   = &Error{Kind: KindMissingColumns}
	ErrInvalidShockType = &Error{Kind: KindInvalidShockType}
	ErrInfeasibleBounds = &Error{Kind: KindInfeasibleBounds}
	ErrInfeasible       = &Error{Kind: KindInfeasible}
	ErrSolver           = &Error{Kind: KindSolver}
	ErrDegenerateInput  = &Error{Kind: KindDegenerateInput}
)

// NewValidationError reports an out-of-range or missing scalar input.
func NewValidationError(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Field: field, Detail: fmt.Sprintf(format, args...)}
}

// NewError builds an error of the given kind.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// WrapError builds an error of the given kind around a cause.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind of err, or "" when err is not a core error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CheckRange validates that v lies in [lo, hi] and is a finite number.
func CheckRange(field string, v, lo, hi float64) error {
	if v != v || v < lo || v > hi {
		return NewValidationError(field, "must be between %g and %g, got %g", lo, hi, v)
	}
	return nil
}

// CheckNonNegative validates that v is a finite number >= 0.
func CheckNonNegative(field string, v float64) error {
	if v != v || v < 0 || v > maxFinite {
		return NewValidationError(field, "must be a non-negative number, got %g", v)
	}
	return nil
}

const maxFinite = 1.7976931348623157e308
