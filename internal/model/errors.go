package model

import (
	"errors"
	"fmt"
)

// ErrorKind is the taxonomy every failure is mapped to before it reaches a caller.
type ErrorKind string

const (
	KindValidation         ErrorKind = "VALIDATION_ERROR"
	KindFeasibility        ErrorKind = "FEASIBILITY_ERROR"
	KindSolver             ErrorKind = "SOLVER_ERROR"
	KindDegenerateBaseline ErrorKind = "DEGENERATE_BASELINE"
	KindInfeasible         ErrorKind = "INFEASIBLE"
)

// ErrorCode narrows a kind down to the specific rule that failed.
type ErrorCode string

const (
	CodeInvalidRequest        ErrorCode = "INVALID_REQUEST"
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodeCreditRatingViolation ErrorCode = "CREDIT_RATING_VIOLATION"
	CodeInsufficientCapacity  ErrorCode = "INSUFFICIENT_CAPACITY"
	CodeNoEligibleQuotes      ErrorCode = "NO_ELIGIBLE_QUOTES"
	CodeZeroBaseline          ErrorCode = "ZERO_BASELINE"
	CodeNoFeasiblePoint       ErrorCode = "NO_FEASIBLE_POINT"
	CodeRequiredCarrierUnused ErrorCode = "REQUIRED_CARRIER_UNUSED"
	CodeSolverTimeout         ErrorCode = "SOLVER_TIMEOUT"
	CodeSolverFailure         ErrorCode = "SOLVER_FAILURE"
	CodeSolverUnbounded       ErrorCode = "SOLVER_UNBOUNDED"
)

// Error is the structured error returned by the optimizer. Details carries
// machine-readable diagnostics (e.g. available vs required capacity).
type Error struct {
	Kind    ErrorKind
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, code ErrorCode, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// WithDetail sets a diagnostic key and returns the same error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// Wrap attaches the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func ValidationError(format string, args ...any) *Error {
	return NewError(KindValidation, CodeInvalidRequest, fmt.Sprintf(format, args...))
}

func FeasibilityError(code ErrorCode, format string, args ...any) *Error {
	return NewError(KindFeasibility, code, fmt.Sprintf(format, args...))
}

func SolverError(code ErrorCode, format string, args ...any) *Error {
	return NewError(KindSolver, code, fmt.Sprintf(format, args...))
}

// AsError extracts the structured error from a chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err (or anything it wraps) is a taxonomy error of kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}
