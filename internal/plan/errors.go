package plan

import (
	"fmt"

	"github.com/roach88/hgq/internal/condition"
)

// ErrorCode categorizes compile errors.
type ErrorCode string

const (
	// ErrCodeUntranslatable indicates a condition with no translator that
	// cannot be used as a raw predicate where it appears.
	ErrCodeUntranslatable ErrorCode = "UNTRANSLATABLE"

	// ErrCodeNullValueSearch indicates a search for the null value.
	ErrCodeNullValueSearch ErrorCode = "NULL_VALUE_SEARCH"

	// ErrCodeDanglingType indicates a type handle that resolves to no type.
	ErrCodeDanglingType ErrorCode = "DANGLING_TYPE"

	// ErrCodeWrongOperator indicates an ordering operator on an index that
	// only answers equality.
	ErrCodeWrongOperator ErrorCode = "WRONG_OPERATOR"

	// ErrCodeNoScannableCondition indicates a conjunction with nothing that
	// can produce candidates.
	ErrCodeNoScannableCondition ErrorCode = "NO_SCANNABLE_CONDITION"

	// ErrCodeUnknownIndex indicates an index condition naming an index the
	// graph does not have.
	ErrCodeUnknownIndex ErrorCode = "UNKNOWN_INDEX"

	// ErrCodeInvalidCondition indicates a malformed condition.
	ErrCodeInvalidCondition ErrorCode = "INVALID_CONDITION"
)

// CompileError is returned when a condition cannot be normalized or
// compiled into a plan.
type CompileError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Condition is the offending condition, when known.
	Condition condition.Condition

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Condition != nil {
		msg += fmt.Sprintf(" (condition=%s)", condition.Key(e.Condition))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CompileError) Unwrap() error { return e.Err }

// NewUntranslatableError reports a condition no translator handles.
func NewUntranslatableError(c condition.Condition) *CompileError {
	return &CompileError{
		Code:      ErrCodeUntranslatable,
		Condition: c,
		Message:   "condition could not be translated to a query: it is probably not specific enough",
	}
}

// NewNullValueError reports a search for the null value.
func NewNullValueError(c condition.Condition) *CompileError {
	return &CompileError{
		Code:      ErrCodeNullValueSearch,
		Condition: c,
		Message:   "searching by null values is not supported",
	}
}

// NewDanglingTypeError reports an unresolvable type handle.
func NewDanglingTypeError(c condition.Condition, err error) *CompileError {
	return &CompileError{
		Code:      ErrCodeDanglingType,
		Condition: c,
		Message:   "type handle does not resolve to a type",
		Err:       err,
	}
}

// NewNoScannableError reports a conjunction that cannot be executed.
func NewNoScannableError(c condition.Condition) *CompileError {
	return &CompileError{
		Code:      ErrCodeNoScannableCondition,
		Condition: c,
		Message:   "no scannable condition in conjunction; the query is not specific enough",
	}
}
