package engine

import (
	"errors"

	"github.com/roach88/hgq/internal/plan"
)

// ErrorCode returns the compile error code carried by err. Uses errors.As
// to handle wrapped errors.
func ErrorCode(err error) (plan.ErrorCode, bool) {
	var ce *plan.CompileError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}

func hasCode(err error, code plan.ErrorCode) bool {
	c, ok := ErrorCode(err)
	return ok && c == code
}

// IsUntranslatable returns true if a condition had no translator and could
// not be used as a predicate.
func IsUntranslatable(err error) bool {
	return hasCode(err, plan.ErrCodeUntranslatable)
}

// IsNullValueSearch returns true if the query searched for a null value.
func IsNullValueSearch(err error) bool {
	return hasCode(err, plan.ErrCodeNullValueSearch)
}

// IsDanglingType returns true if a condition referenced a type handle that
// does not resolve.
func IsDanglingType(err error) bool {
	return hasCode(err, plan.ErrCodeDanglingType)
}

// IsWrongOperator returns true if an operator was used on an index that
// cannot serve it.
func IsWrongOperator(err error) bool {
	return hasCode(err, plan.ErrCodeWrongOperator)
}

// IsNoScannable returns true if a conjunction had nothing to iterate.
func IsNoScannable(err error) bool {
	return hasCode(err, plan.ErrCodeNoScannableCondition)
}

// IsUnknownIndex returns true if an index condition named an index that is
// not defined.
func IsUnknownIndex(err error) bool {
	return hasCode(err, plan.ErrCodeUnknownIndex)
}

// IsInvalidCondition returns true if a condition was malformed.
func IsInvalidCondition(err error) bool {
	return hasCode(err, plan.ErrCodeInvalidCondition)
}
