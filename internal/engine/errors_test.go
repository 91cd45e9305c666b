package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/plan"
)

func TestErrorHelpers(t *testing.T) {
	checks := map[plan.ErrorCode]func(error) bool{
		plan.ErrCodeUntranslatable:       IsUntranslatable,
		plan.ErrCodeNullValueSearch:      IsNullValueSearch,
		plan.ErrCodeDanglingType:         IsDanglingType,
		plan.ErrCodeWrongOperator:        IsWrongOperator,
		plan.ErrCodeNoScannableCondition: IsNoScannable,
		plan.ErrCodeUnknownIndex:         IsUnknownIndex,
		plan.ErrCodeInvalidCondition:     IsInvalidCondition,
	}
	for code := range checks {
		err := fmt.Errorf("compile: %w", &plan.CompileError{Code: code, Condition: condition.AnyAtom{}, Message: "x"})

		got, ok := ErrorCode(err)
		assert.True(t, ok)
		assert.Equal(t, code, got)
		for other, is := range checks {
			assert.Equal(t, other == code, is(err), "%s checked as %s", code, other)
		}
	}

	_, ok := ErrorCode(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, IsUntranslatable(nil))
}
