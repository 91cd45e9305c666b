package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hgq/internal/plan"
	"github.com/roach88/hgq/internal/queryspec"
)

func TestAssertResults_IgnoresOrder(t *testing.T) {
	assert.NoError(t, assertResults([]string{"sue", "bob"}, []string{"bob", "sue"}))
	assert.NoError(t, assertResults([]string{}, nil))
}

func TestAssertResults_Mismatch(t *testing.T) {
	err := assertResults([]string{"bob"}, []string{"bob", "rex"})
	require.Error(t, err)

	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertResults, aerr.Type)
	assert.Equal(t, "bob", aerr.Expected)
	assert.Contains(t, aerr.Actual, "+")
	assert.Contains(t, aerr.Actual, `"rex"`)
}

func TestAssertCount(t *testing.T) {
	assert.NoError(t, assertCount(2, 2))
	assert.EqualError(t, assertCount(2, 3), "assertion failed: count\n  expected: 2 results\n  actual: 3 results")
}

func TestAssertError(t *testing.T) {
	compileErr := fmt.Errorf("find: %w", &plan.CompileError{Code: plan.ErrCodeUnknownIndex, Message: "no index"})
	queryErr := &queryspec.ValidationError{Message: `unknown type "X"`, Line: 3}

	assert.NoError(t, assertError("UNKNOWN_INDEX", compileErr))
	assert.NoError(t, assertError(CodeInvalidQuery, queryErr))
	assert.Error(t, assertError("UNKNOWN_INDEX", nil))
	assert.Error(t, assertError("UNTRANSLATABLE", compileErr))
	assert.Error(t, assertError("UNKNOWN_INDEX", os.ErrClosed))
	assert.Equal(t, "", errorCode(os.ErrClosed))
}

func TestAssertAnalyze(t *testing.T) {
	flags := []plan.RedFlag{{Kind: "scan", Size: 2, Message: "filter over 2 atoms"}}
	assert.NoError(t, assertAnalyze(&AnalyzeExpect{Flags: 1}, flags))

	err := assertAnalyze(&AnalyzeExpect{Flags: 0}, flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 red flags: scan: filter over 2 atoms")
}

func TestAssertGoldenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s", "q.golden")

	err := assertGoldenFile(path, "plan\n", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")

	require.NoError(t, assertGoldenFile(path, "plan\n", true))
	assert.NoError(t, assertGoldenFile(path, "plan\n", false))
	assert.Error(t, assertGoldenFile(path, "other\n", false))
}
