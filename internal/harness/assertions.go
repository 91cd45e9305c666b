package harness

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/hgq/internal/engine"
	"github.com/roach88/hgq/internal/plan"
	"github.com/roach88/hgq/internal/queryspec"
)

// Assertion types.
const (
	AssertResults = "results"
	AssertCount   = "count"
	AssertError   = "error"
	AssertGolden  = "golden"
	AssertAnalyze = "analyze"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s", e.Actual)
	return buf.String()
}

// assertResults compares found and expected atom names as sets.
func assertResults(expected, found []string) error {
	want := append([]string(nil), expected...)
	sort.Strings(want)
	got := append([]string(nil), found...)
	sort.Strings(got)
	if diff := cmp.Diff(want, got); diff != "" {
		return &AssertionError{
			Type:     AssertResults,
			Expected: strings.Join(want, ", "),
			Actual:   fmt.Sprintf("%s\n  diff (-want +got):\n%s", strings.Join(got, ", "), diff),
		}
	}
	return nil
}

func assertCount(expected, actual int64) error {
	if expected != actual {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d results", expected),
			Actual:   fmt.Sprintf("%d results", actual),
		}
	}
	return nil
}

// errorCode names the failure class of err: its compile error code, or
// INVALID_QUERY for a query that did not decode.
func errorCode(err error) string {
	if code, ok := engine.ErrorCode(err); ok {
		return string(code)
	}
	var verr *queryspec.ValidationError
	if errors.As(err, &verr) {
		return CodeInvalidQuery
	}
	return ""
}

func assertError(expected string, err error) error {
	if err == nil {
		return &AssertionError{Type: AssertError, Expected: expected, Actual: "no error"}
	}
	if code := errorCode(err); code != expected {
		return &AssertionError{Type: AssertError, Expected: expected, Actual: err.Error()}
	}
	return nil
}

func assertAnalyze(expected *AnalyzeExpect, flags []plan.RedFlag) error {
	if len(flags) == expected.Flags {
		return nil
	}
	var lines []string
	for _, f := range flags {
		lines = append(lines, f.String())
	}
	actual := fmt.Sprintf("%d red flags", len(flags))
	if len(lines) > 0 {
		actual += ": " + strings.Join(lines, "; ")
	}
	return &AssertionError{
		Type:     AssertAnalyze,
		Expected: fmt.Sprintf("%d red flags", expected.Flags),
		Actual:   actual,
	}
}

// assertGoldenFile compares explain with the file at path, or writes it
// when update is set.
func assertGoldenFile(path, explain string, update bool) error {
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		return os.WriteFile(path, []byte(explain), 0o644)
	}
	want, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &AssertionError{Type: AssertGolden, Expected: "golden file " + path, Actual: "missing, run with --update"}
	}
	if err != nil {
		return err
	}
	if diff := cmp.Diff(string(want), explain); diff != "" {
		return &AssertionError{
			Type:     AssertGolden,
			Expected: "plan matching " + path,
			Actual:   "diff (-want +got):\n" + diff,
		}
	}
	return nil
}
