package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// PlanSnapshot renders the explain output of every golden case of a run,
// in case order, as one document.
func PlanSnapshot(sc *Scenario, result *Result) []byte {
	golden := make(map[string]bool, len(sc.Queries))
	for _, c := range sc.Queries {
		golden[c.Name] = c.Golden
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", sc.Name)
	for _, c := range result.Cases {
		if !golden[c.Name] {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n%s", c.Name, c.Explain)
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario, fails t for every failing case and
// compares the plans of its golden cases against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario) *Result {
	t.Helper()

	result, err := Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("run %s: %v", sc.Name, err)
	}
	for _, e := range result.Errors() {
		t.Errorf("%s: %s", sc.Name, e)
	}
	AssertGoldenPlans(t, sc, result)
	return result
}

// AssertGoldenPlans compares an existing result's plans with the scenario's
// golden file without running it again.
func AssertGoldenPlans(t *testing.T, sc *Scenario, result *Result) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, PlanSnapshot(sc, result))
}
