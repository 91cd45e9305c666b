package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// To regenerate golden files:
//
//	go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	if err != nil {
		t.Fatal(err)
	}
	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			result := RunWithGolden(t, sc)
			assert.True(t, result.Pass)
		})
	}
}

func TestPlanSnapshot_OnlyGoldenCases(t *testing.T) {
	sc := &Scenario{Name: "s", Queries: []Case{{Name: "a", Golden: true}, {Name: "b"}}}
	result := &Result{Cases: []CaseResult{
		{Name: "a", Explain: "plan a\n"},
		{Name: "b", Explain: "plan b\n"},
	}}
	assert.Equal(t, "# s\n\n## a\nplan a\n", string(PlanSnapshot(sc, result)))
}

func TestAssertGoldenPlans_ReusesResult(t *testing.T) {
	sc, err := LoadScenario("testdata/scenarios/pets.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), sc)
	require.NoError(t, err)
	require.True(t, result.Pass)

	AssertGoldenPlans(t, sc, result)
}
