// Package harness runs conformance scenarios against the query engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: pets
//	description: "Owners and their pets"
//	dataset:
//	  - ../datasets/pets.cue
//	parallel_union: false
//	queries:
//	  - name: bob-by-name
//	    query:
//	      and:
//	        - type: Person
//	        - part: {path: name, value: Bob}
//	    expect: [bob]
//	    golden: true
//	  - name: arity-alone
//	    query: {arity: 2}
//	    error: UNTRANSLATABLE
//
// Queries use the queryspec syntax. Atoms are named as the dataset names
// them.
//
// # Expectations
//
//   - expect: the names of the atoms found, in any order
//   - count: the number of atoms found
//   - error: a compile error code, or INVALID_QUERY
//   - golden: the plan explain output matches a golden file
//   - analyze: the number of red flags under given thresholds
//
// # Isolation
//
// Every scenario runs against a fresh SQLite store in a temporary
// directory. Dataset handles are derived from names, so explain output is
// the same on every run; handles are replaced by names before comparison.
//
// # Usage
//
//	sc, err := harness.LoadScenario("testdata/scenarios/pets.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, sc, harness.WithGoldenDir("testdata/golden"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, e := range result.Errors() {
//	    log.Println(e)
//	}
package harness
