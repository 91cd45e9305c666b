package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a conformance scenario: a dataset and the queries that
// must behave a given way against it.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names its golden
	// files.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dataset lists the CUE files to compile and load. Paths are relative
	// to the scenario file.
	Dataset []string `yaml:"dataset"`

	// ParallelUnion runs disjunctions on the async union.
	ParallelUnion bool `yaml:"parallel_union,omitempty"`

	// Queries are run in order against the loaded dataset.
	Queries []Case `yaml:"queries"`
}

// Case is one query and what it must produce.
type Case struct {
	Name string `yaml:"name"`

	// Query is a queryspec condition.
	Query yaml.Node `yaml:"query"`

	// Expect lists the names of the atoms the query must find, in any
	// order. An empty list expects no results; an absent one is not
	// checked.
	Expect []string `yaml:"expect,omitempty"`

	// Count is the expected number of results.
	Count *int64 `yaml:"count,omitempty"`

	// Error is the expected failure code: a compile error code such as
	// UNKNOWN_INDEX, or INVALID_QUERY for a query that does not decode.
	Error string `yaml:"error,omitempty"`

	// Golden compares the query's explain output with its golden file.
	Golden bool `yaml:"golden,omitempty"`

	// Analyze checks the number of plan red flags.
	Analyze *AnalyzeExpect `yaml:"analyze,omitempty"`
}

// AnalyzeExpect is the expected outcome of plan analysis under the given
// thresholds.
type AnalyzeExpect struct {
	Intersection int64 `yaml:"intersection"`
	Scan         int64 `yaml:"scan"`
	Flags        int   `yaml:"flags"`
}

// CodeInvalidQuery is the expected error code for a query that cannot be
// turned into a condition.
const CodeInvalidQuery = "INVALID_QUERY"

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected and dataset paths are resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	sc, err := ParseScenario(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// ParseScenario parses scenario YAML, resolving relative dataset paths
// against basePath.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, p := range sc.Dataset {
		if !filepath.IsAbs(p) && basePath != "" {
			sc.Dataset[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// LoadDir loads every *.yaml scenario in dir, in file name order.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		sc, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Dataset) == 0 {
		return fmt.Errorf("dataset list is required and must be non-empty")
	}
	for _, p := range s.Dataset {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("dataset file not found: %s", p)
		}
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Queries))
	for i := range s.Queries {
		if err := validateCase(i, &s.Queries[i]); err != nil {
			return err
		}
		name := s.Queries[i].Name
		if seen[name] {
			return fmt.Errorf("queries[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
	}
	return nil
}

func validateCase(index int, c *Case) error {
	if c.Name == "" {
		return fmt.Errorf("queries[%d]: name is required", index)
	}
	if c.Query.Kind == 0 {
		return fmt.Errorf("queries[%d] (%s): query is required", index, c.Name)
	}
	if c.Error != "" && (c.Expect != nil || c.Count != nil || c.Golden || c.Analyze != nil) {
		return fmt.Errorf("queries[%d] (%s): error cannot be combined with other expectations", index, c.Name)
	}
	if c.Error == "" && c.Expect == nil && c.Count == nil && !c.Golden && c.Analyze == nil {
		return fmt.Errorf("queries[%d] (%s): nothing to check, add expect, count, error, golden or analyze", index, c.Name)
	}
	if c.Count != nil && *c.Count < 0 {
		return fmt.Errorf("queries[%d] (%s): count must be non-negative", index, c.Name)
	}
	return nil
}
