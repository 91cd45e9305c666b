package harness

// Result is the outcome of running one scenario.
type Result struct {
	Scenario string `json:"scenario"`

	// Pass is true if every case passed.
	Pass bool `json:"pass"`

	Cases []CaseResult `json:"cases"`
}

// CaseResult is the outcome of one query case.
type CaseResult struct {
	Name string `json:"name"`
	Pass bool   `json:"pass"`

	// Found holds the names of the atoms the query found, sorted.
	// Atoms the dataset did not name are shown by handle.
	Found []string `json:"found,omitempty"`

	// Explain is the plan rendering with handles replaced by names.
	Explain string `json:"explain,omitempty"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result for the named scenario.
func NewResult(scenario string) *Result {
	return &Result{Scenario: scenario, Pass: true, Cases: []CaseResult{}}
}

// Add records a case and fails the result if the case failed.
func (r *Result) Add(c CaseResult) {
	c.Pass = len(c.Errors) == 0
	if !c.Pass {
		r.Pass = false
	}
	r.Cases = append(r.Cases, c)
}

// Errors returns every case failure prefixed with the case name.
func (r *Result) Errors() []string {
	var out []string
	for _, c := range r.Cases {
		for _, e := range c.Errors {
			out = append(out, c.Name+": "+e)
		}
	}
	return out
}

// AddError records an assertion failure.
func (c *CaseResult) AddError(err error) {
	c.Errors = append(c.Errors, err.Error())
}
