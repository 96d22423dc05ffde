package harness

import (
	"fmt"

	"github.com/roach88/rewrite/internal/ir"
)

// CaseResult is the outcome of one case, as read back from the run log.
type CaseResult struct {
	Name  string   `json:"name,omitempty"`
	RunID string   `json:"run_id"`
	Seed  string   `json:"seed"`
	State string   `json:"state"`
	Value ir.Value `json:"value"`
	Steps int      `json:"steps"`
	Limit int      `json:"limit"`

	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// Label names the case in failure messages.
func (c *CaseResult) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("seed %q", c.Seed)
}

// AddError adds a validation error and marks the case as failed.
func (c *CaseResult) AddError(err string) {
	c.Errors = append(c.Errors, err)
	c.Pass = false
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Cases holds one result per scenario case, in order.
	Cases []CaseResult `json:"cases"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Cases:    []CaseResult{},
	}
}

// Add appends a case result, failing the scenario if the case failed.
func (r *Result) Add(c CaseResult) {
	r.Cases = append(r.Cases, c)
	if !c.Pass {
		r.Pass = false
	}
}

// Errors returns every case error prefixed with its case label.
func (r *Result) Errors() []string {
	var errs []string
	for i := range r.Cases {
		c := &r.Cases[i]
		for _, e := range c.Errors {
			errs = append(errs, c.Label()+": "+e)
		}
	}
	return errs
}
