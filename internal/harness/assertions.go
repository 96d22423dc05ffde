package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/rewrite/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string    // Assertion type for categorization
	Expected string    // Human-readable expected outcome
	Actual   string    // Human-readable actual outcome
	History  []ir.Step // Full history for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull history:\n")
	for i, step := range e.History {
		fmt.Fprintf(&buf, "  [%d] %s.%s: %s => %s\n", i+1, step.RuleSet, step.Rule, step.Before, step.After)
	}

	return buf.String()
}

func stepMatches(step ir.Step, ruleSet, rule string) bool {
	return step.Rule == rule && (ruleSet == "" || step.RuleSet == ruleSet)
}

// assertTraceContains checks that the history contains the rule.
func assertTraceContains(history []ir.Step, assertion Assertion) error {
	for _, step := range history {
		if stepMatches(step, assertion.RuleSet, assertion.Rule) {
			return nil
		}
	}

	expected := "rule " + assertion.Rule
	if assertion.RuleSet != "" {
		expected += " from ruleset " + assertion.RuleSet
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in history",
		History:  history,
	}
}

// assertTraceOrder checks that rules appear in the specified order.
// Rules don't need to be consecutive (intervening steps are allowed), and
// each expected rule must occur after the previous one's match.
func assertTraceOrder(history []ir.Step, assertion Assertion) error {
	pos := 0
	for i, want := range assertion.Rules {
		found := false
		for ; pos < len(history); pos++ {
			if history[pos].Rule == want {
				found = true
				pos++
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("rules in order: %v", assertion.Rules),
				Actual:   fmt.Sprintf("%s (position %d) not found after %v", want, i+1, assertion.Rules[:i]),
				History:  history,
			}
		}
	}
	return nil
}

// assertTraceCount checks that the rule fired exactly the specified
// number of times.
func assertTraceCount(history []ir.Step, assertion Assertion) error {
	count := 0
	for _, step := range history {
		if stepMatches(step, assertion.RuleSet, assertion.Rule) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("rule %s fired %d times", assertion.Rule, assertion.Count),
			Actual:   fmt.Sprintf("fired %d times", count),
			History:  history,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against a run's value.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(v ir.Value, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(v.History, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(v.History, assertion)
		case AssertTraceCount:
			err = assertTraceCount(v.History, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
