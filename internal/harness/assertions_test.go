package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewrite/internal/ir"
)

func sampleHistory() []ir.Step {
	return ir.NewValue("x^2 * x^3").
		Then("math", "exp_mult", "x^(2+3)").
		Then("math", "add", "x^5").
		Then("other", "tidy", "x^5 ").
		History
}

func TestAssertTraceContains(t *testing.T) {
	h := sampleHistory()

	assert.NoError(t, assertTraceContains(h, Assertion{Rule: "add"}))
	assert.NoError(t, assertTraceContains(h, Assertion{Rule: "add", RuleSet: "math"}))

	err := assertTraceContains(h, Assertion{Rule: "add", RuleSet: "other"})
	require.Error(t, err)

	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Equal(t, AssertTraceContains, assertErr.Type)
	assert.Equal(t, "rule add from ruleset other", assertErr.Expected)
	assert.Equal(t, "not found in history", assertErr.Actual)
}

func TestAssertTraceOrder(t *testing.T) {
	h := sampleHistory()

	assert.NoError(t, assertTraceOrder(h, Assertion{Rules: []string{"exp_mult", "add"}}))
	assert.NoError(t, assertTraceOrder(h, Assertion{Rules: []string{"exp_mult", "tidy"}}), "gaps are allowed")

	err := assertTraceOrder(h, Assertion{Rules: []string{"add", "exp_mult"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exp_mult (position 2) not found after [add]")

	err = assertTraceOrder(h, Assertion{Rules: []string{"missing"}})
	require.Error(t, err)
}

func TestAssertTraceOrder_RepeatedRule(t *testing.T) {
	h := ir.NewValue("a").Then("c", "r", "b").History

	assert.NoError(t, assertTraceOrder(h, Assertion{Rules: []string{"r"}}))
	assert.Error(t, assertTraceOrder(h, Assertion{Rules: []string{"r", "r"}}), "one step cannot satisfy two positions")
}

func TestAssertTraceCount(t *testing.T) {
	h := sampleHistory()

	assert.NoError(t, assertTraceCount(h, Assertion{Rule: "add", Count: 1}))
	assert.NoError(t, assertTraceCount(h, Assertion{Rule: "never", Count: 0}))

	err := assertTraceCount(h, Assertion{Rule: "add", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fired 1 times")
}

func TestAssertionError_IncludesHistory(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "e",
		Actual:   "a",
		History:  sampleHistory()[:1],
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "[1] math.exp_mult: x^2 * x^3 => x^(2+3)")
}

func TestEvaluateAssertions(t *testing.T) {
	v := ir.Value{Payload: "x^5 ", History: sampleHistory()}

	errs := EvaluateAssertions(v, []Assertion{
		{Type: AssertTraceContains, Rule: "add"},
		{Type: AssertTraceCount, Rule: "add", Count: 3},
		{Type: "bogus"},
	})

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "trace_count")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}
