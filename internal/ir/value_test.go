package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValueHasEmptyHistory(t *testing.T) {
	v := NewValue("(5 + 3)")

	assert.Equal(t, "(5 + 3)", v.Payload)
	assert.NotNil(t, v.History)
	assert.Equal(t, 0, v.Len())
	assert.Equal(t, "(5 + 3)", v.Seed())
}

func TestThenAppendsStep(t *testing.T) {
	seed := NewValue("x^2 * x^3")

	next := seed.Then("math", "exp_mult", "x^(2+3)")

	require.Equal(t, 1, next.Len())
	assert.Equal(t, "x^(2+3)", next.Payload)
	assert.Equal(t, Step{RuleSet: "math", Rule: "exp_mult", Before: "x^2 * x^3", After: "x^(2+3)"}, next.History[0])
	assert.Equal(t, "x^2 * x^3", next.Seed())
}

func TestThenDoesNotMutateReceiver(t *testing.T) {
	seed := NewValue("a")
	first := seed.Then("rs", "r1", "b")

	// Two branches from the same value must not share a backing array.
	left := first.Then("rs", "r2", "c")
	right := first.Then("rs", "r3", "d")

	assert.Equal(t, 0, seed.Len())
	assert.Equal(t, 1, first.Len())
	assert.Equal(t, "r2", left.History[1].Rule)
	assert.Equal(t, "r3", right.History[1].Rule)
}

func TestHistoryChainsBeforeAfter(t *testing.T) {
	v := NewValue("a").
		Then("rs", "r1", "b").
		Then("rs", "r2", "c").
		Then("rs", "r3", "d")

	require.Equal(t, 3, v.Len())
	assert.Equal(t, "a", v.History[0].Before)
	for i := 1; i < v.Len(); i++ {
		assert.Equal(t, v.History[i-1].After, v.History[i].Before, "step %d", i)
	}
	assert.Equal(t, []string{"r1", "r2", "r3"}, v.Rules())
}

func TestEqualAndSameContent(t *testing.T) {
	viaOne := NewValue("a").Then("rs", "r1", "z")
	viaTwo := NewValue("b").Then("rs", "r2", "z")

	assert.True(t, viaOne.SameContent(viaTwo), "payload is the identity")
	assert.False(t, viaOne.Equal(viaTwo), "histories differ")
	assert.True(t, viaOne.Equal(NewValue("a").Then("rs", "r1", "z")))
}

func TestNormalizePayload(t *testing.T) {
	decomposed := "caf" + "é"
	assert.Equal(t, "café", NormalizePayload(decomposed))
	assert.Equal(t, "∫ x dx", NormalizePayload("∫ x dx"))
}
