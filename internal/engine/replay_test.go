package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewrite/internal/ir"
)

func TestVerify_ReproducesRun(t *testing.T) {
	rs := []*RuleSet{NewBuilder("algebra").Add(expMultRule(), addRule()).MustBuild()}

	res, err := Run(context.Background(), "x^2 * x^3", rs, 10)
	require.NoError(t, err)
	assert.NoError(t, Verify(res.Value, rs))
}

func TestVerify_EmptyHistory(t *testing.T) {
	assert.NoError(t, Verify(ir.NewValue("qqq"), []*RuleSet{mathSet()}))
}

func TestVerify_DetectsDivergence(t *testing.T) {
	rs := []*RuleSet{mathSet()}

	tests := []struct {
		name  string
		value ir.Value
		field string
	}{
		{
			name:  "wrong output",
			value: ir.NewValue("(5 + 3)").Then("math", "add", "9"),
			field: "after",
		},
		{
			name:  "wrong rule",
			value: ir.NewValue("(5 + 3)").Then("math", "subtract", "8"),
			field: "rule",
		},
		{
			name:  "unknown ruleset",
			value: ir.NewValue("(5 + 3)").Then("calculus", "add", "8"),
			field: "ruleset",
		},
		{
			name:  "rule no longer matches",
			value: ir.NewValue("qqq").Then("math", "add", "8"),
			field: "rule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.value, rs)
			var me *ReplayMismatchError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, 0, me.Index)
			assert.Equal(t, tt.field, me.Field)
		})
	}
}

func TestVerify_BrokenChain(t *testing.T) {
	v := ir.Value{
		Payload: "8",
		History: []ir.Step{{RuleSet: "math", Rule: "add", Before: "(5 + 3)", After: "8"},
			{RuleSet: "math", Rule: "add", Before: "(1 + 1)", After: "2"}},
	}

	err := Verify(v, []*RuleSet{mathSet()})
	var me *ReplayMismatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 1, me.Index)
	assert.Equal(t, "before", me.Field)
}
