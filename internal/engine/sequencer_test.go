package engine

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewrite/internal/ir"
	"github.com/roach88/rewrite/internal/rule"
)

func TestRun_SingleFold(t *testing.T) {
	res, err := Run(context.Background(), "(5 + 3)", []*RuleSet{mathSet()}, 10)
	require.NoError(t, err)

	assert.Equal(t, Terminated, res.State)
	assert.Equal(t, "8", res.Value.Payload)
	assert.Equal(t, 1, res.Steps)
	assert.Equal(t, []ir.Step{{RuleSet: "math", Rule: "add", Before: "(5 + 3)", After: "8"}}, res.Value.History)
}

func TestRun_ExponentRule(t *testing.T) {
	t.Run("template only", func(t *testing.T) {
		rs := NewBuilder("algebra").Add(expMultRule()).MustBuild()

		res, err := Run(context.Background(), "x^2 * x^3", []*RuleSet{rs}, 10)
		require.NoError(t, err)
		assert.Equal(t, Terminated, res.State)
		assert.Equal(t, "x^(2+3)", res.Value.Payload)
		assert.Equal(t, 1, res.Steps)
	})

	t.Run("with fold", func(t *testing.T) {
		rs := NewBuilder("algebra").Add(expMultRule(), addRule()).MustBuild()

		res, err := Run(context.Background(), "x^2 * x^3", []*RuleSet{rs}, 10)
		require.NoError(t, err)
		assert.Equal(t, Terminated, res.State)
		assert.Equal(t, "x^5", res.Value.Payload)
		assert.Equal(t, 2, res.Steps)
		assert.Equal(t, []string{"exp_mult", "add"}, res.Value.Rules())
	})
}

func TestRun_NothingApplies(t *testing.T) {
	res, err := Run(context.Background(), "qqq", []*RuleSet{mathSet()}, 10)
	require.NoError(t, err)

	assert.Equal(t, Terminated, res.State)
	assert.Equal(t, "qqq", res.Value.Payload)
	assert.Equal(t, 0, res.Steps)
	assert.Empty(t, res.Value.History)
}

func TestRun_CyclicPairAbortsUnderValueGuard(t *testing.T) {
	res, err := Run(context.Background(), "a", []*RuleSet{cyclicPair()}, 10,
		WithGuardScope(GuardScopeValue),
		WithRunIDGenerator(NewFixedGenerator("run-cycle")),
	)
	require.Error(t, err)
	assert.True(t, IsBoundedLoop(err))

	var be *BoundedLoopError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "run-cycle", be.RunID)
	assert.Equal(t, 10, be.Steps)
	assert.Equal(t, 10, be.Limit)
	assert.Len(t, be.Last.History, 10, "history is never truncated")

	assert.Equal(t, Aborted, res.State)
	assert.Equal(t, 10, res.Steps)
	assert.Len(t, res.Value.History, 10)
	assert.Equal(t, "a", res.Value.Payload)
	assert.True(t, be.Last.Equal(res.Value))
}

func TestRun_CyclicPairStopsUnderRunGuard(t *testing.T) {
	res, err := Run(context.Background(), "a", []*RuleSet{cyclicPair()}, 10)
	require.NoError(t, err)

	// a -> b -> a; the RuleSet was already attempted on "a".
	assert.Equal(t, Terminated, res.State)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, "a", res.Value.Payload)
}

func TestRun_NoCrossRuleSetSuppression(t *testing.T) {
	first := NewBuilder("first").Add(literal("a_to_b", `^a$`, "b")).MustBuild()
	second := NewBuilder("second").Add(literal("b_to_a", `^b$`, "a")).MustBuild()

	res, err := Run(context.Background(), "a", []*RuleSet{first, second}, 10)
	require.NoError(t, err)

	assert.Equal(t, Terminated, res.State)
	assert.Equal(t, []ir.Step{
		{RuleSet: "first", Rule: "a_to_b", Before: "a", After: "b"},
		{RuleSet: "second", Rule: "b_to_a", Before: "b", After: "a"},
	}, res.Value.History)
}

func TestRun_RuleSetPriority(t *testing.T) {
	early := NewBuilder("early").Add(literal("to_early", `x`, "E")).MustBuild()
	late := NewBuilder("late").Add(literal("to_late", `x`, "L")).MustBuild()

	res, err := Run(context.Background(), "x", []*RuleSet{early, late}, 10)
	require.NoError(t, err)
	assert.Equal(t, "E", res.Value.Payload)
	assert.Equal(t, "early", res.Value.History[0].RuleSet)
}

func TestRun_TerminationBound(t *testing.T) {
	rs := NewBuilder("count").Add(decRule()).MustBuild()

	t.Run("chain of exactly limit steps terminates", func(t *testing.T) {
		res, err := Run(context.Background(), "3", []*RuleSet{rs}, 3)
		require.NoError(t, err)
		assert.Equal(t, Terminated, res.State)
		assert.Equal(t, "0", res.Value.Payload)
		assert.Equal(t, 3, res.Steps)
	})

	t.Run("one step short aborts", func(t *testing.T) {
		res, err := Run(context.Background(), "3", []*RuleSet{rs}, 2)
		require.Error(t, err)
		assert.True(t, IsBoundedLoop(err))
		assert.Equal(t, Aborted, res.State)
		assert.Equal(t, "1", res.Value.Payload)
		assert.Equal(t, 2, res.Steps)
	})

	t.Run("zero limit", func(t *testing.T) {
		res, err := Run(context.Background(), "3", []*RuleSet{rs}, 0)
		require.Error(t, err)
		assert.Equal(t, Aborted, res.State)
		assert.Equal(t, 0, res.Steps)

		res, err = Run(context.Background(), "0", []*RuleSet{rs}, 0)
		require.NoError(t, err)
		assert.Equal(t, Terminated, res.State)
	})

	t.Run("steps never exceed limit", func(t *testing.T) {
		for limit := 0; limit <= 12; limit++ {
			res, _ := Run(context.Background(), "a", []*RuleSet{cyclicPair()}, limit,
				WithGuardScope(GuardScopeValue))
			assert.LessOrEqual(t, res.Steps, limit)
			assert.Len(t, res.Value.History, res.Steps)
		}
	})
}

func TestRun_Determinism(t *testing.T) {
	rs := []*RuleSet{NewBuilder("algebra").Add(expMultRule(), addRule()).MustBuild()}

	first, err := Run(context.Background(), "y^4 * y^1 + (2 + 2)", rs, 20)
	require.NoError(t, err)
	second, err := Run(context.Background(), "y^4 * y^1 + (2 + 2)", rs, 20)
	require.NoError(t, err)

	assert.True(t, first.Value.Equal(second.Value))
	assert.Equal(t, ir.MustTraceHash(first.Value), ir.MustTraceHash(second.Value))
}

func TestRun_HistoryCompleteness(t *testing.T) {
	rs := []*RuleSet{NewBuilder("algebra").Add(expMultRule(), addRule()).MustBuild()}

	res, err := Run(context.Background(), "x^2 * x^3 + (1 + 1)", rs, 20)
	require.NoError(t, err)
	require.NotEmpty(t, res.Value.History)

	h := res.Value.History
	assert.Equal(t, "x^2 * x^3 + (1 + 1)", h[0].Before)
	for i := 1; i < len(h); i++ {
		assert.Equal(t, h[i-1].After, h[i].Before, "step %d", i)
	}
	assert.Equal(t, res.Value.Payload, h[len(h)-1].After)
	assert.NoError(t, Verify(res.Value, rs))
}

func TestRun_ProgressLaw(t *testing.T) {
	// Under the run guard no (RuleSet, payload) pair is applied twice.
	rs := NewBuilder("loop").Add(
		literal("grow", `^x$`, "xx"),
		literal("shrink", `^xx$`, "x"),
	).MustBuild()

	res, err := Run(context.Background(), "x", []*RuleSet{rs}, 50)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, step := range res.Value.History {
		key := step.RuleSet + "\x00" + step.Before
		assert.False(t, seen[key], "pair applied twice: %s on %q", step.RuleSet, step.Before)
		seen[key] = true
	}
}

func TestRun_UndefinedSentinel(t *testing.T) {
	div := rule.MustNew("divide", `\((\d+)\s*/\s*(\d+)\)`, rule.Computed{
		Name: "divide",
		Fn: func(c rule.Captures) string {
			if b, _ := c.Int(2); b == 0 {
				return rule.Undefined
			}
			return "q"
		},
	})
	rs := NewBuilder("math").Add(div).MustBuild()

	res, err := Run(context.Background(), "(1 / 0)", []*RuleSet{rs}, 10)
	require.NoError(t, err)
	assert.Equal(t, Terminated, res.State)
	assert.Equal(t, rule.Undefined, res.Value.Payload)
}

func TestSequencer_Cancellation(t *testing.T) {
	t.Run("cancelled before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := Run(ctx, "3", []*RuleSet{NewBuilder("count").Add(decRule()).MustBuild()}, 10)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, Running, res.State)
		assert.Equal(t, "3", res.Value.Payload)
		assert.Equal(t, 0, res.Steps)
	})

	t.Run("cancelled mid run keeps last value", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		calls := 0
		tick := rule.MustNew("tick", `^([1-9]\d*)$`, rule.Computed{
			Name: "tick",
			Fn: func(c rule.Captures) string {
				calls++
				if calls == 2 {
					cancel()
				}
				n, _ := c.Int(1)
				return strconv.FormatInt(n-1, 10)
			},
		})
		rs := NewBuilder("count").Add(tick).MustBuild()

		seq, err := NewSequencer([]*RuleSet{rs})
		require.NoError(t, err)

		res, err := seq.Run(ctx, "5")
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, Running, res.State)
		assert.Equal(t, 2, res.Steps)
		assert.Equal(t, "3", res.Value.Payload)

		// The run resumes with a live context.
		state, err := seq.Step(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Running, state)
		assert.Equal(t, "2", seq.Result().Value.Payload)
	})
}

func TestSequencer_StepAbsorbing(t *testing.T) {
	seq, err := NewSequencer([]*RuleSet{mathSet()}, WithRunIDGenerator(fixedIDs(1)))
	require.NoError(t, err)
	require.NoError(t, seq.Start("(2 + 2)"))
	assert.Equal(t, "run-1", seq.RunID())

	state, err := seq.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Running, state)

	state, err = seq.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Terminated, state)

	for i := 0; i < 3; i++ {
		state, err = seq.Step(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Terminated, state)
	}
	assert.Equal(t, 1, seq.Result().Steps)
	assert.Equal(t, "4", seq.Result().Value.Payload)
}

func TestSequencer_AbortedIsAbsorbing(t *testing.T) {
	seq, err := NewSequencer([]*RuleSet{cyclicPair()}, WithMaxSteps(1), WithGuardScope(GuardScopeValue))
	require.NoError(t, err)

	_, err = seq.Run(context.Background(), "a")
	require.True(t, IsBoundedLoop(err))

	state, err := seq.Step(context.Background())
	assert.Equal(t, Aborted, state)
	assert.True(t, IsBoundedLoop(err))
	assert.Equal(t, 1, seq.Result().Steps)
}

func TestSequencer_Lifecycle(t *testing.T) {
	seq, err := NewSequencer([]*RuleSet{mathSet()})
	require.NoError(t, err)

	assert.Nil(t, seq.Result())
	_, err = seq.Step(context.Background())
	require.Error(t, err)

	_, err = seq.Run(context.Background(), "(1 + 1)")
	require.NoError(t, err)

	_, err = seq.Run(context.Background(), "(1 + 1)")
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeAlreadyStarted, re.Code)
}

func TestNewSequencer_Validation(t *testing.T) {
	tests := []struct {
		name     string
		ruleSets []*RuleSet
		opts     []Option
		code     RuntimeErrorCode
	}{
		{"no rulesets", nil, nil, ErrCodeNoRuleSets},
		{"nil ruleset", []*RuleSet{mathSet(), nil}, nil, ErrCodeNoRuleSets},
		{"duplicate names", []*RuleSet{mathSet(), mathSet()}, nil, ErrCodeDuplicateRuleSet},
		{"negative limit", []*RuleSet{mathSet()}, []Option{WithMaxSteps(-1)}, ErrCodeInvalidLimit},
		{"bad guard", []*RuleSet{mathSet()}, []Option{WithGuardScope(GuardScope(9))}, ErrCodeInvalidGuard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSequencer(tt.ruleSets, tt.opts...)
			var re *RuntimeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.code, re.Code)
			assert.True(t, IsConfigError(err))
			assert.False(t, IsBoundedLoop(err))
		})
	}
}

func TestRun_DefaultLimit(t *testing.T) {
	seq, err := NewSequencer([]*RuleSet{cyclicPair()}, WithGuardScope(GuardScopeValue))
	require.NoError(t, err)

	res, err := seq.Run(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, DefaultMaxSteps, res.Steps)
	assert.Equal(t, DefaultMaxSteps, res.Limit)
}

func TestBoundedLoopError_Wrapped(t *testing.T) {
	base := &BoundedLoopError{RunID: "r", Steps: 3, Limit: 3, Last: ir.NewValue("a")}
	wrapped := errors.Join(errors.New("context"), base)

	assert.True(t, IsBoundedLoop(wrapped))
	assert.Contains(t, base.Error(), "run r exceeded step limit")
	assert.Equal(t, ErrCodeBoundedLoop, base.RuntimeError())
}

func TestState_String(t *testing.T) {
	for _, s := range []State{Running, Terminated, Aborted} {
		parsed, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseState("paused")
	assert.Error(t, err)
}
