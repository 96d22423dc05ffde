package engine

import (
	"fmt"

	"github.com/roach88/rewrite/internal/ir"
)

// ReplayMismatchError reports the first recorded step that does not
// reproduce.
type ReplayMismatchError struct {
	Index int    // zero-based step index
	Field string // "ruleset", "rule", "before" or "after"
	Want  string // recorded
	Got   string // recomputed
}

// Error implements the error interface.
func (e *ReplayMismatchError) Error() string {
	return fmt.Sprintf("replay diverged at step %d: %s recorded %q, recomputed %q",
		e.Index, e.Field, e.Want, e.Got)
}

// Verify recomputes a recorded history against ruleSets and reports the
// first divergence.
//
// Rewriting is a pure function of (payload, RuleSets), so a history
// produced by the same RuleSets always verifies. Each step is checked
// independently: the named RuleSet's first matching rule must be the
// recorded rule, and applying it to Before must yield After. Attempt
// markers are not replayed; they decide which RuleSet runs, never what it
// produces.
func Verify(v ir.Value, ruleSets []*RuleSet) error {
	byName := make(map[string]*RuleSet, len(ruleSets))
	for _, rs := range ruleSets {
		byName[rs.Name()] = rs
	}

	payload := v.Seed()
	for i, step := range v.History {
		if step.Before != payload {
			return &ReplayMismatchError{Index: i, Field: "before", Want: step.Before, Got: payload}
		}

		rs, ok := byName[step.RuleSet]
		if !ok {
			return &ReplayMismatchError{Index: i, Field: "ruleset", Want: step.RuleSet}
		}

		next, applied := rs.Apply(ir.NewValue(payload), NewAttempts())
		if !applied {
			return &ReplayMismatchError{Index: i, Field: "rule", Want: step.Rule}
		}
		got := next.History[0]
		if got.Rule != step.Rule {
			return &ReplayMismatchError{Index: i, Field: "rule", Want: step.Rule, Got: got.Rule}
		}
		if got.After != step.After {
			return &ReplayMismatchError{Index: i, Field: "after", Want: step.After, Got: got.After}
		}
		payload = got.After
	}

	if payload != v.Payload {
		return &ReplayMismatchError{Index: len(v.History), Field: "after", Want: v.Payload, Got: payload}
	}
	return nil
}
