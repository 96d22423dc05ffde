package engine

import (
	"fmt"

	"github.com/roach88/rewrite/internal/ir"
	"github.com/roach88/rewrite/internal/rule"
)

// RuleSet is an ordered, immutable collection of rules. Registration order
// is priority order: the first matching rule wins.
//
// A RuleSet carries no per-run state. The "already attempted" markers live
// in Attempts, owned by the Sequencer, so one RuleSet can serve many runs
// from many goroutines at once.
type RuleSet struct {
	name  string
	rules []rule.Rule
}

// Builder accumulates rules and freezes them into a RuleSet.
type Builder struct {
	name  string
	rules []rule.Rule
}

// NewBuilder starts a RuleSet with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Add appends rules in priority order.
func (b *Builder) Add(rules ...rule.Rule) *Builder {
	b.rules = append(b.rules, rules...)
	return b
}

// Build validates the accumulated rules and returns the frozen RuleSet.
// Rule names must be unique within the set.
func (b *Builder) Build() (*RuleSet, error) {
	if b.name == "" {
		return nil, fmt.Errorf("ruleset name is required")
	}

	seen := make(map[string]int, len(b.rules))
	for i, r := range b.rules {
		if r.Matcher() == nil {
			return nil, fmt.Errorf("ruleset %s: rule %d is not initialized", b.name, i)
		}
		if prev, ok := seen[r.Name()]; ok {
			return nil, fmt.Errorf("ruleset %s: duplicate rule name %q at positions %d and %d",
				b.name, r.Name(), prev, i)
		}
		seen[r.Name()] = i
	}

	// Copy so later Add calls cannot reorder a built set.
	rules := make([]rule.Rule, len(b.rules))
	copy(rules, b.rules)

	return &RuleSet{name: b.name, rules: rules}, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *RuleSet {
	rs, err := b.Build()
	if err != nil {
		panic(err)
	}
	return rs
}

// Name returns the RuleSet name.
func (rs *RuleSet) Name() string { return rs.name }

// Len returns the number of rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Rules returns a copy of the rules in priority order.
func (rs *RuleSet) Rules() []rule.Rule {
	out := make([]rule.Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Match returns the first rule that matches payload, ignoring attempts.
func (rs *RuleSet) Match(payload string) (rule.Rule, bool) {
	for _, r := range rs.rules {
		if r.Matches(payload) {
			return r, true
		}
	}
	return rule.Rule{}, false
}

// Applicable reports whether some rule matches v and the RuleSet has not
// already been attempted on v's payload.
func (rs *RuleSet) Applicable(v ir.Value, attempts *Attempts) bool {
	if attempts.Seen(rs.name, v.Payload) {
		return false
	}
	_, ok := rs.Match(v.Payload)
	return ok
}

// Apply rewrites v with the first matching rule and records the attempt.
// It returns a new Value with one more Step; v itself is never modified.
// ok is false when the RuleSet is not applicable.
func (rs *RuleSet) Apply(v ir.Value, attempts *Attempts) (ir.Value, bool) {
	if attempts.Seen(rs.name, v.Payload) {
		return v, false
	}
	for _, r := range rs.rules {
		out, ok := r.Apply(v.Payload)
		if !ok {
			continue
		}
		attempts.Record(rs.name, v.Payload)
		return v.Then(rs.name, r.Name(), out), true
	}
	return v, false
}
