package ir

import (
	"slices"

	"golang.org/x/text/unicode/norm"
)

// Step records one rewrite: which rule of which rule set turned Before
// into After.
type Step struct {
	RuleSet string `json:"ruleset"`
	Rule    string `json:"rule"`
	Before  string `json:"before"`
	After   string `json:"after"`
}

// Value is a payload plus the ordered history of steps that produced it.
//
// Values are never modified in place. Then returns a new Value whose
// history shares no backing array with the receiver, so a Value handed
// to a caller can never observe later steps.
type Value struct {
	Payload string `json:"payload"`
	History []Step `json:"history"`
}

// NewValue creates a seed value with an empty history.
func NewValue(payload string) Value {
	return Value{Payload: payload, History: []Step{}}
}

// Then returns the value reached by applying rule from ruleSet to v.
// The receiver is left untouched.
func (v Value) Then(ruleSet, rule, after string) Value {
	history := make([]Step, len(v.History), len(v.History)+1)
	copy(history, v.History)
	history = append(history, Step{
		RuleSet: ruleSet,
		Rule:    rule,
		Before:  v.Payload,
		After:   after,
	})
	return Value{Payload: after, History: history}
}

// Len returns the number of steps recorded in the history.
func (v Value) Len() int {
	return len(v.History)
}

// Seed returns the payload the history started from.
// For a value with no history this is the payload itself.
func (v Value) Seed() string {
	if len(v.History) == 0 {
		return v.Payload
	}
	return v.History[0].Before
}

// Rules returns the rule names of the history in step order.
func (v Value) Rules() []string {
	names := make([]string, len(v.History))
	for i, s := range v.History {
		names[i] = s.Rule
	}
	return names
}

// Equal reports whether two values have the same payload and history.
func (v Value) Equal(other Value) bool {
	return v.Payload == other.Payload && slices.Equal(v.History, other.History)
}

// SameContent reports whether two values carry the same payload,
// regardless of how they were reached.
func (v Value) SameContent(other Value) bool {
	return v.Payload == other.Payload
}

// NormalizePayload returns the NFC form of a payload.
//
// Rule tables are written in NFC; seeds typed at a terminal may arrive
// decomposed (e.g. a combining accent), which would never match.
func NormalizePayload(s string) string {
	return norm.NFC.String(s)
}
