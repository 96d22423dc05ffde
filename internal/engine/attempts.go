package engine

import "github.com/roach88/rewrite/internal/ir"

// GuardScope selects how long an attempted marker stays in effect.
type GuardScope int

const (
	// GuardScopeRun keeps markers for the whole run. A RuleSet never fires
	// twice on the same payload, so any cycle through identical payloads
	// stops as soon as it closes.
	GuardScopeRun GuardScope = iota

	// GuardScopeValue clears markers after every step, so each new value
	// starts clean. Cycles then run until the step limit.
	GuardScopeValue
)

// String returns the flag spelling of the scope.
func (g GuardScope) String() string {
	switch g {
	case GuardScopeRun:
		return "run"
	case GuardScopeValue:
		return "value"
	default:
		return "unknown"
	}
}

// ParseGuardScope parses "run" or "value".
func ParseGuardScope(s string) (GuardScope, error) {
	switch s {
	case "run", "":
		return GuardScopeRun, nil
	case "value":
		return GuardScopeValue, nil
	default:
		return 0, &RuntimeError{
			Code:    ErrCodeInvalidGuard,
			Message: "unknown guard scope " + s + " (want run or value)",
		}
	}
}

// Attempts records which (RuleSet, payload) pairs have already been tried
// during one run.
//
// Payloads are keyed by content hash, never by Value identity or history:
// two values with the same text are the same for loop detection.
//
// Attempts is owned by a single Sequencer and is not safe for concurrent
// use.
type Attempts struct {
	marks map[string]map[string]bool // map[ruleset]map[payload_hash]bool
}

// NewAttempts creates an empty marker set.
func NewAttempts() *Attempts {
	return &Attempts{marks: make(map[string]map[string]bool)}
}

// Seen reports whether ruleSet has been attempted on payload.
func (a *Attempts) Seen(ruleSet, payload string) bool {
	if a.marks[ruleSet] == nil {
		return false
	}
	return a.marks[ruleSet][ir.PayloadHash(payload)]
}

// Record marks ruleSet as attempted on payload.
func (a *Attempts) Record(ruleSet, payload string) {
	if a.marks[ruleSet] == nil {
		a.marks[ruleSet] = make(map[string]bool)
	}
	a.marks[ruleSet][ir.PayloadHash(payload)] = true
}

// Clear forgets every marker.
func (a *Attempts) Clear() {
	clear(a.marks)
}

// Len returns the number of RuleSets with at least one marker.
func (a *Attempts) Len() int {
	return len(a.marks)
}

// LenFor returns the number of payloads marked for ruleSet.
func (a *Attempts) LenFor(ruleSet string) int {
	return len(a.marks[ruleSet])
}
