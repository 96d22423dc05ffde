package store

import (
	"fmt"
	"strings"
)

// Predicate is a filter over logged runs.
//
// This is a sealed interface - only types in this package implement it,
// so compilePredicate's type switch is exhaustive.
//
// Predicate types:
//   - StateIs: runs that ended in a given state
//   - SeedIs: runs started from a given seed
//   - UsedRule: runs whose history contains a given rule
//   - And: all predicates must hold
type Predicate interface {
	predicateNode()
}

// StateIs matches runs whose final state is State.
type StateIs struct {
	State string
}

// SeedIs matches runs started from Seed.
type SeedIs struct {
	Seed string
}

// UsedRule matches runs in which Rule fired at least once. RuleSet
// restricts the match to one rule set when non-empty.
type UsedRule struct {
	Rule    string
	RuleSet string
}

// And matches runs satisfying every predicate. An empty And matches all
// runs.
type And struct {
	Predicates []Predicate
}

func (StateIs) predicateNode()  {}
func (SeedIs) predicateNode()   {}
func (UsedRule) predicateNode() {}
func (And) predicateNode()      {}

// RunQuery selects runs for ListRuns.
type RunQuery struct {
	Filter Predicate // nil matches all runs
	Limit  int       // 0 means no limit
}

// runColumns is the column list shared by every runs query.
const runColumns = "id, seed, state, payload, steps, step_limit, guard, trace_hash, engine_version"

// compileRunQuery converts a RunQuery to parameterized SQL.
//
// MANDATORY: the result always ends in the deterministic ORDER BY.
// Values are never interpolated; every literal becomes a ? parameter.
func compileRunQuery(q RunQuery) (string, []any, error) {
	if q.Limit < 0 {
		return "", nil, fmt.Errorf("limit must be >= 0, got %d", q.Limit)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(runColumns)
	b.WriteString(" FROM runs")

	var params []any
	if q.Filter != nil {
		where, whereParams, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = whereParams
	}

	b.WriteString(" ORDER BY seq ASC, id COLLATE BINARY ASC")

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}

	return b.String(), params, nil
}

// compilePredicate compiles a Predicate to a WHERE clause fragment.
func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case StateIs:
		return "state = ?", []any{pred.State}, nil
	case *StateIs:
		return compilePredicate(*pred)
	case SeedIs:
		return "seed = ?", []any{pred.Seed}, nil
	case *SeedIs:
		return compilePredicate(*pred)
	case UsedRule:
		return compileUsedRule(pred)
	case *UsedRule:
		return compileUsedRule(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	case nil:
		return "1 = 1", nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileUsedRule(u UsedRule) (string, []any, error) {
	if u.Rule == "" {
		return "", nil, fmt.Errorf("UsedRule: rule name is required")
	}
	if u.RuleSet == "" {
		return "EXISTS (SELECT 1 FROM steps WHERE steps.run_id = runs.id AND steps.rule = ?)",
			[]any{u.Rule}, nil
	}
	return "EXISTS (SELECT 1 FROM steps WHERE steps.run_id = runs.id AND steps.rule = ? AND steps.ruleset = ?)",
		[]any{u.Rule, u.RuleSet}, nil
}

func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // vacuous truth
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, predParams, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		params = append(params, predParams...)
	}

	return strings.Join(parts, " AND "), params, nil
}
