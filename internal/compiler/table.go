package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rewrite/internal/engine"
	"github.com/roach88/rewrite/internal/rule"
)

// Computations maps the compute names used in a rule table to Go
// functions.
type Computations map[string]rule.ComputeFunc

// RuleSetSpec is one parsed, not yet compiled, RuleSet of a table.
type RuleSetSpec struct {
	Name  string
	Rules []RuleSpec
	Pos   token.Pos
}

// RuleSpec is one parsed rule entry.
//
// Exactly one of Template and Compute is set in a valid entry;
// HasTemplate distinguishes an empty template from a missing one.
type RuleSpec struct {
	Topic       string
	Name        string
	Pattern     string
	Template    string
	HasTemplate bool
	Compute     string
	Pos         token.Pos
}

// Table is a compiled rule table.
type Table struct {
	RuleSets []*engine.RuleSet
	Specs    []RuleSetSpec
}

// Count returns the total number of rules across all RuleSets.
func (t *Table) Count() int {
	n := 0
	for _, rs := range t.RuleSets {
		n += rs.Len()
	}
	return n
}

// Lookup returns the spec for a rule by RuleSet and rule name.
func (t *Table) Lookup(ruleSet, name string) (RuleSpec, bool) {
	for _, rs := range t.Specs {
		if rs.Name != ruleSet {
			continue
		}
		for _, r := range rs.Rules {
			if r.Name == name {
				return r, true
			}
		}
	}
	return RuleSpec{}, false
}

// CompileTable parses a CUE rule table, validates it, and builds the
// RuleSets it declares. The table shape is:
//
//	rulesets: [{
//		name: "math"
//		groups: [{
//			topic: "arithmetic"
//			rules: [{name: "add", pattern: #"\((\d+)\s*\+\s*(\d+)\)"#, compute: "add"}]
//		}]
//	}]
//
// A RuleSet may list rules directly under rules: instead of groups:, or
// both; grouped rules come first. All validation errors are reported
// together as ValidationErrors.
func CompileTable(v cue.Value, comps Computations) (*Table, error) {
	specs, err := ParseTable(v)
	if err != nil {
		return nil, err
	}

	if errs := Validate(specs, comps); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return Build(specs, comps)
}

// Build compiles validated specs into RuleSets.
func Build(specs []RuleSetSpec, comps Computations) (*Table, error) {
	table := &Table{Specs: specs}
	for _, spec := range specs {
		b := engine.NewBuilder(spec.Name)
		for _, rs := range spec.Rules {
			r, err := rule.New(rs.Name, rs.Pattern, producerFor(rs, comps))
			if err != nil {
				return nil, &CompileError{
					Field:   spec.Name + "." + rs.Name,
					Message: err.Error(),
					Pos:     rs.Pos,
				}
			}
			b.Add(r)
		}
		built, err := b.Build()
		if err != nil {
			return nil, &CompileError{Field: spec.Name, Message: err.Error(), Pos: spec.Pos}
		}
		table.RuleSets = append(table.RuleSets, built)
	}
	return table, nil
}

func producerFor(rs RuleSpec, comps Computations) rule.Producer {
	if rs.HasTemplate {
		return rule.Template{Source: rs.Template}
	}
	return rule.Computed{Name: rs.Compute, Fn: comps[rs.Compute]}
}

// ParseTable extracts RuleSet specs from a CUE value without compiling
// any patterns.
func ParseTable(v cue.Value) ([]RuleSetSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	listVal := v.LookupPath(cue.ParsePath("rulesets"))
	if !listVal.Exists() {
		return nil, &CompileError{
			Field:   "rulesets",
			Message: "rulesets is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []RuleSetSpec
	for iter.Next() {
		spec, err := parseRuleSet(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	if len(specs) == 0 {
		return nil, &CompileError{
			Field:   "rulesets",
			Message: "at least one ruleset is required",
			Pos:     listVal.Pos(),
		}
	}
	return specs, nil
}

func parseRuleSet(v cue.Value) (RuleSetSpec, error) {
	spec := RuleSetSpec{Pos: v.Pos()}

	name, _, err := stringField(v, "name", true)
	if err != nil {
		return spec, err
	}
	spec.Name = name

	groupsVal := v.LookupPath(cue.ParsePath("groups"))
	if groupsVal.Exists() {
		iter, err := groupsVal.List()
		if err != nil {
			return spec, formatCUEError(err)
		}
		for iter.Next() {
			group := iter.Value()
			topic, _, err := stringField(group, "topic", false)
			if err != nil {
				return spec, err
			}
			rules, err := parseRules(group, topic)
			if err != nil {
				return spec, err
			}
			spec.Rules = append(spec.Rules, rules...)
		}
	}

	rules, err := parseRules(v, "")
	if err != nil {
		return spec, err
	}
	spec.Rules = append(spec.Rules, rules...)

	return spec, nil
}

// parseRules reads the optional rules list of v.
func parseRules(v cue.Value, topic string) ([]RuleSpec, error) {
	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, nil
	}

	iter, err := rulesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rules []RuleSpec
	for iter.Next() {
		r, err := parseRule(iter.Value(), topic)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func parseRule(v cue.Value, topic string) (RuleSpec, error) {
	r := RuleSpec{Topic: topic, Pos: v.Pos()}

	var err error
	if r.Name, _, err = stringField(v, "name", true); err != nil {
		return r, err
	}
	if r.Pattern, _, err = stringField(v, "pattern", true); err != nil {
		return r, err
	}
	if r.Template, r.HasTemplate, err = stringField(v, "template", false); err != nil {
		return r, err
	}
	if r.Compute, _, err = stringField(v, "compute", false); err != nil {
		return r, err
	}
	return r, nil
}

// stringField reads a string field. Missing optional fields return
// ("", false, nil).
func stringField(v cue.Value, field string, required bool) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		if required {
			return "", false, &CompileError{
				Field:   field,
				Message: field + " is required",
				Pos:     v.Pos(),
			}
		}
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be a string: %v", err),
			Pos:     fv.Pos(),
		}
	}
	return s, true, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
