package compiler

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/roach88/rewrite/internal/rule"
)

// Validation error codes (E100-E199)
const (
	// RuleSet errors (E100-E109)
	ErrRuleSetNameEmpty = "E101" // ruleset name is required
	ErrRuleSetDuplicate = "E102" // duplicate ruleset name
	ErrRuleSetNoRules   = "E103" // ruleset has no rules

	// Rule errors (E110-E119)
	ErrRuleNameEmpty      = "E110" // rule name is required
	ErrRuleDuplicate      = "E111" // duplicate rule name in table
	ErrProducerMissing    = "E112" // neither template nor compute given
	ErrProducerAmbiguous  = "E113" // both template and compute given
	ErrUnknownComputation = "E114" // compute name not registered
	ErrInvalidPattern     = "E115" // pattern does not compile
	ErrInvalidTemplate    = "E116" // template is malformed or references missing groups
)

// ValidationError represents a rule table validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors collects every validation error of a table.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation error(s):\n%s", len(es), strings.Join(msgs, "\n"))
}

// Validate checks parsed specs against the table rules.
// Returns all errors found (does not fail-fast).
//
// Rule names must be unique across the whole table, not just within one
// RuleSet, so that a Step's rule name identifies its source entry.
func Validate(specs []RuleSetSpec, comps Computations) []ValidationError {
	var errs []ValidationError

	ruleSetNames := make(map[string]bool)
	ruleNames := make(map[string]string) // rule -> first field path

	for i, spec := range specs {
		field := fmt.Sprintf("rulesets[%d]", i)
		line := spec.Pos.Line()

		// E101: name is required
		if strings.TrimSpace(spec.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "ruleset name is required",
				Code:    ErrRuleSetNameEmpty,
				Line:    line,
			})
		}

		// E102: duplicate ruleset
		if spec.Name != "" && ruleSetNames[spec.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate ruleset name: %q", spec.Name),
				Code:    ErrRuleSetDuplicate,
				Line:    line,
			})
		}
		ruleSetNames[spec.Name] = true

		// E103: at least one rule
		if len(spec.Rules) == 0 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("ruleset %q has no rules", spec.Name),
				Code:    ErrRuleSetNoRules,
				Line:    line,
			})
		}

		for j, r := range spec.Rules {
			rf := fmt.Sprintf("%s.rules[%d]", field, j)
			errs = append(errs, validateRule(r, rf, ruleNames, comps)...)
		}
	}

	return errs
}

func validateRule(r RuleSpec, field string, seen map[string]string, comps Computations) []ValidationError {
	var errs []ValidationError
	line := r.Pos.Line()

	// E110 / E111: name
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   field + ".name",
			Message: "rule name is required",
			Code:    ErrRuleNameEmpty,
			Line:    line,
		})
	} else if first, ok := seen[r.Name]; ok {
		errs = append(errs, ValidationError{
			Field:   field + ".name",
			Message: fmt.Sprintf("duplicate rule name %q (first defined at %s)", r.Name, first),
			Code:    ErrRuleDuplicate,
			Line:    line,
		})
	} else {
		seen[r.Name] = field
	}

	// E115: pattern compiles
	m, err := rule.CompileMatcher(r.Pattern)
	if err != nil {
		errs = append(errs, ValidationError{
			Field:   field + ".pattern",
			Message: err.Error(),
			Code:    ErrInvalidPattern,
			Line:    line,
		})
	}

	// E112-E114, E116: producer
	hasCompute := r.Compute != ""
	switch {
	case r.HasTemplate && hasCompute:
		errs = append(errs, ValidationError{
			Field:   field,
			Message: "rule has both template and compute",
			Code:    ErrProducerAmbiguous,
			Line:    line,
		})
	case !r.HasTemplate && !hasCompute:
		errs = append(errs, ValidationError{
			Field:   field,
			Message: "rule needs a template or a compute",
			Code:    ErrProducerMissing,
			Line:    line,
		})
	case hasCompute:
		if comps[r.Compute] == nil {
			errs = append(errs, ValidationError{
				Field:   field + ".compute",
				Message: fmt.Sprintf("unknown computation %q", r.Compute),
				Code:    ErrUnknownComputation,
				Line:    line,
			})
		}
	case m != nil:
		// Only check template references when the pattern compiled.
		if _, err := rule.New(cmp.Or(r.Name, "unnamed"), r.Pattern, rule.Template{Source: r.Template}); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".template",
				Message: err.Error(),
				Code:    ErrInvalidTemplate,
				Line:    line,
			})
		}
	}

	return errs
}
