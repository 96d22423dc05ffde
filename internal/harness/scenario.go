package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rewrite/internal/engine"
)

// BuiltinMath selects the embedded math rule table.
const BuiltinMath = "builtin:math"

// Scenario defines a rewrite test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden
	// file and prefixes run IDs.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules selects the rule table: BuiltinMath or a path to a CUE file
	// or directory.
	Rules string `yaml:"rules"`

	// MaxSteps is the per-run step limit. Nil means engine.DefaultMaxSteps.
	MaxSteps *int `yaml:"max_steps,omitempty"`

	// Guard is the guard scope, "run" (default) or "value".
	Guard string `yaml:"guard,omitempty"`

	// Cases are the seeds to rewrite, in order.
	Cases []Case `yaml:"cases"`
}

// Case is one seed and what its run must produce.
type Case struct {
	// Name is optional; failures are reported by seed when it is empty.
	Name string `yaml:"name,omitempty"`

	// Seed is the initial payload.
	Seed string `yaml:"seed"`

	// Expect checks the final outcome. If nil, only assertions run.
	Expect *Expect `yaml:"expect,omitempty"`

	// Assertions validate the history.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect specifies the expected outcome of a run. Unset fields are not
// checked.
type Expect struct {
	// State is "terminated" or "aborted".
	State string `yaml:"state,omitempty"`

	// Payload is the final payload.
	Payload *string `yaml:"payload,omitempty"`

	// Steps is the number of rewrite steps.
	Steps *int `yaml:"steps,omitempty"`

	// Rules is the exact rule sequence of the history. An explicit empty
	// list asserts that nothing fired.
	Rules []string `yaml:"rules,omitempty"`
}

// Assertion validates a run's history.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check a rule appears in the history
	// - "trace_order": Check rules appear in order
	// - "trace_count": Check a rule appears exactly N times
	Type string `yaml:"type"`

	// Rule is the rule name (used by trace_contains, trace_count).
	Rule string `yaml:"rule,omitempty"`

	// RuleSet optionally restricts Rule to one RuleSet.
	RuleSet string `yaml:"ruleset,omitempty"`

	// Rules is the expected rule order (used by trace_order).
	Rules []string `yaml:"rules,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// Limit returns the scenario's step limit.
func (s *Scenario) Limit() int {
	if s.MaxSteps == nil {
		return engine.DefaultMaxSteps
	}
	return *s.MaxSteps
}

// LoadScenario reads and parses a scenario YAML file.
// Relative rule table paths are resolved against the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving a relative rule table path against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Rules != "" && !strings.HasPrefix(scenario.Rules, "builtin:") && !filepath.IsAbs(scenario.Rules) && basePath != "" {
		scenario.Rules = filepath.Join(basePath, scenario.Rules)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML without resolving paths or
// validating.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Rules == "" {
		return fmt.Errorf("rules is required")
	}

	if strings.HasPrefix(s.Rules, "builtin:") {
		if s.Rules != BuiltinMath {
			return fmt.Errorf("unknown builtin rule table %q", s.Rules)
		}
	} else if _, err := os.Stat(s.Rules); os.IsNotExist(err) {
		return fmt.Errorf("rule table not found: %s", s.Rules)
	}

	if s.MaxSteps != nil && *s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}

	if _, err := engine.ParseGuardScope(s.Guard); err != nil {
		return fmt.Errorf("guard: %w", err)
	}

	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	for i, c := range s.Cases {
		if c.Seed == "" {
			return fmt.Errorf("cases[%d]: seed is required", i)
		}
		if c.Expect != nil {
			switch c.Expect.State {
			case "", "terminated", "aborted":
			default:
				return fmt.Errorf("cases[%d].expect: state must be terminated or aborted, got %q", i, c.Expect.State)
			}
			if c.Expect.Steps != nil && *c.Expect.Steps < 0 {
				return fmt.Errorf("cases[%d].expect: steps must be non-negative", i)
			}
		}
		for j, assertion := range c.Assertions {
			if err := validateAssertion(i, j, &assertion); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(caseIndex, index int, a *Assertion) error {
	prefix := fmt.Sprintf("cases[%d].assertions[%d]", caseIndex, index)
	if a.Type == "" {
		return fmt.Errorf("%s: type is required", prefix)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Rule == "" {
			return fmt.Errorf("%s: rule is required for trace_contains", prefix)
		}
	case AssertTraceOrder:
		if len(a.Rules) == 0 {
			return fmt.Errorf("%s: rules list is required for trace_order", prefix)
		}
	case AssertTraceCount:
		if a.Rule == "" {
			return fmt.Errorf("%s: rule is required for trace_count", prefix)
		}
		if a.Count < 0 {
			return fmt.Errorf("%s: count must be non-negative for trace_count", prefix)
		}
	default:
		return fmt.Errorf("%s: unknown assertion type %q", prefix, a.Type)
	}

	return nil
}
