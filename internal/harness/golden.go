package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rewrite/internal/ir"
)

// Snapshot renders a result as canonical JSON for golden comparison.
//
// The snapshot holds each case's run ID, seed, state, step count, limit
// and final value with full history. Pass/fail flags are left out so a
// golden file records behavior, not expectations.
func Snapshot(result *Result) ([]byte, error) {
	cases := make([]any, len(result.Cases))
	for i, c := range result.Cases {
		cases[i] = map[string]any{
			"run_id": c.RunID,
			"seed":   c.Seed,
			"state":  c.State,
			"steps":  c.Steps,
			"limit":  c.Limit,
			"value":  c.Value,
		}
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario_name": result.Scenario,
		"cases":         cases,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
