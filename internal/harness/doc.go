// Package harness runs rewrite scenarios as executable contract tests.
//
// A scenario names a rule table, run settings, and a list of seeds with
// their expected outcomes. The harness rewrites every seed with the real
// engine, logs each run to an isolated in-memory run log, reads it back,
// and checks expectations and assertions against the logged record.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	rules: builtin:math        # or a path to a CUE rule table
//	max_steps: 100             # optional, default 100
//	guard: run                 # optional, run or value
//	cases:
//	  - seed: "(5 + 3)"
//	    expect:
//	      state: terminated
//	      payload: "8"
//	      steps: 1
//	      rules: [add]
//	    assertions:
//	      - type: trace_contains
//	        rule: add
//
// Relative rule table paths are resolved against the scenario file's
// directory.
//
// # Assertion Types
//
//   - trace_contains: a rule appears in the history (optionally from a given RuleSet)
//   - trace_order: rules appear in the given order, not necessarily adjacent
//   - trace_count: a rule appears exactly N times
//
// # Deterministic Testing
//
// Run IDs are fixed per case (<scenario>-001, <scenario>-002, ...), so two
// runs of a scenario produce byte-identical golden snapshots.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/arithmetic.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, err := range result.Errors() {
//	        log.Println(err)
//	    }
//	}
package harness
