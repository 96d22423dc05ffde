package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewrite/internal/engine"
	"github.com/roach88/rewrite/internal/store"
)

var cycleRulesDir = filepath.Join("..", "..", "testdata", "rules", "cycle")

// newTestRunCommand builds a run command with fixed run IDs and one job so
// IDs are assigned in argument order.
func newTestRunCommand(format string, ids ...string) (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: format},
		RunIDs:      engine.NewFixedGenerator(ids...),
	})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, buf
}

func decodeRunSummary(t *testing.T, data []byte) (CLIResponse, RunSummary) {
	t.Helper()
	var raw struct {
		CLIResponse
		Data RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	return raw.CLIResponse, raw.Data
}

func TestRunText(t *testing.T) {
	cmd, buf := newTestRunCommand("text", "run-1", "run-2")
	cmd.SetArgs([]string{"--jobs", "1", "(5 + 3)", "x^2 * x^3"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "(5 + 3) => 8  [terminated, 1 step]")
	assert.Contains(t, output, "x^2 * x^3 => x^5  [terminated, 2 steps]")
	assert.NotContains(t, output, "math.add")
}

func TestRunTextSteps(t *testing.T) {
	cmd, buf := newTestRunCommand("text", "run-1")
	cmd.SetArgs([]string{"--steps", "x^2 * x^3"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "  1. math.exp_mult: x^2 * x^3 -> x^(2+3)")
	assert.Contains(t, output, "  2. math.add: x^(2+3) -> x^5")
}

func TestRunJSON(t *testing.T) {
	cmd, buf := newTestRunCommand("json", "run-1", "run-2")
	cmd.SetArgs([]string{"--jobs", "1", "(5 + 3)", "qqq"})

	require.NoError(t, cmd.Execute())

	resp, summary := decodeRunSummary(t, buf.Bytes())
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, 2, summary.Terminated)
	assert.Equal(t, 0, summary.Aborted)
	require.Len(t, summary.Runs, 2)

	first := summary.Runs[0]
	assert.Equal(t, "run-1", first.RunID)
	assert.Equal(t, "(5 + 3)", first.Seed)
	assert.Equal(t, "terminated", first.State)
	assert.Equal(t, "8", first.Payload)
	assert.Equal(t, 1, first.Steps)
	assert.Equal(t, engine.DefaultMaxSteps, first.Limit)
	assert.Equal(t, []StepOutput{{RuleSet: "math", Rule: "add", Before: "(5 + 3)", After: "8"}}, first.History)

	second := summary.Runs[1]
	assert.Equal(t, "run-2", second.RunID)
	assert.Equal(t, "qqq", second.Payload)
	assert.Equal(t, 0, second.Steps)
	assert.Empty(t, second.History)
}

func TestRunPreservesArgumentOrder(t *testing.T) {
	cmd, buf := newTestRunCommand("json", "a", "b", "c", "d")
	cmd.SetArgs([]string{"(1 + 1)", "(2 + 2)", "(3 + 3)", "(4 + 4)"})

	require.NoError(t, cmd.Execute())

	_, summary := decodeRunSummary(t, buf.Bytes())
	var payloads []string
	for _, r := range summary.Runs {
		payloads = append(payloads, r.Payload)
	}
	assert.Equal(t, []string{"2", "4", "6", "8"}, payloads)
}

func TestRunStepLimitExitCode(t *testing.T) {
	cmd, buf := newTestRunCommand("json", "run-1")
	cmd.SetArgs([]string{"--rules", cycleRulesDir, "--limit", "10", "--guard", "value", "a"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 run(s) hit the step limit")

	resp, summary := decodeRunSummary(t, buf.Bytes())
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_BOUNDED_LOOP", resp.Error.Code)
	assert.Equal(t, 1, summary.Aborted)

	run := summary.Runs[0]
	assert.Equal(t, "aborted", run.State)
	assert.Equal(t, "a", run.Payload)
	assert.Equal(t, 10, run.Steps)
	assert.Len(t, run.History, 10)
	assert.Contains(t, run.Error, "exceeded step limit")
}

func TestRunGuardRunStopsCycle(t *testing.T) {
	cmd, buf := newTestRunCommand("text", "run-1")
	cmd.SetArgs([]string{"--rules", cycleRulesDir, "--limit", "10", "a"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "a => a  [terminated, 2 steps]")
}

func TestRunZeroLimit(t *testing.T) {
	cmd, buf := newTestRunCommand("json", "run-1")
	cmd.SetArgs([]string{"--limit", "0", "(5 + 3)"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, summary := decodeRunSummary(t, buf.Bytes())
	assert.Equal(t, "aborted", summary.Runs[0].State)
	assert.Equal(t, "(5 + 3)", summary.Runs[0].Payload)
	assert.Equal(t, 0, summary.Runs[0].Steps)
}

func TestRunCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no expressions", []string{}, "requires at least 1 arg"},
		{"bad guard", []string{"--guard", "global", "a"}, "invalid --guard"},
		{"negative limit", []string{"--limit=-1", "a"}, "--limit must be >= 0"},
		{"missing rules", []string{"--rules", "/nonexistent/rules", "a"}, "E005"},
		{"unknown builtin", []string{"--rules", "builtin:physics", "a"}, "unknown builtin rule table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := newTestRunCommand("text")
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunCommandErrorExitCode(t *testing.T) {
	cmd, _ := newTestRunCommand("text")
	cmd.SetArgs([]string{"--rules", "/nonexistent/rules", "a"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunLogsToDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	cmd, buf := newTestRunCommand("text", "run-1", "run-2")
	cmd.SetArgs([]string{"--db", dbPath, "--jobs", "1", "(5 + 3)", "x^2 * x^3"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Logged 2 run(s)")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	rec, err := st.ReadRun(context.Background(), "run-2")
	require.NoError(t, err)
	assert.Equal(t, "x^2 * x^3", rec.Seed)
	assert.Equal(t, "terminated", rec.State)
	assert.Equal(t, "x^5", rec.Value.Payload)
	assert.Equal(t, 2, rec.Steps)
	assert.Equal(t, []string{"exp_mult", "add"}, rec.Value.Rules())
	assert.Equal(t, "run", rec.Guard)
	assert.NotEmpty(t, rec.TraceHash)
}

func TestRunNormalizesSeeds(t *testing.T) {
	cmd, buf := newTestRunCommand("json", "run-1")
	// "e" followed by a combining acute accent composes to U+00E9.
	cmd.SetArgs([]string{"cafe\u0301"})

	require.NoError(t, cmd.Execute())

	_, summary := decodeRunSummary(t, buf.Bytes())
	assert.Equal(t, "caf\u00e9", summary.Runs[0].Seed)
}

func TestDemoCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewDemoCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "(5 + 3) => 8  [terminated, 1 step]")
	assert.Contains(t, output, "5! => 120  [terminated, 1 step]")
	assert.Contains(t, output, "x^2 * x^3 => x^5  [terminated, 2 steps]")
}

func TestRunHelpText(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	assert.Contains(t, cmd.Long, "Exit codes")
	assert.Contains(t, cmd.Long, "--db")
}
