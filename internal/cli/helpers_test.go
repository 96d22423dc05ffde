package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// seedRunLog logs three runs and returns the database path:
//
//	run-1  (5 + 3)     terminated  [add]
//	run-2  x^2 * x^3   terminated  [exp_mult, add]
//	run-3  a           aborted     cycle rules, value guard, limit 4
func seedRunLog(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	cmd, _ := newTestRunCommand("text", "run-1", "run-2")
	cmd.SetArgs([]string{"--db", dbPath, "--jobs", "1", "(5 + 3)", "x^2 * x^3"})
	require.NoError(t, cmd.Execute())

	cmd, _ = newTestRunCommand("text", "run-3")
	cmd.SetArgs([]string{"--db", dbPath, "--rules", cycleRulesDir, "--guard", "value", "--limit", "4", "a"})
	err := cmd.Execute()
	require.Error(t, err)
	require.Equal(t, ExitFailure, GetExitCode(err))

	return dbPath
}
