package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewrite/internal/ir"
)

func TestSnapshot_Canonical(t *testing.T) {
	result := NewResult("snap")
	result.Add(CaseResult{
		RunID: "snap-001",
		Seed:  "(5 + 3)",
		State: "terminated",
		Value: ir.NewValue("(5 + 3)").Then("math", "add", "8"),
		Steps: 1,
		Limit: 100,
		Pass:  true,
	})

	data, err := Snapshot(result)
	require.NoError(t, err)

	want := `{"cases":[{"limit":100,"run_id":"snap-001","seed":"(5 + 3)","state":"terminated","steps":1,` +
		`"value":{"history":[{"after":"8","before":"(5 + 3)","rule":"add","ruleset":"math"}],"payload":"8"}}],` +
		`"scenario_name":"snap"}`
	assert.Equal(t, want, string(data))
}

func TestGoldenScenarios(t *testing.T) {
	for _, name := range []string{"arithmetic", "cycle_run", "cycle_value"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("..", "..", "testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors())
		})
	}
}
