package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/rewrite/internal/engine"
	"github.com/roach88/rewrite/internal/mathrules"
)

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{
		RootOptions: rootOpts,
		Rules:       BuiltinRules,
		Guard:       engine.GuardScopeRun.String(),
	}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Rewrite the built-in demonstration expressions",
		Long: `Rewrite a few expressions per topic of the built-in math table and
print each result. Accepts the same output flags as run.

Examples:
  rewrite demo
  rewrite demo --steps
  rewrite demo --db ./runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewrite(opts, mathrules.DemoExpressions, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", engine.DefaultMaxSteps, "maximum rewrite steps per run")
	cmd.Flags().StringVar(&opts.Database, "db", "", "append runs to this SQLite run log")
	cmd.Flags().BoolVar(&opts.Steps, "steps", false, "print every rewrite step")

	return cmd
}
