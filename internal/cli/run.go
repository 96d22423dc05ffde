package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/rewrite/internal/engine"
	"github.com/roach88/rewrite/internal/ir"
	"github.com/roach88/rewrite/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Rules    string
	Limit    int
	Guard    string
	Database string
	Jobs     int
	Steps    bool

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// StepOutput is one history entry in command output.
type StepOutput struct {
	RuleSet string `json:"ruleset"`
	Rule    string `json:"rule"`
	Before  string `json:"before"`
	After   string `json:"after"`
}

// RunOutput is the outcome of one seed.
type RunOutput struct {
	RunID   string       `json:"run_id"`
	Seed    string       `json:"seed"`
	State   string       `json:"state"`
	Payload string       `json:"payload"`
	Steps   int          `json:"steps"`
	Limit   int          `json:"limit"`
	History []StepOutput `json:"history"`
	Error   string       `json:"error,omitempty"`
}

// RunSummary holds the overall run result.
type RunSummary struct {
	Runs       []RunOutput `json:"runs"`
	Terminated int         `json:"terminated"`
	Aborted    int         `json:"aborted"`
	Logged     int         `json:"logged"`

	showSteps bool // text output lists every step
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <expr>...",
		Short: "Rewrite expressions until no rule applies",
		Long: `Rewrite each expression with the rule table until no RuleSet applies
or the step limit is reached.

Expressions run independently and concurrently; output keeps argument
order. With --db every run and its steps are appended to the run log.

Exit codes:
  0 - Every run terminated
  1 - One or more runs hit the step limit
  2 - Command error (bad rules, database error, etc.)

Examples:
  rewrite run "(5 + 3)" "x^2 * x^3"
  rewrite run --steps "d/dx x^4"
  rewrite run --rules ./rules --limit 10 --guard value "a"
  rewrite run --db ./runs.db --format json "(2 ^ 10)"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewrite(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Rules, "rules", BuiltinRules, "rule table: builtin:math or a CUE file/directory")
	cmd.Flags().IntVar(&opts.Limit, "limit", engine.DefaultMaxSteps, "maximum rewrite steps per run")
	cmd.Flags().StringVar(&opts.Guard, "guard", engine.GuardScopeRun.String(), "loop guard scope (run|value)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "append runs to this SQLite run log")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", 0, "concurrent runs (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&opts.Steps, "steps", false, "print every rewrite step")

	return cmd
}

func runRewrite(opts *RunOptions, exprs []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	guard, err := engine.ParseGuardScope(opts.Guard)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --guard", err)
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--limit must be >= 0, got %d", opts.Limit))
	}

	table, err := LoadRules(opts.Rules)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}
	formatter.VerboseLog("Loaded %d rule(s) in %d ruleset(s) from %s", table.Count(), len(table.RuleSets), opts.Rules)

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}

	seeds := make([]string, len(exprs))
	for i, e := range exprs {
		seeds[i] = ir.NormalizePayload(e)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	batchOpts := []engine.BatchOption{
		engine.WithSequencerOptions(
			engine.WithMaxSteps(opts.Limit),
			engine.WithGuardScope(guard),
			engine.WithRunIDGenerator(runIDs),
		),
	}
	if opts.Jobs > 0 {
		batchOpts = append(batchOpts, engine.WithConcurrency(opts.Jobs))
	}

	results, err := engine.RunBatch(ctx, seeds, table.RuleSets, batchOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid run configuration", err)
	}

	summary := RunSummary{Runs: make([]RunOutput, 0, len(results)), showSteps: opts.Steps}
	var cancelled error
	for _, br := range results {
		out := newRunOutput(br)
		summary.Runs = append(summary.Runs, out)

		switch {
		case br.Err == nil:
			summary.Terminated++
		case engine.IsBoundedLoop(br.Err):
			summary.Aborted++
		default:
			cancelled = br.Err
		}

		if st != nil && br.Result != nil {
			inserted, err := logRun(ctx, st, br.Result, guard)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to log run", err)
			}
			if inserted {
				summary.Logged++
			}
		}
	}

	var failure *CLIError
	if summary.Aborted > 0 {
		failure = &CLIError{
			Code:    "E_BOUNDED_LOOP",
			Message: fmt.Sprintf("%d run(s) hit the step limit", summary.Aborted),
		}
	}
	if err := formatter.Emit(summary, failure); err != nil {
		return err
	}

	if cancelled != nil {
		return WrapExitError(ExitFailure, "run cancelled", cancelled)
	}
	if summary.Aborted > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d run(s) hit the step limit", summary.Aborted))
	}
	return nil
}

// logRun appends a finished run to the run log.
func logRun(ctx context.Context, st *store.Store, res *engine.Result, guard engine.GuardScope) (bool, error) {
	rec, err := store.NewRunRecord(res.RunID, res.State.String(), res.Value, res.Limit, guard.String())
	if err != nil {
		return false, err
	}
	// The run itself may have been cancelled; the log write still goes through.
	return st.WriteRun(context.WithoutCancel(ctx), rec)
}

func newRunOutput(br engine.BatchResult) RunOutput {
	out := RunOutput{Seed: br.Seed, History: []StepOutput{}}
	if br.Err != nil {
		out.Error = br.Err.Error()
	}
	if br.Result == nil {
		out.State = engine.Running.String()
		out.Payload = br.Seed
		return out
	}

	out.RunID = br.Result.RunID
	out.State = br.Result.State.String()
	out.Payload = br.Result.Value.Payload
	out.Steps = br.Result.Steps
	out.Limit = br.Result.Limit
	out.History = stepOutputs(br.Result.Value.History)
	return out
}

func stepOutputs(history []ir.Step) []StepOutput {
	steps := make([]StepOutput, len(history))
	for i, s := range history {
		steps[i] = StepOutput{RuleSet: s.RuleSet, Rule: s.Rule, Before: s.Before, After: s.After}
	}
	return steps
}

// WriteText prints one line per run, plus its steps with --steps.
func (s RunSummary) WriteText(w io.Writer) {
	for _, run := range s.Runs {
		fmt.Fprintf(w, "%s => %s  [%s, %s]\n", run.Seed, run.Payload, run.State, pluralSteps(run.Steps))
		if s.showSteps {
			writeSteps(w, run.History)
		}
		if run.Error != "" {
			fmt.Fprintf(w, "  %s\n", run.Error)
		}
	}
	if s.Logged > 0 {
		fmt.Fprintf(w, "\nLogged %d run(s)\n", s.Logged)
	}
}

func writeSteps(w io.Writer, history []StepOutput) {
	for i, s := range history {
		fmt.Fprintf(w, "  %d. %s.%s: %s -> %s\n", i+1, s.RuleSet, s.Rule, s.Before, s.After)
	}
}

func pluralSteps(n int) string {
	if n == 1 {
		return "1 step"
	}
	return fmt.Sprintf("%d steps", n)
}
