package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rewrite/internal/engine"
	"github.com/roach88/rewrite/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	State    string
	Seed     string
	Rule     string
	RuleSet  string
	Limit    int
}

// HistoryEntry is one logged run in the listing.
type HistoryEntry struct {
	RunID   string `json:"run_id"`
	Seed    string `json:"seed"`
	State   string `json:"state"`
	Payload string `json:"payload"`
	Steps   int    `json:"steps"`
	Limit   int    `json:"limit"`
	Guard   string `json:"guard"`
}

// HistoryResult holds the listing plus the size of the whole log.
type HistoryResult struct {
	Runs  []HistoryEntry `json:"runs"`
	Total int            `json:"total"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List logged runs",
		Long: `List runs from the run log in the order they were logged.

Filters combine: a run is listed only when it matches every filter given.

Examples:
  rewrite history --db ./runs.db
  rewrite history --db ./runs.db --state aborted
  rewrite history --db ./runs.db --rule add --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.State, "state", "", "only runs that ended in this state (terminated|aborted|running)")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "only runs started from this seed")
	cmd.Flags().StringVar(&opts.Rule, "rule", "", "only runs in which this rule fired")
	cmd.Flags().StringVar(&opts.RuleSet, "ruleset", "", "restrict --rule to this ruleset")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 = all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	query, err := buildHistoryQuery(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, query)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	total, err := st.CountRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count runs", err)
	}

	result := HistoryResult{Runs: make([]HistoryEntry, len(runs)), Total: total}
	for i, rec := range runs {
		result.Runs[i] = HistoryEntry{
			RunID:   rec.ID,
			Seed:    rec.Seed,
			State:   rec.State,
			Payload: rec.Value.Payload,
			Steps:   rec.Steps,
			Limit:   rec.Limit,
			Guard:   rec.Guard,
		}
	}

	return newFormatter(opts.RootOptions, cmd).Emit(result, nil)
}

// buildHistoryQuery turns the filter flags into a store query.
func buildHistoryQuery(opts *HistoryOptions) (store.RunQuery, error) {
	if opts.Limit < 0 {
		return store.RunQuery{}, fmt.Errorf("--limit must be >= 0, got %d", opts.Limit)
	}
	if opts.RuleSet != "" && opts.Rule == "" {
		return store.RunQuery{}, fmt.Errorf("--ruleset requires --rule")
	}

	var preds []store.Predicate
	if opts.State != "" {
		if _, err := engine.ParseState(opts.State); err != nil {
			return store.RunQuery{}, err
		}
		preds = append(preds, store.StateIs{State: opts.State})
	}
	if opts.Seed != "" {
		preds = append(preds, store.SeedIs{Seed: opts.Seed})
	}
	if opts.Rule != "" {
		preds = append(preds, store.UsedRule{Rule: opts.Rule, RuleSet: opts.RuleSet})
	}

	q := store.RunQuery{Limit: opts.Limit}
	switch len(preds) {
	case 0:
	case 1:
		q.Filter = preds[0]
	default:
		q.Filter = store.And{Predicates: preds}
	}
	return q, nil
}

// WriteText prints one line per run.
func (h HistoryResult) WriteText(w io.Writer) {
	if len(h.Runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return
	}
	for _, r := range h.Runs {
		fmt.Fprintf(w, "%s  %-10s %s => %s  (%s)\n", r.RunID, r.State, r.Seed, r.Payload, pluralSteps(r.Steps))
	}
	fmt.Fprintf(w, "\nShowing %d of %d run(s)\n", len(h.Runs), h.Total)
}
