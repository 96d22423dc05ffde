package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rewrite/internal/engine"
	"github.com/roach88/rewrite/internal/ir"
	"github.com/roach88/rewrite/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Rule     string // optional - filter to specific rule
	Verify   bool
	Rules    string // rule table for --verify
}

// TraceStep is a single step in the trace timeline.
type TraceStep struct {
	Index   int    `json:"index"` // 1-based
	RuleSet string `json:"ruleset"`
	Rule    string `json:"rule"`
	Before  string `json:"before"`
	After   string `json:"after"`
}

// VerifyResult reports whether a logged run reproduces.
type VerifyResult struct {
	Rules      string `json:"rules"`
	Reproduced bool   `json:"reproduced"`
	HashMatch  bool   `json:"hash_match"`
	Error      string `json:"error,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID         string        `json:"run_id"`
	Seed          string        `json:"seed"`
	State         string        `json:"state"`
	Payload       string        `json:"payload"`
	Steps         int           `json:"steps"`
	Limit         int           `json:"limit"`
	Guard         string        `json:"guard"`
	TraceHash     string        `json:"trace_hash"`
	EngineVersion string        `json:"engine_version"`
	Timeline      []TraceStep   `json:"timeline"`
	Verification  *VerifyResult `json:"verification,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the history of a logged run",
		Long: `Show the full rewrite history of a run from the run log.

The output includes the seed, final state and payload, and every step
with the RuleSet and rule that produced it.

With --verify the recorded history is recomputed against a rule table:
every step must be the first matching rule of its RuleSet and must
produce the recorded payload, and the stored trace hash must match.

Exit codes:
  0 - Run found (and reproduced, with --verify)
  1 - Verification failed
  2 - Command error (database or run not found, etc.)

Examples:
  rewrite trace --db ./runs.db --run 0192f0c4-...
  rewrite trace --db ./runs.db --run 0192f0c4-... --rule add
  rewrite trace --db ./runs.db --run 0192f0c4-... --verify --rules ./rules`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to trace (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.Rule, "rule", "", "filter to specific rule name")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "recompute the history against the rule table")
	cmd.Flags().StringVar(&opts.Rules, "rules", BuiltinRules, "rule table for --verify")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: run not found: %s", ErrCodeRunNotFound, opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	result := TraceResult{
		RunID:         rec.ID,
		Seed:          rec.Seed,
		State:         rec.State,
		Payload:       rec.Value.Payload,
		Steps:         rec.Steps,
		Limit:         rec.Limit,
		Guard:         rec.Guard,
		TraceHash:     rec.TraceHash,
		EngineVersion: rec.EngineVersion,
		Timeline:      buildTimeline(rec.Value.History, opts.Rule),
	}

	if opts.Verify {
		v, err := verifyRun(rec, opts.Rules)
		if err != nil {
			return err
		}
		result.Verification = v
	}

	if v := result.Verification; v != nil && (!v.Reproduced || !v.HashMatch) {
		msg := fmt.Sprintf("run %s does not reproduce", rec.ID)
		if err := formatter.Emit(result, &CLIError{Code: "E_REPLAY_DIVERGED", Message: msg}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return formatter.Emit(result, nil)
}

// verifyRun recomputes a logged history against the rule table at ref.
func verifyRun(rec store.RunRecord, ref string) (*VerifyResult, error) {
	table, err := LoadRules(ref)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load rules", err)
	}

	result := &VerifyResult{Rules: ref, Reproduced: true}
	if err := engine.Verify(rec.Value, table.RuleSets); err != nil {
		result.Reproduced = false
		result.Error = err.Error()
	}

	hash, err := ir.TraceHash(rec.Value)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to hash history", err)
	}
	result.HashMatch = hash == rec.TraceHash
	return result, nil
}

// buildTimeline converts history steps to timeline entries. When
// ruleFilter is set, only steps of that rule are kept; indices stay those
// of the full history.
func buildTimeline(history []ir.Step, ruleFilter string) []TraceStep {
	timeline := []TraceStep{}
	for i, s := range history {
		if ruleFilter != "" && s.Rule != ruleFilter {
			continue
		}
		timeline = append(timeline, TraceStep{
			Index:   i + 1,
			RuleSet: s.RuleSet,
			Rule:    s.Rule,
			Before:  s.Before,
			After:   s.After,
		})
	}
	return timeline
}

// ScopeRunID returns the traced run.
func (r TraceResult) ScopeRunID() string { return r.RunID }

// WriteText prints the header, the timeline, the hash and, with --verify,
// the verification verdict.
func (r TraceResult) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Trace for Run: %s\n", r.RunID)
	fmt.Fprintf(w, "Seed:   %s\n", r.Seed)
	fmt.Fprintf(w, "Result: %s\n", r.Payload)
	fmt.Fprintf(w, "Status: %s (%s, limit %d, guard %s)\n", r.State, pluralSteps(r.Steps), r.Limit, r.Guard)
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(r.Timeline) == 0 {
		fmt.Fprintln(w, "  (no steps)")
	} else {
		for _, s := range r.Timeline {
			fmt.Fprintf(w, "  [%d] %s.%s: %s -> %s\n", s.Index, s.RuleSet, s.Rule, s.Before, s.After)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Hash ===")
	fmt.Fprintf(w, "  %s (engine %s)\n", r.TraceHash, r.EngineVersion)

	if v := r.Verification; v != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Verification ===")
		if v.Reproduced {
			fmt.Fprintf(w, "  ✓ History reproduces with %s\n", v.Rules)
		} else {
			fmt.Fprintf(w, "  ✗ %s\n", v.Error)
		}
		if v.HashMatch {
			fmt.Fprintln(w, "  ✓ Trace hash matches")
		} else {
			fmt.Fprintln(w, "  ✗ Trace hash mismatch")
		}
	}
}

// openExisting opens a run log that must already exist. Read-only
// commands never create a database.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("%s: database not found: %s", ErrCodeNotFound, path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
