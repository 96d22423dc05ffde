package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rewrite/internal/compiler"
	"github.com/roach88/rewrite/internal/mathrules"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	RuleSets int                        `json:"rulesets"`
	Rules    int                        `json:"rules"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [rules-path]",
		Short: "Validate a rule table without running it",
		Long: `Validate a CUE rule table: table shape, unique names, known computations,
pattern syntax and template references. All errors are reported together.

Rules whose constant output re-triggers rules in a loop are reported as
warnings; the loop guard and step limit still stop such runs.

Without an argument the built-in math table is validated.

Examples:
  rewrite validate ./rules
  rewrite validate ./rules/algebra.cue --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := BuiltinRules
			if len(args) == 1 {
				ref = args[0]
			}
			return runValidate(rootOpts, ref, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, ref string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadSpecs(ref)
	if err != nil {
		code, message, details := ErrCodeGeneric, err.Error(), any(nil)
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			code, message, details = loadErr.Code, loadErr.Message, lineDetails(loadErr)
		}
		_ = formatter.Error(code, message, details)
		// Load errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
	}

	formatter.VerboseLog("Found %d CUE file(s) for %s", loaded.FileCount, ref)

	result := ValidationResult{
		RuleSets: len(loaded.Specs),
		Errors:   compiler.Validate(loaded.Specs, mathrules.Computations()),
		Warnings: compiler.AnalyzeCycles(loaded.Specs),
	}
	for _, spec := range loaded.Specs {
		formatter.VerboseLog("Validating ruleset: %s (%d rules)", spec.Name, len(spec.Rules))
		result.Rules += len(spec.Rules)
	}
	result.Valid = len(result.Errors) == 0

	if result.Valid {
		return formatter.Emit(result, nil)
	}

	first := result.Errors[0]
	if err := formatter.Emit(result, &CLIError{Code: first.Code, Message: first.Message}); err != nil {
		return err
	}
	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}

func lineDetails(e *LoadError) any {
	if !e.Pos.IsValid() {
		return nil
	}
	return map[string]any{"file": e.Pos.Filename(), "line": e.Pos.Line()}
}

// WriteText prints cycle warnings and a verdict, or every error with its
// line.
func (r ValidationResult) WriteText(w io.Writer) {
	if r.Valid {
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "⚠ %s\n", warn.Message)
		}
		fmt.Fprintf(w, "✓ All rules valid (%d rule(s) in %d ruleset(s))\n", r.Rules, r.RuleSets)
		return
	}

	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, err := range r.Errors {
		if err.Line > 0 {
			fmt.Fprintf(w, "line %d\n", err.Line)
		}
		fmt.Fprintf(w, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
}
