package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Every run terminated, every check passed
	ExitFailure      = 1 // A run hit the step limit, a scenario failed or a replay diverged
	ExitCommandError = 2 // Bad flags, unreadable rules, missing database, etc.
)

// ExitError carries the exit code a command failed with.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps a command error to the process exit code. A nil error
// is ExitSuccess; an error without an ExitError in its chain is
// ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status  string    `json:"status"` // "ok" or "error"
	Data    any       `json:"data,omitempty"`
	Error   *CLIError `json:"error,omitempty"`
	TraceID string    `json:"trace_id,omitempty"` // run ID, for commands about one run
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"` // "E005", "E_BOUNDED_LOOP", ...
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Report is a command result. In JSON it becomes the envelope's data; in
// text it renders itself.
type Report interface {
	WriteText(w io.Writer)
}

// runScoped is implemented by reports about a single logged run. Their
// run ID is echoed as the envelope's trace_id.
type runScoped interface {
	ScopeRunID() string
}

// OutputFormatter writes command results in the selected format.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose diagnostics; Writer when nil
	Verbose   bool
}

// newFormatter builds the formatter for a command: results on stdout,
// diagnostics on stderr so JSON output stays parseable.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// Emit writes a report. A non-nil failure turns the envelope's status to
// "error" but keeps the report as data, so an aborted run still shows its
// history.
func (f *OutputFormatter) Emit(r Report, failure *CLIError) error {
	if f.Format != "json" {
		r.WriteText(f.Writer)
		return nil
	}

	resp := CLIResponse{Status: "ok", Data: r, Error: failure}
	if failure != nil {
		resp.Status = "error"
	}
	if scoped, ok := r.(runScoped); ok {
		resp.TraceID = scoped.ScopeRunID()
	}
	return f.encode(resp)
}

// Error writes a failure that has no report, such as a rule table that
// does not load.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog writes a diagnostic line when --verbose is set.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}
