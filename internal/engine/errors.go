package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/rewrite/internal/ir"
)

// RuntimeError represents an error detected while configuring or running
// a Sequencer.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run, when there is one.
	RunID string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeBoundedLoop indicates the step limit was reached while a
	// RuleSet was still applicable.
	ErrCodeBoundedLoop RuntimeErrorCode = "BOUNDED_LOOP"

	// ErrCodeInvalidLimit indicates a negative step limit.
	ErrCodeInvalidLimit RuntimeErrorCode = "INVALID_LIMIT"

	// ErrCodeNoRuleSets indicates a Sequencer with nothing registered, or a
	// nil entry.
	ErrCodeNoRuleSets RuntimeErrorCode = "NO_RULESETS"

	// ErrCodeDuplicateRuleSet indicates two RuleSets share a name.
	ErrCodeDuplicateRuleSet RuntimeErrorCode = "DUPLICATE_RULESET"

	// ErrCodeInvalidGuard indicates an unknown guard scope.
	ErrCodeInvalidGuard RuntimeErrorCode = "INVALID_GUARD"

	// ErrCodeAlreadyStarted indicates Start was called twice.
	ErrCodeAlreadyStarted RuntimeErrorCode = "ALREADY_STARTED"

	// ErrCodeNotStarted indicates Step was called before Start.
	ErrCodeNotStarted RuntimeErrorCode = "NOT_STARTED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, e.Message, e.RunID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// BoundedLoopError is returned when a run reaches its step limit while a
// RuleSet is still applicable.
//
// Last carries the final value with its complete history. The run is
// never retried and the history is never truncated.
type BoundedLoopError struct {
	RunID string
	Steps int
	Limit int
	Last  ir.Value
}

// Error implements the error interface.
func (e *BoundedLoopError) Error() string {
	return fmt.Sprintf("run %s exceeded step limit: %d steps, limit %d, last payload %q",
		e.RunID, e.Steps, e.Limit, e.Last.Payload)
}

// RuntimeError returns the runtime error code for matching.
func (e *BoundedLoopError) RuntimeError() RuntimeErrorCode {
	return ErrCodeBoundedLoop
}

// IsBoundedLoop returns true if the error is a BoundedLoopError.
// Uses errors.As to handle wrapped errors.
func IsBoundedLoop(err error) bool {
	var be *BoundedLoopError
	return errors.As(err, &be)
}

// IsConfigError returns true if the error is a RuntimeError raised while
// constructing a Sequencer.
func IsConfigError(err error) bool {
	var re *RuntimeError
	if !errors.As(err, &re) {
		return false
	}
	switch re.Code {
	case ErrCodeInvalidLimit, ErrCodeNoRuleSets, ErrCodeDuplicateRuleSet, ErrCodeInvalidGuard:
		return true
	default:
		return false
	}
}
