package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/rewrite/internal/ir"
)

// DefaultMaxSteps is the default step limit per run.
const DefaultMaxSteps = 100

// State is the lifecycle state of a run. Terminated and Aborted are
// absorbing.
type State int

const (
	// Running means a RuleSet may still apply.
	Running State = iota
	// Terminated means no RuleSet applies to the current value.
	Terminated
	// Aborted means the step limit was reached while a RuleSet still applied.
	Aborted
)

// String returns the lower-case state name used in logs and the run log.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState parses a state name produced by String.
func ParseState(s string) (State, error) {
	switch s {
	case "running":
		return Running, nil
	case "terminated":
		return Terminated, nil
	case "aborted":
		return Aborted, nil
	default:
		return 0, fmt.Errorf("unknown state %q", s)
	}
}

// Result is the outcome of a run.
//
// Value.History always has exactly Steps entries.
type Result struct {
	RunID string
	State State
	Value ir.Value
	Steps int
	Limit int
}

// Sequencer drives one rewrite run: it holds the pending value, offers it
// to the registered RuleSets in order, and stops when nothing applies or
// the step limit is reached.
//
// Thread-safety model:
//   - A Sequencer must be used from one goroutine.
//   - The RuleSets it holds are read-only and may be shared with other
//     Sequencers running concurrently.
//
// INVARIANTS:
//   - ruleSets order never changes after construction
//   - RuleSet names are unique
//   - at most one value is pending at any time
type Sequencer struct {
	ruleSets []*RuleSet
	maxSteps int
	guard    GuardScope
	runIDs   RunIDGenerator

	runID    string
	queue    *pendingQueue
	attempts *Attempts
	quota    *StepQuota
	last     ir.Value
	started  bool
	result   *Result
	err      error
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithMaxSteps sets the step limit.
//
// Default: 100 steps (DefaultMaxSteps). Zero is allowed and aborts any run
// that has an applicable RuleSet; negative limits are rejected.
func WithMaxSteps(n int) Option {
	return func(s *Sequencer) {
		s.maxSteps = n
	}
}

// WithGuardScope sets how long attempted markers stay in effect.
// Default: GuardScopeRun.
//
// Under GuardScopeRun a cycle such as a -> b -> a terminates as soon as it
// returns to a payload its RuleSet already rewrote. Pass GuardScopeValue to
// let such a cycle spin until the step limit aborts it.
func WithGuardScope(g GuardScope) Option {
	return func(s *Sequencer) {
		s.guard = g
	}
}

// WithRunIDGenerator sets the run ID source.
// Default: UUIDv7Generator.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(s *Sequencer) {
		s.runIDs = gen
	}
}

// NewSequencer creates a Sequencer over ruleSets, which are consulted in
// the given order. The slice is copied.
func NewSequencer(ruleSets []*RuleSet, opts ...Option) (*Sequencer, error) {
	if len(ruleSets) == 0 {
		return nil, &RuntimeError{Code: ErrCodeNoRuleSets, Message: "at least one ruleset is required"}
	}

	names := make(map[string]bool, len(ruleSets))
	for i, rs := range ruleSets {
		if rs == nil {
			return nil, &RuntimeError{
				Code:    ErrCodeNoRuleSets,
				Message: fmt.Sprintf("ruleset %d is nil", i),
			}
		}
		if names[rs.Name()] {
			return nil, &RuntimeError{
				Code:    ErrCodeDuplicateRuleSet,
				Message: fmt.Sprintf("duplicate ruleset name %q", rs.Name()),
			}
		}
		names[rs.Name()] = true
	}

	s := &Sequencer{
		ruleSets: append([]*RuleSet(nil), ruleSets...),
		maxSteps: DefaultMaxSteps,
		guard:    GuardScopeRun,
		runIDs:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.maxSteps < 0 {
		return nil, &RuntimeError{
			Code:    ErrCodeInvalidLimit,
			Message: fmt.Sprintf("step limit must be >= 0, got %d", s.maxSteps),
		}
	}
	if s.guard != GuardScopeRun && s.guard != GuardScopeValue {
		return nil, &RuntimeError{
			Code:    ErrCodeInvalidGuard,
			Message: fmt.Sprintf("unknown guard scope %d", int(s.guard)),
		}
	}
	if s.runIDs == nil {
		s.runIDs = UUIDv7Generator{}
	}

	return s, nil
}

// RunID returns the current run ID, or "" before Start.
func (s *Sequencer) RunID() string {
	return s.runID
}

// Start seeds the run. A Sequencer runs exactly one seed.
func (s *Sequencer) Start(seed string) error {
	if s.started {
		return &RuntimeError{
			Code:    ErrCodeAlreadyStarted,
			Message: "sequencer already started",
			RunID:   s.runID,
		}
	}

	s.started = true
	s.runID = s.runIDs.Generate()
	s.queue = newPendingQueue()
	s.attempts = NewAttempts()
	s.quota = NewStepQuota(s.maxSteps)
	s.last = ir.NewValue(seed)
	s.queue.Enqueue(s.last)

	slog.Debug("run started",
		"run_id", s.runID,
		"limit", s.maxSteps,
		"guard", s.guard.String(),
	)
	return nil
}

// Step performs at most one RuleSet application and returns the state
// afterwards. Once the run is Terminated or Aborted, Step returns the same
// state and error again without doing anything.
//
// Context cancellation is checked before the step; a cancelled context
// leaves the run Running and resumable.
func (s *Sequencer) Step(ctx context.Context) (State, error) {
	if !s.started {
		return Running, &RuntimeError{Code: ErrCodeNotStarted, Message: "sequencer not started"}
	}
	if s.result != nil {
		return s.result.State, s.err
	}
	if err := ctx.Err(); err != nil {
		return Running, err
	}

	v, ok := s.queue.TryDequeue()
	if !ok {
		// Unreachable while Running: every step re-enqueues its output.
		panic("sequencer: pending queue empty while running")
	}

	rs := s.firstApplicable(v)
	if rs == nil {
		s.finish(Terminated, v, nil)
		return Terminated, nil
	}

	if s.quota.Exhausted() {
		err := &BoundedLoopError{
			RunID: s.runID,
			Steps: s.quota.Used(),
			Limit: s.quota.Limit(),
			Last:  v,
		}
		s.finish(Aborted, v, err)
		return Aborted, err
	}

	next, applied := rs.Apply(v, s.attempts)
	if !applied {
		panic(fmt.Sprintf("sequencer: ruleset %s applicable but did not apply", rs.Name()))
	}
	s.quota.Consume()
	if s.guard == GuardScopeValue {
		s.attempts.Clear()
	}

	last := next.History[len(next.History)-1]
	slog.Debug("step",
		"run_id", s.runID,
		"step", s.quota.Used(),
		"ruleset", last.RuleSet,
		"rule", last.Rule,
		"payload", next.Payload,
	)

	s.last = next
	s.queue.Enqueue(next)
	return Running, nil
}

// Run starts the run with seed and steps until it is Terminated or
// Aborted, or ctx is cancelled.
//
// Aborted runs return the Result together with a *BoundedLoopError. With
// the default GuardScopeRun a cyclic RuleSet stops once the cycle closes;
// it only reaches the step limit under WithGuardScope(GuardScopeValue).
// Cancelled runs return a Running Result holding the last value reached,
// together with ctx.Err().
func (s *Sequencer) Run(ctx context.Context, seed string) (*Result, error) {
	if err := s.Start(seed); err != nil {
		return nil, err
	}

	for {
		state, err := s.Step(ctx)
		if state != Running {
			return s.Result(), err
		}
		if err != nil {
			slog.Info("run cancelled",
				"run_id", s.runID,
				"steps", s.quota.Used(),
				"error", err,
			)
			return s.Result(), err
		}
	}
}

// Result returns a snapshot of the run. Before the run ends, State is
// Running and Value is the latest value produced.
func (s *Sequencer) Result() *Result {
	if s.result != nil {
		r := *s.result
		return &r
	}
	if !s.started {
		return nil
	}
	return &Result{
		RunID: s.runID,
		State: Running,
		Value: s.last,
		Steps: s.quota.Used(),
		Limit: s.quota.Limit(),
	}
}

// Attempts exposes the run's marker set for inspection.
func (s *Sequencer) Attempts() *Attempts {
	return s.attempts
}

func (s *Sequencer) firstApplicable(v ir.Value) *RuleSet {
	for _, rs := range s.ruleSets {
		if rs.Applicable(v, s.attempts) {
			return rs
		}
	}
	return nil
}

func (s *Sequencer) finish(state State, v ir.Value, err error) {
	s.last = v
	s.result = &Result{
		RunID: s.runID,
		State: state,
		Value: v,
		Steps: s.quota.Used(),
		Limit: s.quota.Limit(),
	}
	s.err = err

	switch state {
	case Terminated:
		slog.Info("run terminated",
			"run_id", s.runID,
			"steps", s.quota.Used(),
			"payload", v.Payload,
		)
	case Aborted:
		slog.Warn("run aborted: step limit reached",
			"run_id", s.runID,
			"steps", s.quota.Used(),
			"limit", s.quota.Limit(),
			"payload", v.Payload,
		)
	}
}

// Run rewrites seed with ruleSets under the given step limit.
//
// It is shorthand for NewSequencer(ruleSets, WithMaxSteps(limit)) followed
// by Sequencer.Run.
//
// For a RuleSet that rewrites a -> b and b -> a, seeding "a" with limit 10
// terminates after two steps by default and aborts after ten with
// WithGuardScope(GuardScopeValue).
func Run(ctx context.Context, seed string, ruleSets []*RuleSet, limit int, opts ...Option) (*Result, error) {
	s, err := NewSequencer(ruleSets, append([]Option{WithMaxSteps(limit)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, seed)
}
