package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/rewrite/internal/compiler"
	"github.com/roach88/rewrite/internal/engine"
	"github.com/roach88/rewrite/internal/mathrules"
	"github.com/roach88/rewrite/internal/store"
	"github.com/roach88/rewrite/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenario cases with sequential run IDs against an isolated run
// log.
type Harness struct {
	store    *store.Store
	ruleSets []*engine.RuleSet
	limit    int
	guard    engine.GuardScope
	runIDs   *testutil.SequentialRunIDs
	logger   *slog.Logger
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger for per-case progress. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory run log
// 2. Load and compile the rule table
// 3. Rewrite every case seed with a deterministic run ID and log the run
// 4. Read each run back and check expectations and assertions
//
// A non-nil error means the scenario could not be executed at all;
// failed expectations are reported through Result.Pass.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	guard, err := engine.ParseGuardScope(scenario.Guard)
	if err != nil {
		return nil, err
	}

	ruleSets, err := LoadRules(scenario.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:    st,
		ruleSets: ruleSets,
		limit:    scenario.Limit(),
		guard:    guard,
		runIDs:   testutil.NewSequentialRunIDs(scenario.Name),
		logger:   cfg.logger,
	}

	result := NewResult(scenario.Name)
	for i, c := range scenario.Cases {
		cr, err := h.runCase(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("case %d (%q): %w", i, c.Seed, err)
		}
		result.Add(cr)
	}

	return result, nil
}

// LoadRules resolves a scenario rule reference to RuleSets.
func LoadRules(ref string) ([]*engine.RuleSet, error) {
	if ref == BuiltinMath {
		return mathrules.RuleSets()
	}
	table, err := compiler.LoadTable(ref, mathrules.Computations())
	if err != nil {
		return nil, err
	}
	return table.RuleSets, nil
}

func (h *Harness) runCase(ctx context.Context, c Case) (CaseResult, error) {
	seq, err := engine.NewSequencer(h.ruleSets,
		engine.WithMaxSteps(h.limit),
		engine.WithGuardScope(h.guard),
		engine.WithRunIDGenerator(h.runIDs),
	)
	if err != nil {
		return CaseResult{}, err
	}

	res, err := seq.Run(ctx, c.Seed)
	if err != nil && !engine.IsBoundedLoop(err) {
		return CaseResult{}, err
	}

	rec, err := store.NewRunRecord(res.RunID, res.State.String(), res.Value, res.Limit, h.guard.String())
	if err != nil {
		return CaseResult{}, err
	}
	if _, err := h.store.WriteRun(ctx, rec); err != nil {
		return CaseResult{}, err
	}
	logged, err := h.store.ReadRun(ctx, res.RunID)
	if err != nil {
		return CaseResult{}, err
	}

	cr := CaseResult{
		Name:   c.Name,
		RunID:  logged.ID,
		Seed:   logged.Seed,
		State:  logged.State,
		Value:  logged.Value,
		Steps:  logged.Steps,
		Limit:  logged.Limit,
		Pass:   true,
		Errors: []string{},
	}

	if c.Expect != nil {
		checkExpect(&cr, *c.Expect)
	}
	for _, errMsg := range EvaluateAssertions(cr.Value, c.Assertions) {
		cr.AddError(errMsg)
	}

	h.logger.Info("case completed",
		"run_id", cr.RunID,
		"seed", cr.Seed,
		"state", cr.State,
		"steps", cr.Steps,
		"pass", cr.Pass,
	)

	return cr, nil
}

// checkExpect compares the logged run against an expect clause.
func checkExpect(cr *CaseResult, want Expect) {
	if want.State != "" && cr.State != want.State {
		cr.AddError(fmt.Sprintf("state: expected %s, got %s", want.State, cr.State))
	}
	if want.Payload != nil && cr.Value.Payload != *want.Payload {
		cr.AddError(fmt.Sprintf("payload: expected %q, got %q", *want.Payload, cr.Value.Payload))
	}
	if want.Steps != nil && cr.Steps != *want.Steps {
		cr.AddError(fmt.Sprintf("steps: expected %d, got %d", *want.Steps, cr.Steps))
	}
	if want.Rules != nil {
		got := cr.Value.Rules()
		if !slices.Equal(got, want.Rules) {
			cr.AddError(fmt.Sprintf("rules: expected %v, got %v", want.Rules, got))
		}
	}
}
