package store

import (
	"context"
	"fmt"

	"github.com/roach88/rewrite/internal/ir"
)

// RunRecord is one logged run.
//
// State uses the engine's state names ("terminated", "aborted", or
// "running" for a cancelled run). Value.History has exactly Steps entries.
type RunRecord struct {
	ID            string
	Seed          string
	State         string
	Value         ir.Value
	Steps         int
	Limit         int
	Guard         string
	TraceHash     string
	EngineVersion string
}

// NewRunRecord builds a record for a finished run, deriving Seed, Steps
// and TraceHash from v.
func NewRunRecord(id, state string, v ir.Value, limit int, guard string) (RunRecord, error) {
	hash, err := ir.TraceHash(v)
	if err != nil {
		return RunRecord{}, fmt.Errorf("new run record: %w", err)
	}
	return RunRecord{
		ID:            id,
		Seed:          v.Seed(),
		State:         state,
		Value:         v,
		Steps:         v.Len(),
		Limit:         limit,
		Guard:         guard,
		TraceHash:     hash,
		EngineVersion: ir.EngineVersion,
	}, nil
}

// WriteRun inserts a run and all of its steps in one transaction.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing a run ID that
// is already logged leaves the stored run untouched and returns
// inserted=false. Steps are only written together with a new run row.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord) (inserted bool, err error) {
	if rec.Steps != len(rec.Value.History) {
		return false, fmt.Errorf("write run %s: steps = %d but history has %d entries",
			rec.ID, rec.Steps, len(rec.Value.History))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seed, state, payload, steps, step_limit, guard, trace_hash, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Seed,
		rec.State,
		rec.Value.Payload,
		rec.Steps,
		rec.Limit,
		rec.Guard,
		rec.TraceHash,
		rec.EngineVersion,
	)
	if err != nil {
		return false, fmt.Errorf("write run: insert run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write run: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Already logged.
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("write run: commit (existing): %w", err)
		}
		return false, nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO steps (run_id, idx, ruleset, rule, before, after)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return false, fmt.Errorf("write run: prepare steps: %w", err)
	}
	defer stmt.Close()

	for i, step := range rec.Value.History {
		if _, err := stmt.ExecContext(ctx, rec.ID, i, step.RuleSet, step.Rule, step.Before, step.After); err != nil {
			return false, fmt.Errorf("write run: insert step %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write run: commit: %w", err)
	}
	return true, nil
}
