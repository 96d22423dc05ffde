package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rewrite/internal/ir"
)

// ErrRunNotFound is returned by ReadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// ReadRun returns a run together with its full history.
// Returns an error wrapping ErrRunNotFound if the ID is not logged.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, err)
	}

	history, err := s.readSteps(ctx, id)
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, err)
	}
	rec.Value.History = history

	return rec, nil
}

// ListRuns returns runs matching q in insertion order.
//
// Listed records carry the terminal payload but no history; use ReadRun
// for the steps. Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListRuns(ctx context.Context, q RunQuery) ([]RunRecord, error) {
	query, params, err := compileRunQuery(q)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// CountRuns returns the number of logged runs.
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

func (s *Store) readSteps(ctx context.Context, runID string) ([]ir.Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ruleset, rule, before, after
		FROM steps
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []ir.Step{}
	for rows.Next() {
		var st ir.Step
		if err := rows.Scan(&st.RuleSet, &st.Rule, &st.Before, &st.After); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}

	return steps, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var rec RunRecord
	err := row.Scan(
		&rec.ID,
		&rec.Seed,
		&rec.State,
		&rec.Value.Payload,
		&rec.Steps,
		&rec.Limit,
		&rec.Guard,
		&rec.TraceHash,
		&rec.EngineVersion,
	)
	if err != nil {
		return RunRecord{}, err
	}
	return rec, nil
}
