package store

import (
	"context"
	"fmt"

	"github.com/roach88/nullbench/internal/bench"
)

// SaveReport records a run and its results in one transaction. A run id
// already in the history is left untouched and inserted is false.
func (s *Store) SaveReport(ctx context.Context, r *bench.Report) (inserted bool, err error) {
	if r.RunID == "" {
		return false, fmt.Errorf("save report: run id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("save report: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, started, finished, top_k, sort_reverse)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, r.RunID, formatTime(r.Started), formatTime(r.Finished), r.TopK, boolInt(r.SortReverse))
	if err != nil {
		return false, fmt.Errorf("save report %s: %w", r.RunID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save report %s: rows affected: %w", r.RunID, err)
	}
	if n == 0 {
		return false, nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results
		(run_id, seq, operator, strategy, field, mode, doc_count, null_percent, value,
		 samples, hits, total_value, total_relation, error, timed_out, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return false, fmt.Errorf("save report %s: prepare: %w", r.RunID, err)
	}
	defer stmt.Close()

	for i, res := range r.Results {
		samples, err := marshalSamples(res.Samples)
		if err != nil {
			return false, fmt.Errorf("save report %s: result %d: %w", r.RunID, i, err)
		}
		_, err = stmt.ExecContext(ctx,
			r.RunID, i,
			res.Operator, res.Strategy, res.Field, res.Mode,
			res.DocCount, res.NullPercent, res.Value,
			samples, res.Hits, res.Total.Value, string(res.Total.Relation),
			res.Error, boolInt(res.TimedOut), res.Skipped,
		)
		if err != nil {
			return false, fmt.Errorf("save report %s: result %d: %w", r.RunID, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("save report %s: commit: %w", r.RunID, err)
	}
	return true, nil
}
