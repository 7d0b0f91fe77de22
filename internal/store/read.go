package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/nullbench/internal/bench"
	"github.com/roach88/nullbench/internal/index"
)

// ErrRunNotFound is returned for a run id the history does not hold.
var ErrRunNotFound = errors.New("run not found")

// RunSummary describes one recorded run.
type RunSummary struct {
	RunID    string `json:"run_id"`
	Started  string `json:"started"`
	Finished string `json:"finished"`
	TopK     int    `json:"top_k"`
	Cases    int    `json:"cases"`
	Failed   int    `json:"failed"`
}

// Runs lists recorded runs, oldest first.
//
// Returns an empty slice (not nil) when the history is empty.
func (s *Store) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.started, r.finished, r.top_k,
		       COUNT(x.seq),
		       COALESCE(SUM(CASE WHEN x.error <> '' THEN 1 ELSE 0 END), 0)
		FROM runs r
		LEFT JOIN results x ON x.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.started ASC, r.run_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var rs RunSummary
		if err := rows.Scan(&rs.RunID, &rs.Started, &rs.Finished, &rs.TopK, &rs.Cases, &rs.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Report loads a recorded run. Stats are recomputed from the stored
// samples.
func (s *Store) Report(ctx context.Context, runID string) (*bench.Report, error) {
	var (
		started, finished string
		reverse           int
	)
	r := &bench.Report{RunID: runID, Results: []bench.Result{}}
	err := s.db.QueryRowContext(ctx,
		"SELECT started, finished, top_k, sort_reverse FROM runs WHERE run_id = ?", runID,
	).Scan(&started, &finished, &r.TopK, &reverse)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	r.SortReverse = reverse != 0
	if r.Started, err = parseTime(started); err != nil {
		return nil, err
	}
	if r.Finished, err = parseTime(finished); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT operator, strategy, field, mode, doc_count, null_percent, value,
		       samples, hits, total_value, total_relation, error, timed_out, skipped
		FROM results
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results %s: %w", runID, err)
	}
	defer rows.Close()

	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		r.Results = append(r.Results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results %s: %w", runID, err)
	}
	return r, nil
}

func scanResult(rows *sql.Rows) (bench.Result, error) {
	var (
		res      bench.Result
		samples  string
		relation string
		timedOut int
	)
	err := rows.Scan(
		&res.Operator, &res.Strategy, &res.Field, &res.Mode,
		&res.DocCount, &res.NullPercent, &res.Value,
		&samples, &res.Hits, &res.Total.Value, &relation,
		&res.Error, &timedOut, &res.Skipped,
	)
	if err != nil {
		return bench.Result{}, fmt.Errorf("scan result: %w", err)
	}
	if res.Samples, err = unmarshalSamples(samples); err != nil {
		return bench.Result{}, err
	}
	res.Total.Relation = index.Relation(relation)
	res.TimedOut = timedOut != 0
	res.Stats = bench.Summarize(res.Samples)
	return res, nil
}
