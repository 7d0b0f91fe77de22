package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/nullbench/internal/bench"
)

// CaseKey identifies a benchmark case across runs.
type CaseKey struct {
	Operator    string `json:"operator"`
	Strategy    string `json:"strategy"`
	Field       string `json:"field"`
	Mode        string `json:"mode"`
	DocCount    int64  `json:"doc_count"`
	NullPercent int    `json:"null_percent"`
}

func keyOf(r bench.Result) CaseKey {
	return CaseKey{
		Operator:    r.Operator,
		Strategy:    r.Strategy,
		Field:       r.Field,
		Mode:        r.Mode,
		DocCount:    r.DocCount,
		NullPercent: r.NullPercent,
	}
}

// Delta compares the mean latency of one case in two runs.
type Delta struct {
	CaseKey
	Baseline  time.Duration `json:"baseline_mean_ns"`
	Candidate time.Duration `json:"candidate_mean_ns"`

	// Ratio is Candidate/Baseline: below 1 is faster.
	Ratio float64 `json:"ratio"`
}

// Compare matches the cases two runs share and reports their mean latency,
// in the candidate's order. Cases without samples in either run are left
// out.
func (s *Store) Compare(ctx context.Context, baselineID, candidateID string) ([]Delta, error) {
	baseline, err := s.Report(ctx, baselineID)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	candidate, err := s.Report(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	return CompareReports(baseline, candidate), nil
}

// CompareReports is Compare for reports already in memory.
func CompareReports(baseline, candidate *bench.Report) []Delta {
	base := make(map[CaseKey]bench.Stats, len(baseline.Results))
	for _, r := range baseline.Results {
		if r.Stats.N > 0 {
			base[keyOf(r)] = r.Stats
		}
	}

	deltas := []Delta{}
	for _, r := range candidate.Results {
		b, ok := base[keyOf(r)]
		if !ok || r.Stats.N == 0 || b.Mean <= 0 {
			continue
		}
		deltas = append(deltas, Delta{
			CaseKey:   keyOf(r),
			Baseline:  b.Mean,
			Candidate: r.Stats.Mean,
			Ratio:     float64(r.Stats.Mean) / float64(b.Mean),
		})
	}
	return deltas
}
