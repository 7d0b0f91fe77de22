package bench

import (
	"slices"
	"time"
)

// Stats summarizes measured samples.
type Stats struct {
	N    int           `json:"n"`
	Min  time.Duration `json:"min_ns"`
	Mean time.Duration `json:"mean_ns"`
	P50  time.Duration `json:"p50_ns"`
	Max  time.Duration `json:"max_ns"`
}

// Summarize computes stats over samples. The median of an even count is
// the lower middle sample.
func Summarize(samples []time.Duration) Stats {
	if len(samples) == 0 {
		return Stats{}
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	var total time.Duration
	for _, s := range sorted {
		total += s
	}
	return Stats{
		N:    len(sorted),
		Min:  sorted[0],
		Mean: total / time.Duration(len(sorted)),
		P50:  sorted[(len(sorted)-1)/2],
		Max:  sorted[len(sorted)-1],
	}
}
