package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// timeLayout is fixed width so stored times sort as text and keep
// nanoseconds.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// marshalSamples stores durations as a JSON array of nanoseconds.
func marshalSamples(samples []time.Duration) (string, error) {
	ns := make([]int64, len(samples))
	for i, d := range samples {
		ns[i] = int64(d)
	}
	data, err := json.Marshal(ns)
	if err != nil {
		return "", fmt.Errorf("marshal samples: %w", err)
	}
	return string(data), nil
}

func unmarshalSamples(data string) ([]time.Duration, error) {
	var ns []int64
	if err := json.Unmarshal([]byte(data), &ns); err != nil {
		return nil, fmt.Errorf("unmarshal samples: %w", err)
	}
	samples := make([]time.Duration, len(ns))
	for i, n := range ns {
		samples[i] = time.Duration(n)
	}
	return samples, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
