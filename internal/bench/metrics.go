package bench

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Error kinds recorded by Metrics.
const (
	ErrorKindConfiguration = "configuration"
	ErrorKindEngine        = "engine"
	ErrorKindTimeout       = "timeout"
	ErrorKindOther         = "other"
)

var caseLabels = []string{"operator", "strategy", "field", "mode", "docs"}

// Metrics records measurements in a private registry, so several runs in
// one process never share counters.
type Metrics struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	hits     *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

// NewMetrics registers the benchmark collectors in a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nullbench_query_duration_seconds",
				Help:    "Duration of one measured query (build and execute) in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			caseLabels,
		),
		hits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nullbench_query_hits_total",
				Help: "Hits returned by measured queries",
			},
			caseLabels,
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nullbench_query_errors_total",
				Help: "Failed or timed out measurements",
			},
			append(append([]string{}, caseLabels...), "kind"),
		),
	}
	m.registry.MustRegister(m.duration, m.hits, m.errors)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func labels(c Case) []string {
	return []string{string(c.Operator), c.Strategy.Name, c.Field.ID, c.Mode.Name, strconv.FormatInt(c.DocCount, 10)}
}

// ObserveSample records one measured iteration.
func (m *Metrics) ObserveSample(c Case, d time.Duration, hits int) {
	l := labels(c)
	m.duration.WithLabelValues(l...).Observe(d.Seconds())
	m.hits.WithLabelValues(l...).Add(float64(hits))
}

// ObserveError records a failed measurement.
func (m *Metrics) ObserveError(c Case, kind string) {
	m.errors.WithLabelValues(append(labels(c), kind)...).Inc()
}

// WriteTextfile writes the registry in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
