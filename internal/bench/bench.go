// Package bench is the benchmark driver. It runs every planned
// (operator, strategy, field, mode, scale) case against a cached index,
// opening a fresh searcher for each iteration and closing it on every exit
// path, and reports per-case timing statistics.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/nullbench/internal/config"
	"github.com/roach88/nullbench/internal/datagen"
	"github.com/roach88/nullbench/internal/errs"
	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/index"
	"github.com/roach88/nullbench/internal/searchmode"
	"github.com/roach88/nullbench/internal/strategy"
)

// ErrTimeout marks a measurement abandoned after the plan's timeout.
var ErrTimeout = errors.New("measurement timed out")

// Clock supplies timestamps for measurements.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// IDSource generates run identifiers.
type IDSource interface {
	NewID() (string, error)
}

// UUIDv7 generates time-ordered UUIDs, so run ids sort by start time.
type UUIDv7 struct{}

// NewID returns a new UUID v7 string.
func (UUIDv7) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}

// Case is one benchmarked combination.
type Case struct {
	Operator    strategy.Operator
	Strategy    strategy.Strategy
	Field       field.Field
	Mode        searchmode.Mode
	DocCount    int64
	NullPercent int
}

func (c Case) String() string {
	return fmt.Sprintf("%s/%s field=%s mode=%s docs=%d", c.Operator, c.Strategy.Name, c.Field.ID, c.Mode.Name, c.DocCount)
}

// Result is the outcome of one case.
type Result struct {
	Operator    string          `json:"operator"`
	Strategy    string          `json:"strategy"`
	Field       string          `json:"field"`
	Mode        string          `json:"mode"`
	DocCount    int64           `json:"doc_count"`
	NullPercent int             `json:"null_percent"`
	Value       string          `json:"value,omitempty"`
	Samples     []time.Duration `json:"samples_ns"`
	Stats       Stats           `json:"stats"`
	Hits        int             `json:"hits"`
	Total       index.TotalHits `json:"total"`
	Error       string          `json:"error,omitempty"`
	TimedOut    bool            `json:"timed_out,omitempty"`
	Skipped     string          `json:"skipped,omitempty"`
}

// Report is the outcome of a run.
type Report struct {
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	TopK     int       `json:"top_k"`

	// SortReverse means sorted modes ordered by descending value.
	SortReverse bool     `json:"sort_reverse,omitempty"`
	Results     []Result `json:"results"`
}

// Failed returns the results that ended in an error or timeout.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Error != "" {
			out = append(out, res)
		}
	}
	return out
}

// Runner executes a plan.
type Runner struct {
	plan       config.Plan
	fields     field.Catalogue
	strategies *strategy.Catalogue
	modes      *searchmode.Catalogue
	cache      *IndexCache
	metrics    *Metrics
	clock      Clock
	ids        IDSource
	logger     *slog.Logger
	timeout    time.Duration

	// inflight tracks measurements abandoned after a timeout; they finish
	// in the background and release their searchers.
	inflight sync.WaitGroup
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithIDSource replaces the run id generator.
func WithIDSource(ids IDSource) Option {
	return func(r *Runner) { r.ids = ids }
}

// WithMetrics records measurements into m.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithIndexBuilder replaces the generator-backed index builder.
func WithIndexBuilder(build BuildFunc) Option {
	return func(r *Runner) { r.cache = NewIndexCache(build) }
}

// WithStrategies replaces the strategy catalogue.
func WithStrategies(c *strategy.Catalogue) Option {
	return func(r *Runner) { r.strategies = c }
}

// NewRunner validates the plan and prepares a runner. Indexes are built
// lazily, once per scale.
func NewRunner(plan config.Plan, opts ...Option) (*Runner, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	fields, err := plan.Catalogue()
	if err != nil {
		return nil, err
	}
	timeout, err := plan.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		plan:       plan,
		fields:     fields,
		strategies: strategy.Default(),
		modes:      searchmode.Default(),
		clock:      systemClock{},
		ids:        UUIDv7{},
		logger:     slog.Default(),
		timeout:    timeout,
	}
	r.cache = NewIndexCache(r.generate)
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// generate opens or builds the cached index for a scale.
func (r *Runner) generate(ctx context.Context, docCount int64, nullPercent int) (*index.Index, error) {
	factories, err := r.plan.Factories()
	if err != nil {
		return nil, err
	}
	g := &datagen.Generator{
		Path: datagen.PathBuilder{
			Dir:          r.plan.IndexDir,
			DocCount:     docCount,
			StringLength: r.plan.StringLength(),
			NullPercent:  nullPercent,
		}.Build(),
		DocCount:  docCount,
		Catalogue: r.fields,
		Factories: factories,
		Override:  r.plan.Override,
		Seed:      r.plan.Seed,
		Params:    r.plan.GenerationParams(),
		BatchSize: r.plan.BatchSize,
		Logger:    r.logger,
	}
	return g.CreateIndex(ctx)
}

// Indexes returns the runner's index cache.
func (r *Runner) Indexes() *IndexCache {
	return r.cache
}

// Cases expands the plan into cases for one scale, in benchmark order.
func (r *Runner) Cases(docCount int64) ([]Case, error) {
	ops, err := r.plan.OperatorList()
	if err != nil {
		return nil, err
	}
	modes, err := r.plan.ModeList(r.modes)
	if err != nil {
		return nil, err
	}

	var cases []Case
	for _, op := range ops {
		strategies, err := r.plan.StrategiesFor(r.strategies, op)
		if err != nil {
			return nil, err
		}
		for _, s := range strategies {
			for _, f := range r.fields.Fields() {
				for _, m := range modes {
					cases = append(cases, Case{
						Operator:    op,
						Strategy:    s,
						Field:       f,
						Mode:        m,
						DocCount:    docCount,
						NullPercent: r.plan.NullPercent,
					})
				}
			}
		}
	}
	return cases, nil
}

// Run executes every case. Case failures are recorded in the report; only
// a failure to build an index or a cancelled context aborts the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runID, err := r.ids.NewID()
	if err != nil {
		return nil, err
	}
	report := &Report{RunID: runID, Started: r.clock.Now(), TopK: r.plan.TopK, SortReverse: r.plan.SortReverse}
	logger := r.logger.With("run_id", runID)
	logger.Info("benchmark starting", "scales", r.plan.Scales(), "null_percent", r.plan.NullPercent)

	for _, docs := range r.plan.Scales() {
		ix, err := r.cache.Get(ctx, docs, r.plan.NullPercent)
		if err != nil {
			return nil, fmt.Errorf("index for %d docs: %w", docs, err)
		}
		cases, err := r.Cases(docs)
		if err != nil {
			return nil, err
		}
		for _, c := range cases {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res := r.runCase(ctx, ix, c)
			logger.Debug("case finished", "case", c.String(), "mean", res.Stats.Mean, "error", res.Error)
			report.Results = append(report.Results, res)
		}
	}

	report.Finished = r.clock.Now()
	logger.Info("benchmark finished", "cases", len(report.Results), "failed", len(report.Failed()))
	return report, nil
}

// skipReason explains why a case cannot run on its field.
func skipReason(c Case) string {
	switch {
	case c.Strategy.NeedsDocValues && !c.Field.Sortable:
		return "strategy needs doc values"
	case c.Mode.NeedsSort() && !c.Field.Sortable:
		return "mode sorts on a field without doc values"
	}
	return ""
}

func (r *Runner) runCase(ctx context.Context, ix *index.Index, c Case) Result {
	res := Result{
		Operator:    string(c.Operator),
		Strategy:    c.Strategy.Name,
		Field:       c.Field.ID,
		Mode:        c.Mode.Name,
		DocCount:    c.DocCount,
		NullPercent: c.NullPercent,
		Samples:     []time.Duration{},
	}
	if reason := skipReason(c); reason != "" {
		res.Skipped = reason
		return res
	}

	for i := 0; i < r.plan.Warmup+r.plan.Iterations; i++ {
		m, err := r.iteration(ctx, ix, c)
		if err != nil {
			res.Error = err.Error()
			res.TimedOut = errors.Is(err, ErrTimeout)
			if r.metrics != nil {
				r.metrics.ObserveError(c, errorKind(err))
			}
			break
		}
		res.Value = m.value
		if i < r.plan.Warmup {
			continue
		}
		res.Samples = append(res.Samples, m.elapsed)
		res.Hits = len(m.top.Hits)
		res.Total = m.top.Total
		if r.metrics != nil {
			r.metrics.ObserveSample(c, m.elapsed, len(m.top.Hits))
		}
	}
	res.Stats = Summarize(res.Samples)
	return res
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return ErrorKindTimeout
	case errs.IsConfiguration(err):
		return ErrorKindConfiguration
	case errs.IsEngineUnavailable(err):
		return ErrorKindEngine
	default:
		return ErrorKindOther
	}
}

type measurement struct {
	value   string
	elapsed time.Duration
	top     *index.TopDocs
}

type outcome struct {
	m   measurement
	err error
}

// iteration runs one measurement bounded by the plan's timeout. A search
// cannot be interrupted safely, so on timeout the measurement is abandoned:
// it keeps running in the background and closes its searcher when done.
func (r *Runner) iteration(ctx context.Context, ix *index.Index, c Case) (measurement, error) {
	if r.timeout <= 0 {
		return r.measure(ctx, ix, c)
	}

	done := make(chan outcome, 1)
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		m, err := r.measure(ctx, ix, c)
		done <- outcome{m, err}
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case o := <-done:
		return o.m, o.err
	case <-timer.C:
		r.logger.Warn("measurement abandoned", "case", c.String(), "timeout", r.timeout)
		return measurement{}, fmt.Errorf("%s: %w after %s", c, ErrTimeout, r.timeout)
	case <-ctx.Done():
		return measurement{}, ctx.Err()
	}
}

// measure opens a searcher, resolves the comparison value, then times
// building and executing the query.
func (r *Runner) measure(ctx context.Context, ix *index.Index, c Case) (measurement, error) {
	var m measurement
	err := ix.WithSearcher(ctx, func(s *index.Searcher) error {
		var value *string
		if c.Operator.NeedsValue() {
			v, err := RepresentativeValue(ctx, s, c.Field)
			if err != nil {
				return err
			}
			m.value = v
			value = &v
		}

		var sort *field.SortSpec
		if c.Mode.NeedsSort() {
			spec, err := c.Field.Sort()
			if err != nil {
				return err
			}
			spec.Reverse = r.plan.SortReverse
			sort = &spec
		}

		start := r.clock.Now()
		e, err := c.Strategy.Build(c.Field, value)
		if err != nil {
			return err
		}
		top, err := c.Mode.Execute(ctx, s, e, sort, r.plan.TopK)
		if err != nil {
			return err
		}
		m.elapsed = r.clock.Now().Sub(start)
		m.top = top
		return nil
	})
	return m, err
}

// Close waits for abandoned measurements and closes the cached indexes.
func (r *Runner) Close() error {
	r.inflight.Wait()
	return r.cache.Close()
}
