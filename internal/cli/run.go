package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/nullbench/internal/bench"
	"github.com/roach88/nullbench/internal/config"
)

// planFlags are the plan overrides shared by run and generate.
type planFlags struct {
	PlanPath    string
	DocCounts   []int64
	NullPercent int
	TopK        int
	Warmup      int
	Iterations  int
	Timeout     string
	IndexDir    string
	Override    bool
	Seed        uint64
}

func (pf *planFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&pf.PlanPath, "plan", "", "benchmark plan file (.cue, .yaml or .yml)")
	flags.Int64SliceVar(&pf.DocCounts, "docs", nil, "document counts to benchmark")
	flags.IntVar(&pf.NullPercent, "null-percent", 0, "percentage of documents missing each field; fields with their own nullPercent keep it")
	flags.IntVar(&pf.TopK, "top-k", 0, "hits collected per query")
	flags.IntVar(&pf.Warmup, "warmup", 0, "untimed iterations per case")
	flags.IntVar(&pf.Iterations, "iterations", 0, "timed iterations per case")
	flags.StringVar(&pf.Timeout, "timeout", "", "per-iteration timeout (e.g. 1m, 30s)")
	flags.StringVar(&pf.IndexDir, "index-dir", "", "directory holding generated indexes")
	flags.BoolVar(&pf.Override, "override", false, "rebuild indexes even when they exist")
	flags.Uint64Var(&pf.Seed, "seed", 0, "data generation seed")
}

// plan loads the plan and applies the flags the user set.
func (pf *planFlags) plan(cmd *cobra.Command, logger *slog.Logger) (config.Plan, error) {
	p := config.Default()
	if pf.PlanPath != "" {
		loaded, err := config.Load(pf.PlanPath)
		if err != nil {
			return config.Plan{}, err
		}
		p = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("docs") {
		p.DocCounts = pf.DocCounts
	}
	if flags.Changed("null-percent") {
		p.NullPercent = pf.NullPercent
		for _, f := range p.Fields {
			if f.NullPercent != nil {
				logger.Debug("field keeps its own nullPercent", "field", f.Name, "null_percent", *f.NullPercent, "flag", pf.NullPercent)
			}
		}
	}
	if flags.Changed("top-k") {
		p.TopK = pf.TopK
	}
	if flags.Changed("warmup") {
		p.Warmup = pf.Warmup
	}
	if flags.Changed("iterations") {
		p.Iterations = pf.Iterations
	}
	if flags.Changed("timeout") {
		p.Timeout = pf.Timeout
	}
	if flags.Changed("index-dir") {
		p.IndexDir = pf.IndexDir
	}
	if flags.Changed("override") {
		p.Override = pf.Override
	}
	if flags.Changed("seed") {
		p.Seed = pf.Seed
	}
	return p, p.Validate()
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	planFlags
	MetricsOut string
	History    string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark",
		Long: `Run every planned operator, strategy, field and search mode against
generated indexes, one per document count, and report latency statistics.

Indexes are reused between runs unless --override is set.

Examples:
  nullbench run --docs 100000
  nullbench run --plan plan.cue --format json
  nullbench run --docs 1000000 --metrics-out bench.prom
  nullbench run --docs 1000000 --history runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd.Context(), cmd, opts)
		},
	}

	opts.planFlags.register(cmd)
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics in text format to this file")
	cmd.Flags().StringVar(&opts.History, "history", "", "record the run in this history database")

	return cmd
}

func runBenchmark(ctx context.Context, cmd *cobra.Command, opts *RunOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	plan, err := opts.plan(cmd, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid plan", err)
	}

	metrics := bench.NewMetrics()
	runner, err := bench.NewRunner(plan,
		bench.WithLogger(logger),
		bench.WithMetrics(metrics),
	)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid plan", err)
	}
	defer func() {
		if cerr := runner.Close(); cerr != nil && err == nil {
			err = formatter.Fail(ExitFailure, "close indexes", cerr)
		}
	}()

	report, err := runner.Run(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, "benchmark aborted", err)
	}

	if opts.MetricsOut != "" {
		if err := metrics.WriteTextfile(opts.MetricsOut); err != nil {
			return formatter.Fail(ExitFailure, "write metrics", err)
		}
		formatter.VerboseLog("metrics written to %s", opts.MetricsOut)
	}
	if opts.History != "" {
		if err := saveHistory(ctx, opts.History, report); err != nil {
			return formatter.Fail(ExitFailure, "record history", err)
		}
		formatter.VerboseLog("run %s recorded in %s", report.RunID, opts.History)
	}

	if err := formatter.Success(report, func(w io.Writer) error {
		return bench.WriteText(w, report)
	}); err != nil {
		return err
	}

	if failed := report.Failed(); len(failed) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d cases failed", len(failed), len(report.Results)))
	}
	return nil
}
