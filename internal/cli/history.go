package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/nullbench/internal/bench"
	"github.com/roach88/nullbench/internal/store"
)

// HistoryOptions holds flags for the history commands.
type HistoryOptions struct {
	*RootOptions
	DBPath string
}

// NewHistoryCommand creates the history command and its subcommands.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect benchmark runs recorded with run --history",
		Long: `List, show and compare benchmark runs recorded in a history database.

Examples:
  nullbench history list --db runs.db
  nullbench history show --db runs.db 01927c3e-...
  nullbench history compare --db runs.db <baseline-run> <candidate-run>`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "history database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List recorded runs, oldest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, opts, func(ctx context.Context, s *store.Store, f *OutputFormatter) error {
				runs, err := s.Runs(ctx)
				if err != nil {
					return f.Fail(ExitCommandError, "list runs", err)
				}
				return f.Success(runs, func(w io.Writer) error {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "RUN\tSTARTED\tTOP K\tCASES\tFAILED")
					for _, r := range runs {
						fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", r.RunID, r.Started, r.TopK, r.Cases, r.Failed)
					}
					return tw.Flush()
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "show <run-id>",
		Short:         "Print a recorded run",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, opts, func(ctx context.Context, s *store.Store, f *OutputFormatter) error {
				report, err := s.Report(ctx, args[0])
				if err != nil {
					return f.Fail(ExitCommandError, "show run", err)
				}
				return f.Success(report, func(w io.Writer) error {
					return bench.WriteText(w, report)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "compare <baseline-run> <candidate-run>",
		Short:         "Compare mean latency of the cases two runs share",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, opts, func(ctx context.Context, s *store.Store, f *OutputFormatter) error {
				deltas, err := s.Compare(ctx, args[0], args[1])
				if err != nil {
					return f.Fail(ExitCommandError, "compare runs", err)
				}
				return f.Success(deltas, func(w io.Writer) error {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "DOCS\tOPERATOR\tSTRATEGY\tFIELD\tMODE\tBASE ms\tCAND ms\tRATIO")
					for _, d := range deltas {
						fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.3f\t%.3f\t%.2f\n",
							d.DocCount, d.Operator, d.Strategy, d.Field, d.Mode,
							d.Baseline.Seconds()*1000, d.Candidate.Seconds()*1000, d.Ratio)
					}
					return tw.Flush()
				})
			})
		},
	})

	return cmd
}

func withHistory(cmd *cobra.Command, opts *HistoryOptions, fn func(context.Context, *store.Store, *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := store.Open(opts.DBPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, "open history", err)
	}
	defer s.Close()
	return fn(ctx, s, formatter)
}

// saveHistory records report in the history database at path.
func saveHistory(ctx context.Context, path string, report *bench.Report) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	_, err = s.SaveReport(ctx, report)
	return errors.Join(err, s.Close())
}
