package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/nullbench/internal/bench"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	planFlags
}

// GeneratedIndex describes one index produced by generate.
type GeneratedIndex struct {
	Path        string `json:"path"`
	DocCount    int64  `json:"doc_count"`
	NullPercent int    `json:"null_percent"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate benchmark indexes without running queries",
		Long: `Build the index for every planned document count so later runs can
reuse it. Existing indexes are kept unless --override is set.

Examples:
  nullbench generate --docs 1000000,10000000
  nullbench generate --plan plan.yaml --override`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), cmd, opts)
		},
	}

	opts.planFlags.register(cmd)
	return cmd
}

func runGenerate(ctx context.Context, cmd *cobra.Command, opts *GenerateOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	plan, err := opts.plan(cmd, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid plan", err)
	}
	runner, err := bench.NewRunner(plan, bench.WithLogger(logger))
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid plan", err)
	}
	defer func() {
		if cerr := runner.Close(); cerr != nil && err == nil {
			err = formatter.Fail(ExitFailure, "close indexes", cerr)
		}
	}()

	var out []GeneratedIndex
	for _, docs := range plan.Scales() {
		ix, err := runner.Indexes().Get(ctx, docs, plan.NullPercent)
		if err != nil {
			return formatter.Fail(ExitFailure, fmt.Sprintf("generate %d documents", docs), err)
		}
		out = append(out, GeneratedIndex{Path: ix.Path(), DocCount: docs, NullPercent: plan.NullPercent})
		formatter.VerboseLog("index ready: %s", ix.Path())
	}

	return formatter.Success(out, func(w io.Writer) error {
		for _, g := range out {
			fmt.Fprintf(w, "%s\t%d docs\t%d%% null\n", g.Path, g.DocCount, g.NullPercent)
		}
		return nil
	})
}
