package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/nullbench/internal/bench"
	"github.com/roach88/nullbench/internal/conformance"
	"github.com/roach88/nullbench/internal/errs"
	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/index"
	"github.com/roach88/nullbench/internal/searchmode"
	"github.com/roach88/nullbench/internal/strategy"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	IndexPath string
	Value     string
}

// FieldVerification is the conformance outcome for one field.
type FieldVerification struct {
	Field      string                  `json:"field"`
	Value      string                  `json:"value"`
	Violations []conformance.Violation `json:"violations"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every strategy returns the SQL-correct documents",
		Long: `Run the conformance checks against an existing index: strategies of
one operator match the same documents, NOT EQUAL excludes absent documents
and the compared value, IS NULL and IS NOT NULL partition the index, and
every search mode returns members of the full match set.

The NOT EQUAL value defaults to a value present in each field.

Exit codes:
  0 - All checks pass
  1 - Violations found
  2 - Command error (index missing, engine error)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.IndexPath, "index", "", "index file to verify (required)")
	cmd.Flags().StringVar(&opts.Value, "value", "", "NOT EQUAL comparison value for every field")
	_ = cmd.MarkFlagRequired("index")

	return cmd
}

func runVerify(ctx context.Context, cmd *cobra.Command, opts *VerifyOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if !index.Exists(opts.IndexPath) {
		return formatter.Fail(ExitCommandError, "open index",
			errs.Configuration("open index", "", "no index at %s", opts.IndexPath))
	}
	ix, err := index.Open(opts.IndexPath, index.WithLogger(logger))
	if err != nil {
		return formatter.Fail(ExitCommandError, "open index", err)
	}
	defer ix.Close()

	checker := conformance.Checker{
		Strategies: strategy.Default(),
		Modes:      searchmode.Default(),
		Logger:     logger,
	}

	var results []FieldVerification
	err = ix.WithSearcher(ctx, func(s *index.Searcher) error {
		for _, f := range ix.Fields().Fields() {
			value := opts.Value
			if !cmd.Flags().Changed("value") {
				v, err := bench.RepresentativeValue(ctx, s, f)
				if err != nil {
					return err
				}
				value = v
			}
			violations, err := checker.Check(ctx, s, []field.Field{f}, value)
			if err != nil {
				return err
			}
			results = append(results, FieldVerification{Field: f.ID, Value: value, Violations: violations})
		}
		return nil
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, "verify", err)
	}

	var total int
	for _, r := range results {
		total += len(r.Violations)
	}
	if err := formatter.Success(results, func(w io.Writer) error {
		for _, r := range results {
			fmt.Fprintf(w, "%s (value %q): %d violations\n", r.Field, r.Value, len(r.Violations))
			for _, v := range r.Violations {
				fmt.Fprintf(w, "  %s\n", v)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	if total > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d conformance violations", total))
	}
	return nil
}
