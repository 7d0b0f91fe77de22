package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/nullbench/internal/searchmode"
	"github.com/roach88/nullbench/internal/strategy"
)

// StrategyInfo describes one catalogued strategy.
type StrategyInfo struct {
	Operator       string `json:"operator"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	NeedsDocValues bool   `json:"needs_doc_values"`
}

// ModeInfo describes one search mode.
type ModeInfo struct {
	Name       string `json:"name"`
	Sorted     bool   `json:"sorted"`
	CountTotal bool   `json:"count_total"`
}

// Catalogue is the output of the list command.
type Catalogue struct {
	Operators  []string       `json:"operators"`
	Strategies []StrategyInfo `json:"strategies"`
	Modes      []ModeInfo     `json:"modes"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List operators, strategies and search modes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			cat := listCatalogue(strategy.Default(), searchmode.Default())
			return formatter.Success(cat, func(w io.Writer) error {
				return writeCatalogue(w, cat)
			})
		},
	}
}

func listCatalogue(strategies *strategy.Catalogue, modes *searchmode.Catalogue) Catalogue {
	var cat Catalogue
	for _, op := range strategy.Operators {
		cat.Operators = append(cat.Operators, string(op))
		for _, s := range strategies.All(op) {
			cat.Strategies = append(cat.Strategies, StrategyInfo{
				Operator:       string(op),
				Name:           s.Name,
				Description:    s.Description,
				NeedsDocValues: s.NeedsDocValues,
			})
		}
	}
	for _, m := range modes.All() {
		cat.Modes = append(cat.Modes, ModeInfo{Name: m.Name, Sorted: m.Sorted, CountTotal: m.CountTotal})
	}
	return cat
}

func writeCatalogue(w io.Writer, cat Catalogue) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPERATOR\tSTRATEGY\tDOC VALUES\tDESCRIPTION")
	for _, s := range cat.Strategies {
		dv := ""
		if s.NeedsDocValues {
			dv = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Operator, s.Name, dv, s.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODE\tSORTED\tTOTAL")
	for _, m := range cat.Modes {
		fmt.Fprintf(tw, "%s\t%t\t%t\n", m.Name, m.Sorted, m.CountTotal)
	}
	return tw.Flush()
}
