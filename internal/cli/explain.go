package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nullbench/internal/config"
	"github.com/roach88/nullbench/internal/errs"
	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/queryir"
	"github.com/roach88/nullbench/internal/querysql"
	"github.com/roach88/nullbench/internal/strategy"
)

// Explanation is one strategy rendered for a field.
type Explanation struct {
	Strategy    string `json:"strategy"`
	Description string `json:"description"`
	Query       string `json:"query"`
	Fingerprint string `json:"fingerprint"`
	SQL         string `json:"sql"`
	Params      []any  `json:"params"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <operator> <field> [value]",
		Short: "Show the query each strategy builds",
		Long: `Print, for every strategy applicable to the operator and field, the
index query it builds, its fingerprint and the SQL it compiles to.

The field is a field id (pk, bool) or an indexed field name. NOT EQUAL
needs a comparison value; the other operators take none.

Examples:
  nullbench explain "<>" pk abc
  nullbench explain IS_NULL bool_str_field --format json`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			out, err := explain(config.DefaultFields(), args)
			if err != nil {
				return formatter.Fail(ExitCommandError, "explain", err)
			}
			return formatter.Success(out, func(w io.Writer) error {
				for _, e := range out {
					fmt.Fprintf(w, "%s  %s\n  query: %s\n  fingerprint: %s\n  sql: %s\n  params: %v\n\n",
						e.Strategy, e.Description, e.Query, e.Fingerprint, e.SQL, e.Params)
				}
				return nil
			})
		},
	}
}

func explain(specs []config.FieldSpec, args []string) ([]Explanation, error) {
	op, err := strategy.ParseOperator(args[0])
	if err != nil {
		return nil, err
	}
	f, err := resolveField(specs, args[1])
	if err != nil {
		return nil, err
	}
	var value *string
	if len(args) == 3 {
		value = &args[2]
	}

	compiler := querysql.NewCompiler()
	var out []Explanation
	for _, s := range strategy.Default().Applicable(op, f) {
		e, err := s.Build(f, value)
		if err != nil {
			return nil, err
		}
		fp, err := queryir.Fingerprint(e)
		if err != nil {
			return nil, err
		}
		sql, params, err := compiler.CompileSet(e)
		if err != nil {
			return nil, err
		}
		out = append(out, Explanation{
			Strategy:    s.Name,
			Description: s.Description,
			Query:       queryir.String(e),
			Fingerprint: fp,
			SQL:         sql,
			Params:      params,
		})
	}
	return out, nil
}

func resolveField(specs []config.FieldSpec, name string) (field.Field, error) {
	var known []string
	for _, s := range specs {
		if strings.EqualFold(s.ID, name) || strings.EqualFold(fieldAlias(s.ID), name) || s.Name == name {
			return s.Field(), nil
		}
		known = append(known, s.ID)
	}
	return field.Field{}, errs.Configuration("resolve field", name, "unknown field (known: %v)", known)
}

// fieldAlias shortens "PK_STRING" to "pk".
func fieldAlias(id string) string {
	alias, _, _ := strings.Cut(id, "_")
	return strings.ToLower(alias)
}
