// Package config loads benchmark plans. A plan is a CUE or YAML file
// unified with the embedded #Plan schema, so type errors, out-of-range
// values and unknown keys are reported before anything runs.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/nullbench/internal/datagen"
	"github.com/roach88/nullbench/internal/errs"
	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/searchmode"
	"github.com/roach88/nullbench/internal/strategy"
)

//go:embed schema.cue
var schemaCUE string

// DefaultDocCounts are the benchmark scales used when a plan names none.
var DefaultDocCounts = []int64{1_000_000, 10_000_000, 100_000_000}

// DefaultStringLength is the length of generated unique values.
const DefaultStringLength = 20

// FieldSpec describes one generated field.
type FieldSpec struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Sortable bool   `json:"sortable"`
	Kind     string `json:"kind"`
	Length   int    `json:"length"`

	// NullPercent overrides the plan-wide null percentage for this field.
	NullPercent *int `json:"nullPercent,omitempty"`
}

// Field returns the index field s describes.
func (s FieldSpec) Field() field.Field {
	return field.Field{ID: s.ID, Name: s.Name, Sortable: s.Sortable}
}

// Plan is a benchmark plan. Empty lists mean "everything" (all operators,
// all strategies of an operator, all modes) or the defaults (fields, doc
// counts).
type Plan struct {
	Fields      []FieldSpec         `json:"fields,omitempty"`
	DocCounts   []int64             `json:"docCounts,omitempty"`
	NullPercent int                 `json:"nullPercent"`
	TopK        int                 `json:"topK"`
	Operators   []string            `json:"operators,omitempty"`
	Strategies  map[string][]string `json:"strategies,omitempty"`
	Modes       []string            `json:"modes,omitempty"`
	SortReverse bool                `json:"sortReverse"`
	Warmup      int                 `json:"warmup"`
	Iterations  int                 `json:"iterations"`
	Timeout     string              `json:"timeout"`
	IndexDir    string              `json:"indexDir"`
	Override    bool                `json:"override"`
	Seed        uint64              `json:"seed"`
	BatchSize   int                 `json:"batchSize"`
}

// DefaultFields is the two-field catalogue of the benchmark: a unique key
// and a boolean-as-string.
func DefaultFields() []FieldSpec {
	return []FieldSpec{
		{ID: field.PKString, Name: field.PKStringName, Sortable: true, Kind: string(datagen.KindUnique), Length: DefaultStringLength},
		{ID: field.BoolString, Name: field.BoolStringName, Sortable: true, Kind: string(datagen.KindAlternating), Length: DefaultStringLength},
	}
}

// Default returns the plan used when no file is given.
func Default() Plan {
	p, err := parse(cuecontext.New(), "default.cue", []byte("{}"))
	if err != nil {
		panic(fmt.Sprintf("embedded plan schema: %v", err))
	}
	return p
}

// Load reads a plan from a .cue, .yaml or .yml file.
func Load(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, errs.Configuration("load plan", "", "read %s: %v", path, err)
	}
	return Parse(path, data)
}

// Parse decodes plan data. The file name selects the format.
func Parse(name string, data []byte) (Plan, error) {
	return parse(cuecontext.New(), name, data)
}

func parse(ctx *cue.Context, name string, data []byte) (Plan, error) {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Plan{}, fmt.Errorf("compile plan schema: %w", err)
	}

	var v cue.Value
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".cue":
		v = ctx.CompileBytes(data, cue.Filename(name))
	case ".yaml", ".yml":
		raw := map[string]any{}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return Plan{}, errs.Configuration("load plan", "", "parse %s: %v", name, err)
		}
		v = ctx.Encode(raw)
	default:
		return Plan{}, errs.Configuration("load plan", "", "unsupported plan format %q (want .cue, .yaml or .yml)", ext)
	}
	if err := v.Err(); err != nil {
		return Plan{}, errs.Configuration("load plan", "", "%s: %v", name, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Plan")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Plan{}, errs.Configuration("validate plan", "", "%s: %v", name, err)
	}

	var p Plan
	if err := unified.Decode(&p); err != nil {
		return Plan{}, errs.Configuration("decode plan", "", "%s: %v", name, err)
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Validate checks the cross-field rules the schema cannot express: unique
// field ids and names, known strategy and mode names, a parseable timeout.
func (p Plan) Validate() error {
	if _, err := p.Catalogue(); err != nil {
		return err
	}
	if _, err := p.TimeoutDuration(); err != nil {
		return err
	}
	ops, err := p.OperatorList()
	if err != nil {
		return err
	}
	for _, op := range ops {
		if _, err := p.StrategiesFor(strategy.Default(), op); err != nil {
			return err
		}
	}
	for op := range p.Strategies {
		parsed, err := strategy.ParseOperator(op)
		if err != nil {
			return err
		}
		if !slices.Contains(ops, parsed) {
			return errs.Configuration("validate plan", "", "strategies listed for %s, which is not a planned operator", op)
		}
	}
	if _, err := p.ModeList(searchmode.Default()); err != nil {
		return err
	}
	for _, n := range p.DocCounts {
		if n <= 0 {
			return errs.Configuration("validate plan", "", "doc count must be positive, got %d", n)
		}
	}
	if p.TopK <= 0 {
		return errs.Configuration("validate plan", "", "topK must be positive, got %d", p.TopK)
	}
	if p.Warmup < 0 {
		return errs.Configuration("validate plan", "", "warmup must not be negative, got %d", p.Warmup)
	}
	if p.Iterations <= 0 {
		return errs.Configuration("validate plan", "", "iterations must be positive, got %d", p.Iterations)
	}
	return field.NullPolicy{Percent: p.NullPercent}.Validate()
}

// FieldSpecs returns the plan's fields, or the defaults.
func (p Plan) FieldSpecs() []FieldSpec {
	if len(p.Fields) == 0 {
		return DefaultFields()
	}
	return slices.Clone(p.Fields)
}

// Catalogue builds the field catalogue.
func (p Plan) Catalogue() (field.Catalogue, error) {
	specs := p.FieldSpecs()
	fields := make([]field.Field, len(specs))
	for i, s := range specs {
		fields[i] = s.Field()
	}
	c, err := field.NewCatalogue(fields...)
	if err != nil {
		return field.Catalogue{}, errs.Configuration("plan fields", "", "%v", err)
	}
	return c, nil
}

// NullPercentFor returns the null percentage of a field.
func (p Plan) NullPercentFor(s FieldSpec) int {
	if s.NullPercent != nil {
		return *s.NullPercent
	}
	return p.NullPercent
}

// Factories returns a value factory per field name, with null injection
// applied.
func (p Plan) Factories() (map[string]datagen.FieldFactory, error) {
	out := map[string]datagen.FieldFactory{}
	for _, s := range p.FieldSpecs() {
		f, err := datagen.NewFactory(datagen.Kind(s.Kind), s.Length)
		if err != nil {
			return nil, errs.Configuration("plan factories", s.Name, "%v", err)
		}
		out[s.Name] = datagen.WithNulls(f, p.NullPercentFor(s))
	}
	return out, nil
}

// GenerationParams describes how Factories generate each field, keyed
// "field.<name>.<param>". Generated indexes record them so a cached index
// is only reused for the same data.
func (p Plan) GenerationParams() map[string]string {
	out := map[string]string{}
	for _, s := range p.FieldSpecs() {
		prefix := "field." + s.Name + "."
		out[prefix+"kind"] = s.Kind
		out[prefix+"length"] = strconv.Itoa(s.Length)
		out[prefix+"null_percent"] = strconv.Itoa(p.NullPercentFor(s))
	}
	return out
}

// Scales returns the planned doc counts, or the defaults.
func (p Plan) Scales() []int64 {
	if len(p.DocCounts) == 0 {
		return slices.Clone(DefaultDocCounts)
	}
	return slices.Clone(p.DocCounts)
}

// StringLength is the longest unique-value length, used to key cached
// indexes.
func (p Plan) StringLength() int {
	n := 0
	for _, s := range p.FieldSpecs() {
		if s.Kind == string(datagen.KindUnique) {
			n = max(n, s.Length)
		}
	}
	return n
}

// OperatorList returns the planned operators in benchmark order.
func (p Plan) OperatorList() ([]strategy.Operator, error) {
	if len(p.Operators) == 0 {
		return slices.Clone(strategy.Operators), nil
	}
	var ops []strategy.Operator
	for _, name := range p.Operators {
		op, err := strategy.ParseOperator(name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(ops, op) {
			ops = append(ops, op)
		}
	}
	return ops, nil
}

// StrategiesFor resolves the planned strategies of op against c.
func (p Plan) StrategiesFor(c *strategy.Catalogue, op strategy.Operator) ([]strategy.Strategy, error) {
	names := p.Strategies[string(op)]
	if len(names) == 0 {
		return c.All(op), nil
	}
	out := make([]strategy.Strategy, 0, len(names))
	for _, name := range names {
		s, err := c.Lookup(op, name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ModeList resolves the planned search modes against c.
func (p Plan) ModeList(c *searchmode.Catalogue) ([]searchmode.Mode, error) {
	if len(p.Modes) == 0 {
		return c.All(), nil
	}
	out := make([]searchmode.Mode, 0, len(p.Modes))
	for _, name := range p.Modes {
		m, err := c.Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// TimeoutDuration parses the per-measurement timeout. Zero disables it.
func (p Plan) TimeoutDuration() (time.Duration, error) {
	if p.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil || d < 0 {
		return 0, errs.Configuration("validate plan", "", "invalid timeout %q", p.Timeout)
	}
	return d, nil
}
