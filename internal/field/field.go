// Package field describes the queryable string fields of an index and how
// they sort.
//
// A Catalogue is built once at startup and passed by value thereafter; it is
// never mutated, so it is safe to share between goroutines.
package field

import (
	"fmt"
	"slices"

	"github.com/roach88/nullbench/internal/errs"
)

// Catalogue identifiers and indexed names of the default fields.
const (
	PKString   = "PK_STRING"
	BoolString = "BOOL_STRING"

	PKStringName   = "pk_str_field"
	BoolStringName = "bool_str_field"
)

// Field identifies a stored and indexed string column.
type Field struct {
	// ID is the catalogue identifier (e.g. "PK_STRING").
	ID string `json:"id"`

	// Name is the indexed field name (e.g. "pk_str_field").
	Name string `json:"name"`

	// Sortable means the field also carries doc values, which makes it
	// usable for sorting and for column-store existence checks.
	Sortable bool `json:"sortable"`
}

// SortSpec orders hits by a field's doc values.
//
// Values compare in binary (byte-wise) order. Documents missing the field
// sort before all present values; Reverse flips both.
type SortSpec struct {
	Field   string `json:"field"`
	Reverse bool   `json:"reverse,omitempty"`
}

func (s SortSpec) String() string {
	if s.Reverse {
		return s.Field + " DESC"
	}
	return s.Field + " ASC"
}

// Sort returns the field's total order.
// Fails with a configuration error when the field has no doc values.
func (f Field) Sort() (SortSpec, error) {
	if !f.Sortable {
		return SortSpec{}, errs.Configuration("sort", f.Name, "field has no doc values")
	}
	return SortSpec{Field: f.Name}, nil
}

// NullPolicy is the fraction of documents, in percent, that omit a field.
type NullPolicy struct {
	Percent int `json:"null_percent"`
}

// Validate checks the percentage is within 0..100.
func (p NullPolicy) Validate() error {
	if p.Percent < 0 || p.Percent > 100 {
		return fmt.Errorf("null percent %d out of range [0, 100]", p.Percent)
	}
	return nil
}

// Catalogue is an immutable, ordered set of fields keyed by ID.
type Catalogue struct {
	fields []Field
	byID   map[string]int
	byName map[string]int
}

// NewCatalogue builds a catalogue. IDs and names must be non-empty and unique.
func NewCatalogue(fields ...Field) (Catalogue, error) {
	c := Catalogue{
		fields: make([]Field, 0, len(fields)),
		byID:   make(map[string]int, len(fields)),
		byName: make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.ID == "" || f.Name == "" {
			return Catalogue{}, fmt.Errorf("field %+v: id and name are required", f)
		}
		if _, dup := c.byID[f.ID]; dup {
			return Catalogue{}, fmt.Errorf("duplicate field id %q", f.ID)
		}
		if _, dup := c.byName[f.Name]; dup {
			return Catalogue{}, fmt.Errorf("duplicate field name %q", f.Name)
		}
		c.byID[f.ID] = len(c.fields)
		c.byName[f.Name] = len(c.fields)
		c.fields = append(c.fields, f)
	}
	return c, nil
}

// MustCatalogue is like NewCatalogue but panics on error.
// Use only with static field lists.
func MustCatalogue(fields ...Field) Catalogue {
	c, err := NewCatalogue(fields...)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCatalogue returns the two fields the benchmark queries: a unique,
// always-present string and a two-valued boolean-as-string.
func DefaultCatalogue() Catalogue {
	return MustCatalogue(
		Field{ID: PKString, Name: PKStringName, Sortable: true},
		Field{ID: BoolString, Name: BoolStringName, Sortable: true},
	)
}

// Lookup returns the field with the given ID.
func (c Catalogue) Lookup(id string) (Field, error) {
	i, ok := c.byID[id]
	if !ok {
		return Field{}, errs.Configuration("lookup field", "", "unknown field id %q (known: %v)", id, c.IDs())
	}
	return c.fields[i], nil
}

// ByName returns the field with the given indexed name.
func (c Catalogue) ByName(name string) (Field, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Field{}, false
	}
	return c.fields[i], true
}

// Fields returns the fields in declaration order. The slice is a copy.
func (c Catalogue) Fields() []Field {
	return slices.Clone(c.fields)
}

// IDs returns the field IDs in declaration order.
func (c Catalogue) IDs() []string {
	ids := make([]string, len(c.fields))
	for i, f := range c.fields {
		ids[i] = f.ID
	}
	return ids
}

// Len returns the number of fields.
func (c Catalogue) Len() int {
	return len(c.fields)
}
