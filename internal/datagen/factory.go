// Package datagen builds synthetic indexes for the benchmark: one string
// value per field per document, with a configurable share of documents
// omitting each field.
package datagen

import (
	"fmt"
	"math/rand/v2"
)

// ValueContext is passed to a FieldFactory for each document.
type ValueContext struct {
	DocID int64
	Rand  *rand.Rand
}

// FieldFactory produces a field value for a document. ok is false when the
// document omits the field.
type FieldFactory interface {
	Value(vc ValueContext) (value string, ok bool)
}

// FactoryFunc adapts a function to FieldFactory.
type FactoryFunc func(vc ValueContext) (string, bool)

// Value calls f.
func (f FactoryFunc) Value(vc ValueContext) (string, bool) {
	return f(vc)
}

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomString returns a factory of random alphanumeric strings of the given
// length. With the default length of 20 collisions are negligible, so the
// values behave as a primary key.
func RandomString(length int) FieldFactory {
	return FactoryFunc(func(vc ValueContext) (string, bool) {
		b := make([]byte, length)
		for i := range b {
			b[i] = alphanumeric[vc.Rand.IntN(len(alphanumeric))]
		}
		return string(b), true
	})
}

// Alternating returns even for even doc ids and odd otherwise.
func Alternating(even, odd string) FieldFactory {
	return FactoryFunc(func(vc ValueContext) (string, bool) {
		if vc.DocID%2 == 0 {
			return even, true
		}
		return odd, true
	})
}

// Bool is the two-valued string field: "TRUE" on even doc ids.
func Bool() FieldFactory {
	return Alternating("TRUE", "FALSE")
}

type nullable struct {
	inner   FieldFactory
	percent int
}

// WithNulls makes f omit its field on about percent% of documents. 0 never
// omits and 100 always does.
func WithNulls(f FieldFactory, percent int) FieldFactory {
	return nullable{inner: f, percent: percent}
}

func (n nullable) Value(vc ValueContext) (string, bool) {
	switch {
	case n.percent <= 0:
		return n.inner.Value(vc)
	case n.percent >= 100:
		return "", false
	}
	if vc.Rand.IntN(100) < n.percent {
		return "", false
	}
	return n.inner.Value(vc)
}

// Kind names a built-in factory.
type Kind string

const (
	KindUnique      Kind = "unique"
	KindAlternating Kind = "alternating"
)

// NewFactory builds a built-in factory by kind.
func NewFactory(kind Kind, length int) (FieldFactory, error) {
	switch kind {
	case KindUnique:
		if length <= 0 {
			return nil, fmt.Errorf("unique values need a positive length, got %d", length)
		}
		return RandomString(length), nil
	case KindAlternating:
		return Bool(), nil
	default:
		return nil, fmt.Errorf("unknown factory kind %q", kind)
	}
}
