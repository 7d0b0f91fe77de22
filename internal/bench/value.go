package bench

import (
	"context"

	"github.com/roach88/nullbench/internal/field"
	"github.com/roach88/nullbench/internal/index"
	"github.com/roach88/nullbench/internal/queryir"
	"github.com/roach88/nullbench/internal/strategy"
)

// BoolValue is the comparison value used for the boolean-as-string field.
const BoolValue = "TRUE"

// FallbackValue is compared against when a field has no value in the
// index. It is never generated, so NOT EQUAL reduces to IS NOT NULL.
const FallbackValue = "~absent~"

// DocumentSearcher finds a document and reads its stored fields.
type DocumentSearcher interface {
	Search(ctx context.Context, e queryir.Expr, req index.Request) (*index.TopDocs, error)
	Document(ctx context.Context, docID int64) (index.Document, error)
}

// RepresentativeValue returns the NOT EQUAL comparison value for f: "TRUE"
// for the boolean field, otherwise the value of the first document that
// carries f.
func RepresentativeValue(ctx context.Context, s DocumentSearcher, f field.Field) (string, error) {
	if f.ID == field.BoolString {
		return BoolValue, nil
	}
	top, err := s.Search(ctx, queryir.Wildcard(f.Name, strategy.AnyTerm), index.Request{K: 1})
	if err != nil {
		return "", err
	}
	if len(top.Hits) == 0 {
		return FallbackValue, nil
	}
	doc, err := s.Document(ctx, top.Hits[0].DocID)
	if err != nil {
		return "", err
	}
	v, ok := doc.Fields[f.Name]
	if !ok {
		return FallbackValue, nil
	}
	return v, nil
}
