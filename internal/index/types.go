package index

import "github.com/roach88/nullbench/internal/field"

// Document is one indexed document. A field missing from Fields is NULL.
type Document struct {
	ID     int64
	Fields map[string]string
}

// Request describes how a search is executed.
type Request struct {
	// Sort orders hits by a field's doc values. Nil keeps insertion order.
	Sort *field.SortSpec

	// K is the maximum number of hits returned. Must be positive.
	K int

	// CountTotal requests an exact total-hit count in addition to the
	// top K.
	CountTotal bool
}

// Hit is one matching document.
type Hit struct {
	DocID int64

	// SortValue is the document's value for the sort field, nil when the
	// search was unsorted or the document lacks the field.
	SortValue *string
}

// Relation qualifies a TotalHits value.
type Relation string

const (
	// EqualTo means the total is exact.
	EqualTo Relation = "EQUAL_TO"

	// GreaterThanOrEqualTo means the total is a lower bound: collection
	// stopped after K hits.
	GreaterThanOrEqualTo Relation = "GREATER_THAN_OR_EQUAL_TO"
)

// TotalHits reports how many documents matched.
type TotalHits struct {
	Value    int64    `json:"value"`
	Relation Relation `json:"relation"`
}

// TopDocs is the result of a search.
type TopDocs struct {
	Hits  []Hit
	Total TotalHits
}

// DocIDs returns the hit document ids in result order.
func (t *TopDocs) DocIDs() []int64 {
	ids := make([]int64, len(t.Hits))
	for i, h := range t.Hits {
		ids[i] = h.DocID
	}
	return ids
}
