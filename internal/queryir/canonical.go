package queryir

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DomainQuery separates expression fingerprints from any other hash
// computed over the same canonical bytes. The version suffix allows the
// encoding to change later.
const DomainQuery = "nullbench/query/v1"

// MarshalCanonical renders an expression as RFC 8785 canonical JSON:
// object keys sorted by UTF-16 code units, strings NFC normalized, no HTML
// escaping, no insignificant whitespace. Open range bounds are omitted
// rather than encoded as null.
func MarshalCanonical(e Expr) ([]byte, error) {
	obj, err := toCanonical(e)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Fingerprint returns the hex SHA-256 of the canonical form, with domain
// separation: SHA256(domain + 0x00 + canonical).
func Fingerprint(e Expr) (string, error) {
	canonical, err := MarshalCanonical(e)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainQuery))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the expression is known to be well formed.
func MustFingerprint(e Expr) string {
	fp, err := Fingerprint(e)
	if err != nil {
		panic(err)
	}
	return fp
}

// toCanonical converts an expression into maps, slices, strings and bools.
func toCanonical(e Expr) (map[string]any, error) {
	switch q := e.(type) {
	case nil:
		return nil, fmt.Errorf("nil expression")
	case TermQuery:
		return map[string]any{"op": "term", "field": q.Field, "value": q.Value}, nil
	case RangeQuery:
		return rangeObject("range", q.Field, q.Lower, q.Upper), nil
	case ExistsQuery:
		return map[string]any{"op": "exists", "field": q.Field}, nil
	case DocValuesExistsQuery:
		return map[string]any{"op": "doc_values_exists", "field": q.Field}, nil
	case DocValuesRangeQuery:
		return rangeObject("doc_values_range", q.Field, q.Lower, q.Upper), nil
	case WildcardQuery:
		return map[string]any{"op": "wildcard", "field": q.Field, "pattern": q.Pattern}, nil
	case NullMarkerQuery:
		return map[string]any{"op": "null_marker", "field": q.Field}, nil
	case MatchAllQuery:
		return map[string]any{"op": "match_all"}, nil
	case NotQuery:
		clause, err := toCanonical(q.Clause)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		return map[string]any{"op": "not", "clause": clause}, nil
	case AndQuery:
		return booleanObject("and", q.Clauses)
	case OrQuery:
		return booleanObject("or", q.Clauses)
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", e)
	}
}

func rangeObject(op, field string, lower, upper *Bound) map[string]any {
	obj := map[string]any{
		"op":            op,
		"field":         field,
		"include_lower": lower != nil && lower.Inclusive,
		"include_upper": upper != nil && upper.Inclusive,
	}
	if lower != nil {
		obj["lower"] = lower.Value
	}
	if upper != nil {
		obj["upper"] = upper.Value
	}
	return obj
}

func booleanObject(op string, clauses []Expr) (map[string]any, error) {
	list := make([]any, len(clauses))
	for i, c := range clauses {
		obj, err := toCanonical(c)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", op, i, err)
		}
		list[i] = obj
	}
	return map[string]any{"op": op, "clauses": list}, nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case string:
		writeCanonicalString(buf, val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		// RFC 8785 orders keys by UTF-16 code units, not UTF-8 bytes.
		slices.SortFunc(keys, compareUTF16)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString escapes only what RFC 8785 requires: quote,
// backslash and control characters below U+0020.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	const hexDigits = "0123456789abcdef"

	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexDigits[r>>4])
			buf.WriteByte(hexDigits[r&0xF])
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
