package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	testCases := []struct {
		name string
		expr Expr
		want string
	}{
		{
			name: "term",
			expr: Term("f", "X"),
			want: `{"field":"f","op":"term","value":"X"}`,
		},
		{
			name: "open range omits bounds",
			expr: OpenRange("f"),
			want: `{"field":"f","include_lower":false,"include_upper":false,"op":"range"}`,
		},
		{
			name: "inclusive doc values range",
			expr: DocValuesRange("f", &Bound{Value: "a", Inclusive: true}, &Bound{Value: "b"}),
			want: `{"field":"f","include_lower":true,"include_upper":false,"lower":"a","op":"doc_values_range","upper":"b"}`,
		},
		{
			name: "match all",
			expr: MatchAll(),
			want: `{"op":"match_all"}`,
		},
		{
			name: "anchored complement",
			expr: And(MatchAll(), Not(Exists("f"))),
			want: `{"clauses":[{"op":"match_all"},{"clause":{"field":"f","op":"exists"},"op":"not"}],"op":"and"}`,
		},
		{
			name: "no html escaping",
			expr: Term("f", `<a&b>`),
			want: `{"field":"f","op":"term","value":"<a&b>"}`,
		},
		{
			name: "control characters escaped",
			expr: Term("f", "a\"b\\c\nd\x01"),
			want: `{"field":"f","op":"term","value":"a\"b\\c\nd\u0001"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MarshalCanonical(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestMarshalCanonical_NFCNormalizes(t *testing.T) {
	// "é" as e + combining acute vs precomposed U+00E9.
	decomposed, err := MarshalCanonical(Term("f", "e\u0301"))
	require.NoError(t, err)
	composed, err := MarshalCanonical(Term("f", "\u00e9"))
	require.NoError(t, err)

	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonical_RejectsNil(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(And(MatchAll(), nil))
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	a := And(Exists("f"), Not(Term("f", "X")))
	b := And(Exists("f"), Not(Term("f", "X")))
	c := And(Exists("f"), Not(Term("f", "Y")))

	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	assert.Len(t, fpA, 64)
	assert.Equal(t, fpA, MustFingerprint(b), "structurally equal expressions share a fingerprint")
	assert.NotEqual(t, fpA, MustFingerprint(c))

	// Clause order is significant.
	assert.NotEqual(t,
		MustFingerprint(Or(Below("f", "X"), Above("f", "X"))),
		MustFingerprint(Or(Above("f", "X"), Below("f", "X"))))
}

func TestCompareUTF16(t *testing.T) {
	// U+FB01 sorts before U+1F600 in UTF-8 byte order but after it in
	// UTF-16, where the emoji becomes a surrogate pair starting 0xD83D.
	assert.Equal(t, 1, compareUTF16("ﬁ", "\U0001F600"))
	assert.Equal(t, -1, compareUTF16("a", "b"))
	assert.Equal(t, 0, compareUTF16("op", "op"))
}
