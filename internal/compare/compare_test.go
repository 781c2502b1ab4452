package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ocrmate/ocrmate/internal/schema"
)

func TestEqual_BothNil(t *testing.T) {
	for _, ft := range []schema.FieldType{schema.TypeText, schema.TypeCurrency, schema.TypeBoolean, schema.TypeDate} {
		assert.True(t, Equal(nil, nil, ft), "field type %s", ft)
	}
}

func TestEqual_OneNil(t *testing.T) {
	assert.False(t, Equal(nil, "x", schema.TypeText))
	assert.False(t, Equal(25.0, nil, schema.TypeCurrency))
}

func TestEqual_Reflexive(t *testing.T) {
	cases := []struct {
		v  any
		ft schema.FieldType
	}{
		{"hello", schema.TypeText},
		{25.30, schema.TypeCurrency},
		{42.0, schema.TypeNumber},
		{"2007-02-06", schema.TypeDate},
		{"a@b.com", schema.TypeEmail},
		{true, schema.TypeBoolean},
	}
	for _, c := range cases {
		assert.True(t, Equal(c.v, c.v, c.ft), "%v (%s)", c.v, c.ft)
	}
}

func TestEqual_CurrencyAbsoluteTolerance(t *testing.T) {
	assert.True(t, Equal(25.30, 25.305, schema.TypeCurrency))
	assert.False(t, Equal(25.30, 25.32, schema.TypeCurrency))
	// Absolute, not relative: large values get no extra slack.
	assert.False(t, Equal(1000.00, 1005.00, schema.TypeCurrency))
}

func TestEqual_NumericStringParse(t *testing.T) {
	assert.True(t, Equal("25.30", 25.30, schema.TypeCurrency))
	// Strict parse: currency symbols are not stripped here.
	assert.False(t, Equal("$25.30", 25.30, schema.TypeCurrency))
	assert.False(t, Equal("1,000", 1000.0, schema.TypeNumber))
	assert.False(t, Equal("abc", 25.30, schema.TypeCurrency))
}

func TestEqual_TextCaseInsensitive(t *testing.T) {
	assert.True(t, Equal("  Acme Corp ", "acme corp", schema.TypeText))
	assert.False(t, Equal("Acme Corp", "Acme Inc", schema.TypeText))
}

func TestEqual_DateNoNormalization(t *testing.T) {
	assert.True(t, Equal("2007-02-06", "2007-02-06", schema.TypeDate))
	// Raw string equality only: different formats of the same date do not match.
	assert.False(t, Equal("02/06/2007", "2007-02-06", schema.TypeDate))
}

func TestEqual_BooleanTruthiness(t *testing.T) {
	assert.True(t, Equal(true, true, schema.TypeBoolean))
	assert.True(t, Equal(true, 1, schema.TypeBoolean))
	assert.False(t, Equal(true, false, schema.TypeBoolean))
	assert.False(t, Equal(false, "yes", schema.TypeBoolean))
}

func TestMatch_StringEquality(t *testing.T) {
	assert.True(t, Match(" Total ", "total", schema.TypeText))
	assert.False(t, Match("total", "subtotal", schema.TypeText))
}

func TestMatch_CurrencySymbolsStripped(t *testing.T) {
	assert.True(t, Match("$25.30", 25.30, schema.TypeCurrency))
	assert.True(t, Match("€1,234.56", "1234.56", schema.TypeCurrency))
	assert.True(t, Match("£99.00", 99.0, schema.TypeCurrency))
}

func TestMatch_RelativeTolerance(t *testing.T) {
	// 1% relative tolerance: 1000 vs 1005 is within 0.5%.
	assert.True(t, Match(1000.00, 1005.00, schema.TypeCurrency))
	assert.False(t, Match(1000.00, 1015.00, schema.TypeCurrency))
	// Small values: max(|a|,|b|,1) floors the denominator at 1.
	assert.True(t, Match(0.001, 0.002, schema.TypeNumber))
}

func TestMatch_ParseFailure(t *testing.T) {
	assert.False(t, Match("abc", 25.30, schema.TypeCurrency))
	assert.False(t, Match("25.30", "n/a", schema.TypeNumber))
}

func TestMatch_DateRawEquality(t *testing.T) {
	assert.True(t, Match("02/06/2007", "02/06/2007", schema.TypeDate))
	assert.False(t, Match("02/06/2007", "2007-02-06", schema.TypeDate))
}

func TestMatch_Nil(t *testing.T) {
	assert.True(t, Match(nil, nil, schema.TypeText))
	assert.False(t, Match(nil, "x", schema.TypeText))
	assert.False(t, Match(1.0, nil, schema.TypeNumber))
}

// The strict and lenient comparators must disagree somewhere, or one of the
// two paths is missing.
func TestStrictAndLenientDiverge(t *testing.T) {
	a, b := 1000.00, 1005.00
	assert.False(t, Equal(a, b, schema.TypeCurrency))
	assert.True(t, Match(a, b, schema.TypeCurrency))
}

func TestParseNumber(t *testing.T) {
	f, ok := ParseNumber("25.30")
	assert.True(t, ok)
	assert.Equal(t, 25.30, f)

	_, ok = ParseNumber("$25.30")
	assert.False(t, ok)

	f, ok = ParseNumber(42)
	assert.True(t, ok)
	assert.Equal(t, 42.0, f)

	_, ok = ParseNumber(struct{}{})
	assert.False(t, ok)
}

func TestParseLenientNumber(t *testing.T) {
	f, ok := ParseLenientNumber("$1,234.56")
	assert.True(t, ok)
	assert.Equal(t, 1234.56, f)

	_, ok = ParseLenientNumber("12 USD")
	assert.False(t, ok)
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, 1000.0, Coerce("1,000", schema.TypeNumber))
	assert.Equal(t, 25.30, Coerce("$25.30", schema.TypeCurrency))
	assert.Equal(t, true, Coerce("Yes", schema.TypeBoolean))
	assert.Equal(t, false, Coerce("n", schema.TypeBoolean))
	// Unparseable values come back unchanged.
	assert.Equal(t, "maybe", Coerce("maybe", schema.TypeBoolean))
	assert.Equal(t, "n/a", Coerce("n/a", schema.TypeCurrency))
	assert.Equal(t, "123 Main St", Coerce("123 Main St", schema.TypeAddress))
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.True(t, Truthy(true))
	assert.False(t, Truthy(false))
	assert.True(t, Truthy("no")) // non-empty string is truthy
	assert.False(t, Truthy(""))
	assert.True(t, Truthy(1.5))
	assert.False(t, Truthy(0))
}
