package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseRoundingMode(t *testing.T) {
	assert.Equal(t, RoundUp, ParseRoundingMode("UP"))
	assert.Equal(t, RoundHalfEven, ParseRoundingMode("half_even"))
	assert.Equal(t, RoundDown, ParseRoundingMode(""))
	assert.Equal(t, RoundDown, ParseRoundingMode("garbage"))
	assert.Equal(t, RoundCeiling, ParseRoundingMode(" CEILING "))
}

func TestScaleModes(t *testing.T) {
	cases := []struct {
		mode     RoundingMode
		in       string
		prec     int32
		expected string
	}{
		{RoundDown, "1.259", 2, "1.25"},
		{RoundDown, "-1.259", 2, "-1.25"},
		{RoundUp, "1.251", 2, "1.26"},
		{RoundUp, "-1.251", 2, "-1.26"},
		{RoundCeiling, "1.251", 2, "1.26"},
		{RoundCeiling, "-1.259", 2, "-1.25"},
		{RoundFloor, "1.259", 2, "1.25"},
		{RoundFloor, "-1.251", 2, "-1.26"},
		{RoundHalfUp, "1.255", 2, "1.26"},
		{RoundHalfUp, "1.254", 2, "1.25"},
		{RoundHalfDown, "1.255", 2, "1.25"},
		{RoundHalfDown, "1.256", 2, "1.26"},
		{RoundHalfDown, "-1.255", 2, "-1.25"},
		{RoundHalfEven, "1.255", 2, "1.26"},
		{RoundHalfEven, "1.245", 2, "1.24"},
		{RoundDown, "7.9", 0, "7"},
	}
	for _, c := range cases {
		got := Scale(dec(c.in), c.prec, c.mode)
		assert.True(t, dec(c.expected).Equal(got),
			"mode=%s in=%s prec=%d: expected %s got %s", c.mode, c.in, c.prec, c.expected, got)
	}
}

func TestScaleExactDigits(t *testing.T) {
	got := Scale(dec("5"), 2, RoundDown)
	assert.Equal(t, "5.00", got.StringFixed(2))
	// a value strictly below one quantum truncates to zero
	got = Scale(dec("0.009"), 2, RoundDown)
	assert.True(t, got.IsZero())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1,234,567.50", Format(dec("1234567.5"), 2))
	assert.Equal(t, "0.00", Format(decimal.Zero, 2))
	assert.Equal(t, "-12,000", Format(dec("-12000"), 0))
	assert.Equal(t, "999", Format(dec("999.99"), 0))
	assert.Equal(t, "100.00000000", Format(dec("100"), 8))
}

func TestFormatWithSymbol(t *testing.T) {
	assert.Equal(t, "$1,000.00", FormatWithSymbol(dec("1000"), 2, "$"))
}

func TestSignChecks(t *testing.T) {
	assert.True(t, IsPositive(dec("0.01")))
	assert.False(t, IsPositive(decimal.Zero))
	assert.True(t, IsNonNegative(decimal.Zero))
	assert.False(t, IsNonNegative(dec("-0.01")))
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("1,234.56")
	require.NoError(t, err)
	assert.True(t, dec("1234.56").Equal(v))

	_, err = ParseAmount("not-a-number")
	require.Error(t, err)

	v, err = ParseAmount(" 42 ")
	require.NoError(t, err)
	assert.True(t, dec("42").Equal(v))
}
