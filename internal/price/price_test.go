package price_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"skinquote/internal/price"
)

func TestFromMinorUnits(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{250, "2.50"},
		{1999, "19.99"},
		{1234567, "12345.67"},
	} {
		got, err := price.FromMinorUnits(tc.cents)
		require.NoError(t, err)
		require.Equal(t, tc.want, price.Format(got), "cents=%d", tc.cents)
	}

	_, err := price.FromMinorUnits(-1)
	var mpe *price.MalformedPriceError
	require.ErrorAs(t, err, &mpe)
}

func TestParseMinorUnits(t *testing.T) {
	t.Parallel()

	got, err := price.ParseMinorUnits("250")
	require.NoError(t, err)
	require.Equal(t, "2.50", price.Format(got))

	// half a cent rounds away from zero
	got, err = price.ParseMinorUnits(" 100.5 ")
	require.NoError(t, err)
	require.Equal(t, "1.01", price.Format(got))

	for _, raw := range []string{"", "   ", "abc", "-5", "12$"} {
		_, err := price.ParseMinorUnits(raw)
		var mpe *price.MalformedPriceError
		require.Truef(t, errors.As(err, &mpe), "raw=%q err=%v", raw, err)
		require.Equal(t, raw, mpe.Raw)
	}
}

func TestParseFormatted(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		raw  string
		want string
	}{
		{"$12,345.67", "12345.67"},
		{"$0.03", "0.03"},
		{"0.03 USD", "0.03"},
		{"€1,000", "1000.00"},
		{" $7.5", "7.50"},
		{"3.456", "3.46"},
		{"1,234,567.891 USD", "1234567.89"},
		{"\u00a0$4.20\u00a0", "4.20"},
	} {
		got, err := price.ParseFormatted(tc.raw)
		require.NoErrorf(t, err, "raw=%q", tc.raw)
		require.Equal(t, tc.want, price.Format(got), "raw=%q", tc.raw)
	}
}

func TestParseFormatted_Malformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"", "$", "N/A", "-$1.00", "$-1.00", "1.2.3", "1/2",
		"12abc34", "1e5", "1O0", "$1,2,3,4", "1,23.00", "12,3456", ".5", "$ 1 000",
	} {
		_, err := price.ParseFormatted(raw)
		var mpe *price.MalformedPriceError
		require.Truef(t, errors.As(err, &mpe), "raw=%q err=%v", raw, err)
	}
}

func TestNormalizedAmountsCompareNumerically(t *testing.T) {
	t.Parallel()

	// "$9.99" > "$10.00" as strings, the amounts must not be compared that way.
	a, err := price.ParseFormatted("$9.99")
	require.NoError(t, err)
	b, err := price.ParseMinorUnits("1000")
	require.NoError(t, err)
	require.True(t, a.LessThan(b))
	require.True(t, b.Equal(decimal.RequireFromString("10")))
}
