package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"1000.50", "1000.5", true},
		{"1.230", "1.23", true},
		{"1000.005", "", false},
		{"0,001", "", false},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAmount(tc.in)
			if !tc.ok {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.out).Equal(got), "got %s", got)
		})
	}
}

func TestDisplayValue(t *testing.T) {
	assert.Equal(t, 12.12, DisplayValue(decimal.RequireFromString("12.12")))
	assert.Equal(t, 0.3, DisplayValue(decimal.RequireFromString("0.1").Add(decimal.RequireFromString("0.2"))))
	assert.Equal(t, 33.33, DisplayValue(decimal.NewFromInt(100).Div(decimal.NewFromInt(3))))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "749.50", FormatAmount(decimal.RequireFromString("749.5")))
	assert.Equal(t, "0.00", FormatAmount(decimal.Zero))
}

func TestSumIsExact(t *testing.T) {
	total := Sum(decimal.RequireFromString("10.10"), decimal.RequireFromString("5.05"))
	assert.True(t, decimal.RequireFromString("15.15").Equal(total))
	assert.True(t, Sum().IsZero())
}
