package utils

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		amount   string
		code     string
		contains string
	}{
		{"1234.5", CurrencyLKR, "1,234.50"},
		{"60000", CurrencyLKR, "60,000.00"},
		{"12.345", CurrencyUSD, "12.35"},
		{"-50", CurrencyUSD, "50.00"},
	}
	for _, tc := range cases {
		got := FormatMoney(decimal.RequireFromString(tc.amount), tc.code)
		if !strings.Contains(got, tc.contains) {
			t.Fatalf("FormatMoney(%s, %s) = %q, expected to contain %q", tc.amount, tc.code, got, tc.contains)
		}
	}
	if got := FormatUSD(decimal.NewFromInt(5)); !strings.HasPrefix(got, "$") {
		t.Fatalf("FormatUSD expected $ prefix, got %q", got)
	}
}
