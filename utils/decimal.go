package utils

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyTokens = []string{"LKR", "lkr", "Rs.", "rs.", "Rs", "rs", "USD", "usd", "US$", "$"}

// ParseDecimal accepts user-formatted money strings like:
// - "20,000"
// - "LKR 20,000"
// - "Rs. -1,250.50"
// - "$12"
//
// Keep digits, '.', and a leading '-' only.
func ParseDecimal(v string) (decimal.Decimal, error) {
	s := strings.TrimSpace(v)
	if s != "" {
		s = strings.ReplaceAll(s, ",", "")
		for _, tok := range currencyTokens {
			s = strings.ReplaceAll(s, tok, "")
		}
		s = strings.TrimSpace(s)
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	var b strings.Builder
	b.Grow(len(s) + 1)
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return decimal.Zero, errors.New("invalid value")
	}
	if neg {
		clean = "-" + clean
	}
	return decimal.NewFromString(clean)
}

// DecimalOrZero is the lenient form used by live calculation: anything
// unparseable counts as 0.
func DecimalOrZero(v string) decimal.Decimal {
	d, err := ParseDecimal(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}
