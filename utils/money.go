package utils

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const (
	CurrencyLKR = money.LKR
	CurrencyUSD = money.USD
)

// FormatMoney renders a major-unit decimal with the currency's grapheme and
// thousand separators, e.g. 1234.5 LKR -> "₨1,234.50".
func FormatMoney(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return amount.StringFixed(2)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

func FormatLKR(amount decimal.Decimal) string {
	return FormatMoney(amount, CurrencyLKR)
}

func FormatUSD(amount decimal.Decimal) string {
	return FormatMoney(amount, CurrencyUSD)
}
