package models

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatAmount renders an amount in the given ISO currency, e.g. "$1,234.50".
// Codes go-money does not know render as "1234.50 XXX".
func FormatAmount(d decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return strings.TrimSpace(d.StringFixed(2) + " " + currency)
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}

// FormatAmounts formats a label->amount map.
func FormatAmounts(amounts map[string]decimal.Decimal, currency string) map[string]string {
	out := make(map[string]string, len(amounts))
	for k, v := range amounts {
		out[k] = FormatAmount(v, currency)
	}
	return out
}
