package ranking

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBalance renders amount with the currency symbol, thousands separators
// and exactly two decimals: $1,234.50, $0.50, -$3.00.
func FormatBalance(symbol string, amount decimal.Decimal) string {
	rounded := amount.Round(2)
	negative := rounded.IsNegative()

	fixed := rounded.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(symbol)
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
