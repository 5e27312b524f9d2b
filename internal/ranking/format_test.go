package ranking

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		amount string
		symbol string
		want   string
	}{
		{amount: "0", symbol: "$", want: "$0.00"},
		{amount: "0.5", symbol: "$", want: "$0.50"},
		{amount: "12.345", symbol: "$", want: "$12.35"},
		{amount: "999.99", symbol: "$", want: "$999.99"},
		{amount: "1000", symbol: "$", want: "$1,000.00"},
		{amount: "1234.5", symbol: "$", want: "$1,234.50"},
		{amount: "1234567.891", symbol: "$", want: "$1,234,567.89"},
		{amount: "-3", symbol: "$", want: "-$3.00"},
		{amount: "-1500", symbol: "€", want: "-€1,500.00"},
		{amount: "-0.001", symbol: "$", want: "$0.00"},
		{amount: "42", symbol: "", want: "42.00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBalance(tt.symbol, decimal.RequireFromString(tt.amount)))
		})
	}
}
