package oracle

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RateTable maps fiat currency codes to their USD exchange rate
// (units of currency per USD).
type RateTable interface {
	// Rate returns the rate for a currency code. Unknown codes fall
	// back to 1.0 with known=false, never an error.
	Rate(currency string) (rate decimal.Decimal, known bool)
}

// StaticRateTable is the shipped fixed-rate table for the small
// supported currency set.
type StaticRateTable struct {
	rates map[string]decimal.Decimal
}

// NewStaticRateTable returns the default supported currencies.
func NewStaticRateTable() *StaticRateTable {
	return &StaticRateTable{
		rates: map[string]decimal.Decimal{
			"USD": decimal.NewFromInt(1),
			"EUR": decimal.NewFromFloat(0.92),
			"GBP": decimal.NewFromFloat(0.79),
			"MXN": decimal.NewFromFloat(17.15),
		},
	}
}

func (t *StaticRateTable) Rate(currency string) (decimal.Decimal, bool) {
	if rate, ok := t.rates[strings.ToUpper(currency)]; ok {
		return rate, true
	}
	return decimal.NewFromInt(1), false
}

// Currencies lists the supported currency codes.
func (t *StaticRateTable) Currencies() []string {
	out := make([]string, 0, len(t.rates))
	for code := range t.rates {
		out = append(out, code)
	}
	return out
}
