// Package units provides canonical gas and currency unit conversions.
package units

import "github.com/shopspring/decimal"

// Wei is the smallest denomination of the chain's native asset.
// Gas prices arrive in wei per gas unit and are displayed in gwei.
var (
	weiPerGwei  = decimal.New(1, 9)  // 10^9
	weiPerWhole = decimal.New(1, 18) // 10^18
)

// WeiToGwei converts a wei amount to gwei for display.
func WeiToGwei(wei decimal.Decimal) decimal.Decimal {
	return wei.Div(weiPerGwei)
}

// GweiToWei converts a gwei amount to wei.
func GweiToWei(gwei decimal.Decimal) decimal.Decimal {
	return gwei.Mul(weiPerGwei)
}

// WeiToWhole converts a wei amount to whole native-asset units.
func WeiToWhole(wei decimal.Decimal) decimal.Decimal {
	return wei.Div(weiPerWhole)
}

// GasCostNative computes the native-asset cost of a transaction:
// gas price (wei per unit) times gas units, in whole native units.
func GasCostNative(gasPriceWei decimal.Decimal, gasUnits int64) decimal.Decimal {
	return WeiToWhole(gasPriceWei.Mul(decimal.NewFromInt(gasUnits)))
}

// GasCostUSD converts a transaction's gas cost to USD using the
// native asset's reference price.
func GasCostUSD(gasPriceWei decimal.Decimal, gasUnits int64, nativePriceUSD decimal.Decimal) decimal.Decimal {
	return GasCostNative(gasPriceWei, gasUnits).Mul(nativePriceUSD)
}

// Percent applies pct (expressed 0-100) to amount.
func Percent(amount decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(decimal.NewFromInt(100))
}
