package config

import "github.com/bezhas/intelligence/pkg/errors"

// Transaction categories recognized by the gas profile. Unknown
// categories are tolerated everywhere and resolve to the fallback
// estimate.
const (
	CategoryDataIngest          = "data-ingest"
	CategoryMarketplacePurchase = "marketplace-purchase"
	CategoryTokenTransfer       = "token-transfer"
	CategoryAssetMint           = "asset-mint"
	CategoryStakingDeposit      = "staking-deposit"
)

// FallbackGasUnits is used for any category not in the profile.
const FallbackGasUnits int64 = 100_000

// TransactionGasProfile maps a transaction category to its estimated
// gas-unit cost. Immutable after construction.
type TransactionGasProfile struct {
	estimates map[string]int64
	fallback  int64
}

// DefaultGasProfile returns the shipped estimate table.
func DefaultGasProfile() *TransactionGasProfile {
	return &TransactionGasProfile{
		estimates: map[string]int64{
			CategoryDataIngest:          65_000,
			CategoryMarketplacePurchase: 150_000,
			CategoryTokenTransfer:       55_000,
			CategoryAssetMint:           200_000,
			CategoryStakingDeposit:      120_000,
		},
		fallback: FallbackGasUnits,
	}
}

// NewGasProfile builds a profile from an estimate table. A
// non-positive fallback gets the default.
func NewGasProfile(estimates map[string]int64, fallback int64) *TransactionGasProfile {
	if fallback <= 0 {
		fallback = FallbackGasUnits
	}
	copied := make(map[string]int64, len(estimates))
	for k, v := range estimates {
		copied[k] = v
	}
	return &TransactionGasProfile{estimates: copied, fallback: fallback}
}

// Estimate returns the gas-unit estimate for a category, falling back
// for unknown categories. known is false on fallback.
func (p *TransactionGasProfile) Estimate(category string) (units int64, known bool) {
	if units, ok := p.estimates[category]; ok {
		return units, true
	}
	return p.fallback, false
}

// Validate enforces positive estimates. Fatal at startup.
func (p *TransactionGasProfile) Validate() error {
	for category, units := range p.estimates {
		if units <= 0 {
			return errors.NewConfigurationError(category, "gas estimate must be positive")
		}
	}
	return nil
}
