// Package config holds the process-wide fee configuration and the
// static transaction gas profile. Both are loaded once at startup and
// never mutated; malformed values prevent the engine from starting.
package config

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bezhas/intelligence/pkg/errors"
	"github.com/bezhas/intelligence/pkg/platform"
)

// FeeConfiguration is the process-wide constant set for all three
// decision engines. Percentages are expressed 0-100.
type FeeConfiguration struct {
	// Platform economics
	PlatformFeePercent decimal.Decimal
	FeeBurnPercent     decimal.Decimal

	// Payment processor (card rails)
	ProcessorFeePercent  decimal.Decimal
	ProcessorFixedFeeUSD decimal.Decimal
	FeeRatioLimitPercent decimal.Decimal

	// Gas strategy thresholds
	GasHighThresholdGwei decimal.Decimal
	LowValueThresholdUSD decimal.Decimal
	BatchThresholdUSD    decimal.Decimal

	// Compliance thresholds
	HighValueThresholdUSD decimal.Decimal
	StructuringBandLowUSD decimal.Decimal
	SanctionedRegions     []string

	// Reference prices
	TokenPriceUSD          decimal.Decimal
	NativeFallbackPriceUSD decimal.Decimal

	// Representative gas estimate for a swap transfer leg
	SwapGasUnits int64
}

// Default returns the shipped configuration table.
func Default() *FeeConfiguration {
	return &FeeConfiguration{
		PlatformFeePercent:     decimal.NewFromFloat(2.5),
		FeeBurnPercent:         decimal.NewFromInt(30),
		ProcessorFeePercent:    decimal.NewFromFloat(2.9),
		ProcessorFixedFeeUSD:   decimal.NewFromFloat(0.30),
		FeeRatioLimitPercent:   decimal.NewFromInt(15),
		GasHighThresholdGwei:   decimal.NewFromInt(100),
		LowValueThresholdUSD:   decimal.NewFromInt(10),
		BatchThresholdUSD:      decimal.NewFromInt(5),
		HighValueThresholdUSD:  decimal.NewFromInt(10000),
		StructuringBandLowUSD:  decimal.NewFromInt(9000),
		SanctionedRegions:      []string{"KP", "IR", "CU", "SY"},
		TokenPriceUSD:          decimal.NewFromFloat(0.10),
		NativeFallbackPriceUSD: decimal.NewFromFloat(0.40),
		SwapGasUnits:           55_000,
	}
}

// FromEnv loads the configuration from environment variables, falling
// back to the default table per field.
func FromEnv() *FeeConfiguration {
	d := Default()
	return &FeeConfiguration{
		PlatformFeePercent:     envDecimal("BEZ_PLATFORM_FEE_PERCENT", d.PlatformFeePercent),
		FeeBurnPercent:         envDecimal("BEZ_FEE_BURN_PERCENT", d.FeeBurnPercent),
		ProcessorFeePercent:    envDecimal("BEZ_PROCESSOR_FEE_PERCENT", d.ProcessorFeePercent),
		ProcessorFixedFeeUSD:   envDecimal("BEZ_PROCESSOR_FIXED_FEE_USD", d.ProcessorFixedFeeUSD),
		FeeRatioLimitPercent:   envDecimal("BEZ_FEE_RATIO_LIMIT_PERCENT", d.FeeRatioLimitPercent),
		GasHighThresholdGwei:   envDecimal("BEZ_GAS_HIGH_THRESHOLD_GWEI", d.GasHighThresholdGwei),
		LowValueThresholdUSD:   envDecimal("BEZ_LOW_VALUE_THRESHOLD_USD", d.LowValueThresholdUSD),
		BatchThresholdUSD:      envDecimal("BEZ_BATCH_THRESHOLD_USD", d.BatchThresholdUSD),
		HighValueThresholdUSD:  envDecimal("BEZ_HIGH_VALUE_THRESHOLD_USD", d.HighValueThresholdUSD),
		StructuringBandLowUSD:  envDecimal("BEZ_STRUCTURING_BAND_LOW_USD", d.StructuringBandLowUSD),
		SanctionedRegions:      platform.GetEnvList("BEZ_SANCTIONED_REGIONS", d.SanctionedRegions),
		TokenPriceUSD:          envDecimal("BEZ_TOKEN_PRICE_USD", d.TokenPriceUSD),
		NativeFallbackPriceUSD: envDecimal("BEZ_NATIVE_FALLBACK_PRICE_USD", d.NativeFallbackPriceUSD),
		SwapGasUnits:           int64(platform.GetEnvInt("BEZ_SWAP_GAS_UNITS", int(d.SwapGasUnits))),
	}
}

func envDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(platform.GetEnvFloat(key, defaultVal.InexactFloat64()))
}

// Validate enforces the configuration invariants. A violation is a
// startup error, not a runtime condition to recover from.
func (c *FeeConfiguration) Validate() error {
	percents := []struct {
		name  string
		value decimal.Decimal
	}{
		{"PlatformFeePercent", c.PlatformFeePercent},
		{"FeeBurnPercent", c.FeeBurnPercent},
		{"ProcessorFeePercent", c.ProcessorFeePercent},
		{"FeeRatioLimitPercent", c.FeeRatioLimitPercent},
	}
	hundred := decimal.NewFromInt(100)
	for _, p := range percents {
		if p.value.IsNegative() || p.value.GreaterThan(hundred) {
			return errors.NewConfigurationError(p.name, "percentage must be in [0, 100]")
		}
	}

	thresholds := []struct {
		name  string
		value decimal.Decimal
	}{
		{"ProcessorFixedFeeUSD", c.ProcessorFixedFeeUSD},
		{"GasHighThresholdGwei", c.GasHighThresholdGwei},
		{"LowValueThresholdUSD", c.LowValueThresholdUSD},
		{"BatchThresholdUSD", c.BatchThresholdUSD},
		{"HighValueThresholdUSD", c.HighValueThresholdUSD},
		{"StructuringBandLowUSD", c.StructuringBandLowUSD},
	}
	for _, t := range thresholds {
		if t.value.IsNegative() {
			return errors.NewConfigurationError(t.name, "threshold must be non-negative")
		}
	}

	// Prices divide or scale every quote; zero is as fatal as negative.
	prices := []struct {
		name  string
		value decimal.Decimal
	}{
		{"TokenPriceUSD", c.TokenPriceUSD},
		{"NativeFallbackPriceUSD", c.NativeFallbackPriceUSD},
	}
	for _, p := range prices {
		if !p.value.IsPositive() {
			return errors.NewConfigurationError(p.name, "price must be strictly positive")
		}
	}

	if c.StructuringBandLowUSD.GreaterThanOrEqual(c.HighValueThresholdUSD) {
		return errors.NewConfigurationError("StructuringBandLowUSD",
			"structuring band must start below the high-value threshold")
	}
	if c.SwapGasUnits <= 0 {
		return errors.NewConfigurationError("SwapGasUnits", "gas units must be positive")
	}
	return nil
}

// IsSanctioned reports whether the region code (case-insensitive) is
// in the sanctioned set.
func (c *FeeConfiguration) IsSanctioned(region string) bool {
	upper := strings.ToUpper(region)
	for _, r := range c.SanctionedRegions {
		if strings.ToUpper(r) == upper {
			return true
		}
	}
	return false
}
