// Package oracle provides the network/price input adapters and the
// point-in-time NetworkSnapshot the decision engines consume.
package oracle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bezhas/intelligence/internal/config"
	"github.com/bezhas/intelligence/pkg/units"
)

// NetworkSnapshot is a read-only point-in-time view of the chain's
// fee market and reference prices. Each decision is only as current
// as the snapshot passed in; no staleness policy lives here.
type NetworkSnapshot struct {
	ID             uuid.UUID       `json:"id"`
	GasPriceWei    decimal.Decimal `json:"gas_price_wei"`
	PriorityFeeWei decimal.Decimal `json:"priority_fee_wei"`
	NativePriceUSD decimal.Decimal `json:"native_price_usd"`
	TokenPriceUSD  decimal.Decimal `json:"token_price_usd"`
	FetchedAt      time.Time       `json:"fetched_at"`

	// Provenance, for confidence scoring
	LiveGas   bool `json:"live_gas"`
	LivePrice bool `json:"live_price"`
}

// GasPriceGwei reports the base gas price in human units.
func (s *NetworkSnapshot) GasPriceGwei() decimal.Decimal {
	return units.WeiToGwei(s.GasPriceWei)
}

// PriorityFeeGwei reports the priority fee in human units.
func (s *NetworkSnapshot) PriorityFeeGwei() decimal.Decimal {
	return units.WeiToGwei(s.PriorityFeeWei)
}

// FeeOracle returns the chain's current fee market data.
type FeeOracle interface {
	FeeData(ctx context.Context) (gasPriceWei, priorityFeeWei decimal.Decimal, err error)
}

// PriceOracle returns the native gas-paying asset's USD price.
type PriceOracle interface {
	NativePriceUSD(ctx context.Context) (price decimal.Decimal, live bool, err error)
}

// Provider assembles fresh snapshots from the configured oracles.
type Provider struct {
	fees   FeeOracle
	prices PriceOracle
	cfg    *config.FeeConfiguration
}

// NewProvider creates a snapshot provider.
func NewProvider(fees FeeOracle, prices PriceOracle, cfg *config.FeeConfiguration) *Provider {
	return &Provider{fees: fees, prices: prices, cfg: cfg}
}

// Snapshot fetches a fresh snapshot. A fee-oracle failure propagates
// so the caller can degrade to a conservative decision; a price-oracle
// failure falls back to the configured reference price, marked as
// non-live rather than silently substituted.
func (p *Provider) Snapshot(ctx context.Context) (*NetworkSnapshot, error) {
	gasPrice, priorityFee, err := p.fees.FeeData(ctx)
	if err != nil {
		return nil, err
	}

	nativePrice, live, err := p.prices.NativePriceUSD(ctx)
	if err != nil {
		nativePrice = p.cfg.NativeFallbackPriceUSD
		live = false
	}

	return &NetworkSnapshot{
		ID:             uuid.New(),
		GasPriceWei:    gasPrice,
		PriorityFeeWei: priorityFee,
		NativePriceUSD: nativePrice,
		TokenPriceUSD:  p.cfg.TokenPriceUSD,
		FetchedAt:      time.Now(),
		LiveGas:        true,
		LivePrice:      live,
	}, nil
}

// PriceSnapshot builds a snapshot carrying only reference prices, for
// decisions that never touch the fee market (compliance scoring).
func (p *Provider) PriceSnapshot(ctx context.Context) (*NetworkSnapshot, error) {
	nativePrice, live, err := p.prices.NativePriceUSD(ctx)
	if err != nil {
		return nil, err
	}

	return &NetworkSnapshot{
		ID:             uuid.New(),
		GasPriceWei:    decimal.Zero,
		PriorityFeeWei: decimal.Zero,
		NativePriceUSD: nativePrice,
		TokenPriceUSD:  p.cfg.TokenPriceUSD,
		FetchedAt:      time.Now(),
		LiveGas:        false,
		LivePrice:      live,
	}, nil
}
