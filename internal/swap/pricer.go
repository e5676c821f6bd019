// Package swap provides the Swap Pricer.
// Computes net output for token/fiat conversions after platform,
// network, and payment-processor fees, and recommends whether to
// proceed.
package swap

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bezhas/intelligence/internal/config"
	"github.com/bezhas/intelligence/internal/oracle"
	"github.com/bezhas/intelligence/pkg/confidence"
	"github.com/bezhas/intelligence/pkg/errors"
	"github.com/bezhas/intelligence/pkg/units"
)

// TokenSymbol is the platform token ticker.
const TokenSymbol = "BEZ"

// Direction of the conversion.
type Direction string

const (
	TokenToFiat Direction = "TOKEN_TO_FIAT"
	FiatToToken Direction = "FIAT_TO_TOKEN"
)

// Recommendation is the pricer's verdict.
type Recommendation string

const (
	RecommendProceed      Recommendation = "PROCEED"
	RecommendWait         Recommendation = "WAIT_FOR_BETTER_RATE"
	RecommendAmountTooLow Recommendation = "AMOUNT_TOO_LOW"
)

// Request contains the pricer inputs.
type Request struct {
	Direction    Direction
	Amount       *decimal.Decimal
	FiatCurrency string
}

// FeeBreakdown itemizes every fee charged on the swap. NetValueUSD
// keeps its true (possibly negative) value even though the reported
// output amount is clamped to zero.
type FeeBreakdown struct {
	ProcessorFeeUSD decimal.Decimal `json:"processorFeeUSD"`
	GasCostUSD      decimal.Decimal `json:"gasCostUSD"`
	PlatformFeeUSD  decimal.Decimal `json:"platformFeeUSD"`
	FeeBurnedUSD    decimal.Decimal `json:"feeBurnedUSD"`
	TotalFeesUSD    decimal.Decimal `json:"totalFeesUSD"`
	NetValueUSD     decimal.Decimal `json:"netValueUSD"`
}

// Decision is the pricer's output.
type Decision struct {
	Direction      Direction
	InputAmount    decimal.Decimal
	InputCurrency  string
	OutputAmount   decimal.Decimal
	OutputCurrency string
	TokenPriceUSD  decimal.Decimal
	GrossValueUSD  decimal.Decimal
	Fees           FeeBreakdown
	EffectiveRate  decimal.Decimal
	Recommendation Recommendation
	Reasoning      string
	Confidence     float64
	SnapshotID     uuid.UUID
	ErrorReason    string
}

// Pricer is the swap pricing decision engine.
type Pricer struct {
	cfg   *config.FeeConfiguration
	rates oracle.RateTable
}

// NewPricer creates a swap pricer.
func NewPricer(cfg *config.FeeConfiguration, rates oracle.RateTable) *Pricer {
	return &Pricer{cfg: cfg, rates: rates}
}

// Price computes the swap economics against the given snapshot.
func (p *Pricer) Price(snap *oracle.NetworkSnapshot, req Request) (*Decision, error) {
	if req.Direction != TokenToFiat && req.Direction != FiatToToken {
		return nil, errors.NewInvalidInputError("direction", "direction must be TOKEN_TO_FIAT or FIAT_TO_TOKEN")
	}
	if req.Amount == nil {
		return nil, errors.NewInvalidInputError("amount", "amount is required")
	}
	amount := *req.Amount
	if !amount.IsPositive() {
		return nil, errors.NewInvalidInputError("amount", "amount must be positive")
	}

	fiatCurrency := strings.ToUpper(req.FiatCurrency)
	if fiatCurrency == "" {
		fiatCurrency = "USD"
	}
	fiatRate, _ := p.rates.Rate(fiatCurrency)

	tokenPrice := snap.TokenPriceUSD
	// The FIAT_TO_TOKEN branch divides by the token price; refuse a
	// snapshot that would make that division blow up.
	if !tokenPrice.IsPositive() {
		return nil, errors.NewConfigurationError("TokenPriceUSD", "token price must be strictly positive")
	}

	var grossValueUSD decimal.Decimal
	if req.Direction == TokenToFiat {
		grossValueUSD = amount.Mul(tokenPrice)
	} else {
		grossValueUSD = amount.Div(fiatRate)
	}

	gasCostUSD := units.GasCostUSD(snap.GasPriceWei, p.cfg.SwapGasUnits, snap.NativePriceUSD)
	processorFeeUSD := units.Percent(grossValueUSD, p.cfg.ProcessorFeePercent).Add(p.cfg.ProcessorFixedFeeUSD)
	platformFeeUSD := units.Percent(grossValueUSD, p.cfg.PlatformFeePercent)
	feeBurnedUSD := units.Percent(platformFeeUSD, p.cfg.FeeBurnPercent)
	totalFeesUSD := processorFeeUSD.Add(gasCostUSD).Add(platformFeeUSD)
	netValueUSD := grossValueUSD.Sub(totalFeesUSD)

	var outputAmount decimal.Decimal
	var outputCurrency, inputCurrency string
	if req.Direction == TokenToFiat {
		inputCurrency = TokenSymbol
		outputCurrency = fiatCurrency
		outputAmount = netValueUSD.Mul(fiatRate).Round(2)
	} else {
		inputCurrency = fiatCurrency
		outputCurrency = TokenSymbol
		outputAmount = netValueUSD.Div(tokenPrice).Round(4)
	}
	// Never report a negative output; the verdict carries the bad news.
	if outputAmount.IsNegative() {
		outputAmount = decimal.Zero
	}

	recommendation := RecommendProceed
	var reasoning string
	feeLimit := units.Percent(grossValueUSD, p.cfg.FeeRatioLimitPercent)
	switch {
	case totalFeesUSD.GreaterThan(feeLimit):
		recommendation = RecommendAmountTooLow
		reasoning = fmt.Sprintf("Fees exceed %s%% of value.", p.cfg.FeeRatioLimitPercent)
	case snap.GasPriceGwei().GreaterThan(p.cfg.GasHighThresholdGwei):
		recommendation = RecommendWait
		reasoning = "Gas elevated."
	default:
		reasoning = fmt.Sprintf("Swap efficient. Platform earns $%s.", platformFeeUSD.StringFixed(4))
	}

	var effectiveRate decimal.Decimal
	if req.Direction == TokenToFiat {
		effectiveRate = outputAmount.Div(amount)
	} else if !outputAmount.IsZero() {
		// Fiat paid per token received.
		effectiveRate = amount.Div(outputAmount)
	}

	return &Decision{
		Direction:      req.Direction,
		InputAmount:    amount,
		InputCurrency:  inputCurrency,
		OutputAmount:   outputAmount,
		OutputCurrency: outputCurrency,
		TokenPriceUSD:  tokenPrice,
		GrossValueUSD:  grossValueUSD.Round(4),
		Fees: FeeBreakdown{
			ProcessorFeeUSD: processorFeeUSD.Round(4),
			GasCostUSD:      gasCostUSD.Round(6),
			PlatformFeeUSD:  platformFeeUSD.Round(4),
			FeeBurnedUSD:    feeBurnedUSD.Round(4),
			TotalFeesUSD:    totalFeesUSD.Round(4),
			NetValueUSD:     netValueUSD.Round(4),
		},
		EffectiveRate:  effectiveRate,
		Recommendation: recommendation,
		Reasoning:      reasoning,
		Confidence:     confidence.ForSources(snap.LiveGas, snap.LivePrice),
		SnapshotID:     snap.ID,
	}, nil
}

// Degraded builds the conservative decision returned when the fee
// oracle is unreachable.
func (p *Pricer) Degraded(req Request, cause error) *Decision {
	d := &Decision{
		Direction:      req.Direction,
		Recommendation: RecommendWait,
		Reasoning:      "RPC error: network fee data unavailable, wait for a better rate.",
		Confidence:     0,
		ErrorReason:    cause.Error(),
	}
	if req.Amount != nil {
		d.InputAmount = *req.Amount
	}
	return d
}
