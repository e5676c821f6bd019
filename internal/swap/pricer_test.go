package swap

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bezhas/intelligence/internal/config"
	"github.com/bezhas/intelligence/internal/oracle"
	pkgerrors "github.com/bezhas/intelligence/pkg/errors"
)

func newPricer() *Pricer {
	return NewPricer(config.Default(), oracle.NewStaticRateTable())
}

func snapshot(gasGwei int64) *oracle.NetworkSnapshot {
	return &oracle.NetworkSnapshot{
		ID:             uuid.New(),
		GasPriceWei:    decimal.New(gasGwei, 9),
		PriorityFeeWei: decimal.New(1, 9),
		NativePriceUSD: decimal.NewFromFloat(0.40),
		TokenPriceUSD:  decimal.NewFromFloat(0.10),
		LiveGas:        true,
		LivePrice:      true,
	}
}

func amount(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func TestPrice_TokenToFiat_Proceeds(t *testing.T) {
	d, err := newPricer().Price(snapshot(30), Request{
		Direction: TokenToFiat,
		Amount:    amount(1000),
	})

	require.NoError(t, err)
	assert.Equal(t, RecommendProceed, d.Recommendation)
	assert.Equal(t, TokenSymbol, d.InputCurrency)
	assert.Equal(t, "USD", d.OutputCurrency)
	assert.Equal(t, "100", d.GrossValueUSD.String())

	// 2.9% + $0.30 processor, 2.5% platform, plus gas.
	assert.Equal(t, "3.2", d.Fees.ProcessorFeeUSD.String())
	assert.Equal(t, "2.5", d.Fees.PlatformFeeUSD.String())
	assert.Equal(t, "0.75", d.Fees.FeeBurnedUSD.String())
	assert.True(t, d.Fees.TotalFeesUSD.GreaterThan(decimal.NewFromFloat(5.70)))
	assert.Equal(t, "94.3", d.OutputAmount.String())
	assert.Contains(t, d.Reasoning, "Platform earns")
}

func TestPrice_FiatToToken_ConvertsAtRate(t *testing.T) {
	d, err := newPricer().Price(snapshot(30), Request{
		Direction:    FiatToToken,
		Amount:       amount(100),
		FiatCurrency: "EUR",
	})

	require.NoError(t, err)
	assert.Equal(t, "EUR", d.InputCurrency)
	assert.Equal(t, TokenSymbol, d.OutputCurrency)
	// 100 EUR / 0.92 EUR-per-USD.
	assert.Equal(t, "108.6957", d.GrossValueUSD.StringFixed(4))
	assert.True(t, d.OutputAmount.IsPositive())
}

func TestPrice_RoundTripIsLossy(t *testing.T) {
	p := newPricer()
	snap := snapshot(30)

	sell, err := p.Price(snap, Request{Direction: TokenToFiat, Amount: amount(1000)})
	require.NoError(t, err)

	buyBack, err := p.Price(snap, Request{Direction: FiatToToken, Amount: &sell.OutputAmount})
	require.NoError(t, err)

	assert.True(t, buyBack.OutputAmount.LessThan(decimal.NewFromInt(1000)),
		"round trip must strictly lose value to fees")
}

func TestPrice_FeesDominateSmallAmount(t *testing.T) {
	d, err := newPricer().Price(snapshot(30), Request{
		Direction: TokenToFiat,
		Amount:    amount(10),
	})

	require.NoError(t, err)
	assert.Equal(t, RecommendAmountTooLow, d.Recommendation)
	assert.Contains(t, d.Reasoning, "Fees exceed")
}

func TestPrice_HighGas_RecommendsWait(t *testing.T) {
	d, err := newPricer().Price(snapshot(150), Request{
		Direction: TokenToFiat,
		Amount:    amount(1000),
	})

	require.NoError(t, err)
	assert.Equal(t, RecommendWait, d.Recommendation)
	assert.Equal(t, "Gas elevated.", d.Reasoning)
}

func TestPrice_FeeRatioCheckedBeforeGas(t *testing.T) {
	// Both conditions hold; the fee ratio verdict wins.
	d, err := newPricer().Price(snapshot(150), Request{
		Direction: TokenToFiat,
		Amount:    amount(10),
	})

	require.NoError(t, err)
	assert.Equal(t, RecommendAmountTooLow, d.Recommendation)
}

func TestPrice_OutputNeverNegative(t *testing.T) {
	d, err := newPricer().Price(snapshot(30), Request{
		Direction: TokenToFiat,
		Amount:    amount(1),
	})

	require.NoError(t, err)
	assert.True(t, d.OutputAmount.IsZero())
	assert.True(t, d.EffectiveRate.IsZero())
	assert.True(t, d.Fees.NetValueUSD.IsNegative())
}

func TestPrice_UnknownFiat_TreatedAsParity(t *testing.T) {
	d, err := newPricer().Price(snapshot(30), Request{
		Direction:    TokenToFiat,
		Amount:       amount(1000),
		FiatCurrency: "jpy",
	})

	require.NoError(t, err)
	assert.Equal(t, "JPY", d.OutputCurrency)
	assert.Equal(t, "94.3", d.OutputAmount.String())
}

func TestPrice_InvalidInputs(t *testing.T) {
	p := newPricer()
	snap := snapshot(30)

	_, err := p.Price(snap, Request{Direction: "SIDEWAYS", Amount: amount(10)})
	assert.True(t, pkgerrors.IsInvalidInput(err))

	_, err = p.Price(snap, Request{Direction: TokenToFiat})
	assert.True(t, pkgerrors.IsInvalidInput(err))

	_, err = p.Price(snap, Request{Direction: TokenToFiat, Amount: amount(0)})
	assert.True(t, pkgerrors.IsInvalidInput(err))

	_, err = p.Price(snap, Request{Direction: FiatToToken, Amount: amount(-5)})
	assert.True(t, pkgerrors.IsInvalidInput(err))
}

func TestPrice_ZeroTokenPriceErrors(t *testing.T) {
	snap := snapshot(30)
	snap.TokenPriceUSD = decimal.Zero

	_, err := newPricer().Price(snap, Request{Direction: FiatToToken, Amount: amount(100)})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfigurationError(err))
}

func TestDegraded_RecommendsWait(t *testing.T) {
	d := newPricer().Degraded(Request{
		Direction: TokenToFiat,
		Amount:    amount(1000),
	}, errors.New("rpc timeout"))

	assert.Equal(t, RecommendWait, d.Recommendation)
	assert.Zero(t, d.Confidence)
	assert.Equal(t, "rpc timeout", d.ErrorReason)
	assert.Equal(t, "1000", d.InputAmount.String())
}
