package gas

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

func newAdvisor() *Advisor {
	return NewAdvisor(config.Default(), config.DefaultGasProfile())
}

// snapshot builds a live snapshot at the given gas price in gwei.
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

func value(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func TestAdvise_NormalGas_Executes(t *testing.T) {
	d, err := newAdvisor().Advise(snapshot(30), Request{
		Category:          config.CategoryAssetMint,
		EstimatedValueUSD: value(50),
		Urgency:           UrgencyLow,
	})

	require.NoError(t, err)
	assert.Equal(t, ActionExecute, d.Action)
	assert.Equal(t, UserPays, d.Payer)
	assert.True(t, d.IsProfitable)
	assert.Equal(t, int64(200_000), d.EstimatedGasUnits)
	assert.Equal(t, "Gas optimal. Execute now.", d.Reasoning)
	assert.Equal(t, "30", d.CurrentGasGwei.String())
}

func TestAdvise_SmallDataIngest_Batches(t *testing.T) {
	d, err := newAdvisor().Advise(snapshot(30), Request{
		Category:          config.CategoryDataIngest,
		EstimatedValueUSD: value(2),
		Urgency:           UrgencyMedium,
	})

	require.NoError(t, err)
	assert.Equal(t, ActionBatch, d.Action)
	assert.Equal(t, RelayerPays, d.Payer)
	assert.Contains(t, d.Reasoning, "batch recommended")
}

func TestAdvise_DataIngestAboveBatchThreshold_NoBatch(t *testing.T) {
	d, err := newAdvisor().Advise(snapshot(30), Request{
		Category:          config.CategoryDataIngest,
		EstimatedValueUSD: value(5),
		Urgency:           UrgencyHigh,
	})

	require.NoError(t, err)
	assert.NotEqual(t, ActionBatch, d.Action)
	assert.Equal(t, RelayerPays, d.Payer)
}

func TestAdvise_HighGasLowValue_Delays(t *testing.T) {
	d, err := newAdvisor().Advise(snapshot(150), Request{
		Category:          config.CategoryTokenTransfer,
		EstimatedValueUSD: value(5),
		Urgency:           UrgencyMedium,
	})

	require.NoError(t, err)
	assert.Equal(t, ActionDelay, d.Action)
	assert.Equal(t, "Gas too high for low-value tx.", d.Reasoning)
}

func TestAdvise_HighGasLowValueUrgent_Executes(t *testing.T) {
	d, err := newAdvisor().Advise(snapshot(150), Request{
		Category:          config.CategoryTokenTransfer,
		EstimatedValueUSD: value(5),
		Urgency:           UrgencyHigh,
	})

	require.NoError(t, err)
	assert.Equal(t, ActionExecute, d.Action)
	assert.Equal(t, "High gas but urgent.", d.Reasoning)
}

func TestAdvise_Unprofitable_Delays(t *testing.T) {
	d, err := newAdvisor().Advise(snapshot(30), Request{
		Category:          config.CategoryTokenTransfer,
		EstimatedValueUSD: value(0.01),
		Urgency:           UrgencyMedium,
	})

	require.NoError(t, err)
	assert.Equal(t, ActionDelay, d.Action)
	assert.False(t, d.IsProfitable)
	assert.Equal(t, "Not profitable for platform.", d.Reasoning)
}

func TestAdvise_UnknownCategory_UsesFallbackUnits(t *testing.T) {
	d, err := newAdvisor().Advise(snapshot(30), Request{
		Category:          "something-new",
		EstimatedValueUSD: value(100),
	})

	require.NoError(t, err)
	assert.Equal(t, config.FallbackGasUnits, d.EstimatedGasUnits)
	assert.Equal(t, UserPays, d.Payer)
}

func TestAdvise_MissingValue_InvalidInput(t *testing.T) {
	_, err := newAdvisor().Advise(snapshot(30), Request{Category: config.CategoryAssetMint})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsInvalidInput(err))
}

func TestAdvise_NegativeValue_ClampedToZero(t *testing.T) {
	d, err := newAdvisor().Advise(snapshot(30), Request{
		Category:          config.CategoryTokenTransfer,
		EstimatedValueUSD: value(-10),
	})

	require.NoError(t, err)
	assert.False(t, d.IsProfitable)
	assert.True(t, d.ProjectedPlatformProfit.IsZero())
}

func TestAdvise_StaleSnapshot_ReducesConfidence(t *testing.T) {
	snap := snapshot(30)
	live, err := newAdvisor().Advise(snap, Request{
		Category:          config.CategoryAssetMint,
		EstimatedValueUSD: value(50),
	})
	require.NoError(t, err)

	snap.LivePrice = false
	stale, err := newAdvisor().Advise(snap, Request{
		Category:          config.CategoryAssetMint,
		EstimatedValueUSD: value(50),
	})
	require.NoError(t, err)

	assert.Less(t, stale.Confidence, live.Confidence)
}

func TestDegraded_DelaysConservatively(t *testing.T) {
	d := newAdvisor().Degraded(Request{
		Category:          config.CategoryDataIngest,
		EstimatedValueUSD: value(50),
	}, errors.New("connection refused"))

	assert.Equal(t, ActionDelay, d.Action)
	assert.Equal(t, RelayerPays, d.Payer)
	assert.Zero(t, d.Confidence)
	assert.Equal(t, "connection refused", d.ErrorReason)
	assert.Contains(t, d.Reasoning, "deferring execution")
}

func TestParseUrgency_DefaultsToMedium(t *testing.T) {
	assert.Equal(t, UrgencyMedium, ParseUrgency(""))
	assert.Equal(t, UrgencyMedium, ParseUrgency("urgent"))
	assert.Equal(t, UrgencyHigh, ParseUrgency("HIGH"))
	assert.Equal(t, UrgencyLow, ParseUrgency("low"))
}
