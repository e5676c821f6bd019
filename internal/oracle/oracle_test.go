package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bezhas/intelligence/internal/config"
	pkgerrors "github.com/bezhas/intelligence/pkg/errors"
)

func TestParseQuantity(t *testing.T) {
	// 30 gwei
	v, err := parseQuantity("0x6fc23ac00")
	require.NoError(t, err)
	assert.Equal(t, "30000000000", v.String())

	v, err = parseQuantity("0x0")
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	_, err = parseQuantity("0x")
	assert.Error(t, err)

	_, err = parseQuantity("0xZZ")
	assert.Error(t, err)
}

func TestRPCFeeOracle_FeeData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.Method {
		case "eth_gasPrice":
			json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": "0x6fc23ac00"})
		case "eth_maxPriorityFeePerGas":
			json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": "0x3b9aca00"})
		default:
			t.Fatalf("unexpected method %s", req.Method)
		}
	}))
	defer srv.Close()

	gasPrice, priority, err := NewRPCFeeOracle(srv.URL).FeeData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "30000000000", gasPrice.String())
	assert.Equal(t, "1000000000", priority.String())
}

func TestRPCFeeOracle_MissingPriorityFeeMethod(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method == "eth_gasPrice" {
			json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": "0x6fc23ac00"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": 1,
			"error": map[string]any{"code": -32601, "message": "method not found"},
		})
	}))
	defer srv.Close()

	gasPrice, priority, err := NewRPCFeeOracle(srv.URL).FeeData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "30000000000", gasPrice.String())
	assert.True(t, priority.IsZero())
}

func TestRPCFeeOracle_Unreachable(t *testing.T) {
	_, _, err := NewRPCFeeOracle("http://127.0.0.1:1").FeeData(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsOracleUnavailable(err))
}

func TestCoinGeckoClient_FetchAndCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]map[string]float64{
			"matic-network": {"usd": 0.42},
		})
	}))
	defer srv.Close()

	client := NewCoinGeckoClient("matic-network").WithBaseURL(srv.URL)

	price, live, err := client.NativePriceUSD(context.Background())
	require.NoError(t, err)
	assert.True(t, live)
	assert.Equal(t, "0.42", price.String())

	// Second call is served from cache.
	_, _, err = client.NativePriceUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCoinGeckoClient_MissingQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]map[string]float64{})
	}))
	defer srv.Close()

	_, _, err := NewCoinGeckoClient("matic-network").WithBaseURL(srv.URL).NativePriceUSD(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsOracleUnavailable(err))
}

type failingPriceOracle struct{}

func (failingPriceOracle) NativePriceUSD(context.Context) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, errors.New("api down")
}

func TestComposedPriceOracle_FallsThrough(t *testing.T) {
	composed := NewComposedPriceOracle(
		failingPriceOracle{},
		&StaticPriceOracle{PriceUSD: decimal.NewFromFloat(0.40)},
	)

	price, live, err := composed.NativePriceUSD(context.Background())
	require.NoError(t, err)
	assert.False(t, live, "static fallback must not report as live")
	assert.Equal(t, "0.4", price.String())
}

func TestNewPriceOracle_NoAssetID_Static(t *testing.T) {
	o := NewPriceOracle("", decimal.NewFromFloat(0.40))
	price, live, err := o.NativePriceUSD(context.Background())
	require.NoError(t, err)
	assert.False(t, live)
	assert.Equal(t, "0.4", price.String())
}

func TestProvider_Snapshot(t *testing.T) {
	cfg := config.Default()
	provider := NewProvider(
		&StaticFeeOracle{GasPriceWei: decimal.New(30, 9), PriorityFeeWei: decimal.New(1, 9)},
		&StaticPriceOracle{PriceUSD: decimal.NewFromFloat(0.40)},
		cfg,
	)

	snap, err := provider.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "30", snap.GasPriceGwei().String())
	assert.Equal(t, "1", snap.PriorityFeeGwei().String())
	assert.True(t, snap.LiveGas)
	assert.False(t, snap.LivePrice)
	assert.True(t, snap.TokenPriceUSD.Equal(cfg.TokenPriceUSD))
	assert.NotEqual(t, snap.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestProvider_FeeFailurePropagates(t *testing.T) {
	provider := NewProvider(
		&StaticFeeOracle{Err: errors.New("node down")},
		&StaticPriceOracle{PriceUSD: decimal.NewFromFloat(0.40)},
		config.Default(),
	)

	_, err := provider.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestProvider_PriceFailureFallsBack(t *testing.T) {
	cfg := config.Default()
	provider := NewProvider(
		&StaticFeeOracle{GasPriceWei: decimal.New(30, 9)},
		failingPriceOracle{},
		cfg,
	)

	snap, err := provider.Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.NativePriceUSD.Equal(cfg.NativeFallbackPriceUSD))
	assert.False(t, snap.LivePrice)
}

func TestProvider_PriceSnapshot_NoFeeMarket(t *testing.T) {
	provider := NewProvider(
		&StaticFeeOracle{Err: errors.New("node down")},
		&StaticPriceOracle{PriceUSD: decimal.NewFromFloat(0.40)},
		config.Default(),
	)

	snap, err := provider.PriceSnapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.GasPriceWei.IsZero())
	assert.False(t, snap.LiveGas)
}

func TestStaticRateTable(t *testing.T) {
	table := NewStaticRateTable()

	rate, known := table.Rate("EUR")
	assert.True(t, known)
	assert.Equal(t, "0.92", rate.String())

	rate, known = table.Rate("usd")
	assert.True(t, known)
	assert.Equal(t, "1", rate.String())

	rate, known = table.Rate("JPY")
	assert.False(t, known)
	assert.Equal(t, "1", rate.String())

	assert.Len(t, table.Currencies(), 4)
}
