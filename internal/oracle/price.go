package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bezhas/intelligence/pkg/errors"
	"github.com/bezhas/intelligence/pkg/platform"
)

// CoinGeckoClient fetches the native asset's spot price from the
// CoinGecko simple-price API.
type CoinGeckoClient struct {
	baseURL    string
	assetID    string
	httpClient *platform.HTTPClient

	cacheMu  sync.RWMutex
	cached   decimal.Decimal
	cachedAt time.Time
	cacheTTL time.Duration
}

// NewCoinGeckoClient creates a price client for the given asset id
// (e.g. "polygon-ecosystem-token").
func NewCoinGeckoClient(assetID string) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL:    "https://api.coingecko.com/api/v3",
		assetID:    assetID,
		httpClient: platform.NewHTTPClient(2, 10*time.Second, zerolog.Nop()),
		cacheTTL:   15 * time.Minute,
	}
}

// WithBaseURL overrides the API base URL, for tests.
func (c *CoinGeckoClient) WithBaseURL(url string) *CoinGeckoClient {
	c.baseURL = url
	return c
}

// WithLogger attaches a logger for retry diagnostics.
func (c *CoinGeckoClient) WithLogger(logger zerolog.Logger) *CoinGeckoClient {
	c.httpClient.Logger = logger
	return c
}

// NativePriceUSD returns the cached or freshly fetched spot price.
func (c *CoinGeckoClient) NativePriceUSD(ctx context.Context) (decimal.Decimal, bool, error) {
	c.cacheMu.RLock()
	if !c.cached.IsZero() && time.Since(c.cachedAt) < c.cacheTTL {
		price := c.cached
		c.cacheMu.RUnlock()
		return price, true, nil
	}
	c.cacheMu.RUnlock()

	price, err := c.fetch(ctx)
	if err != nil {
		return decimal.Zero, false, errors.NewOracleUnavailableError("price", err)
	}

	c.cacheMu.Lock()
	c.cached = price
	c.cachedAt = time.Now()
	c.cacheMu.Unlock()

	return price, true, nil
}

func (c *CoinGeckoClient) fetch(ctx context.Context) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, c.assetID)

	resp, err := c.httpClient.GetJSON(ctx, url)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("price API returned status %d", resp.StatusCode)
	}

	var result map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return decimal.Zero, err
	}

	entry, ok := result[c.assetID]
	if !ok || entry.USD <= 0 {
		return decimal.Zero, fmt.Errorf("price API returned no quote for %s", c.assetID)
	}
	return decimal.NewFromFloat(entry.USD), nil
}

// StaticPriceOracle serves a fixed price. Reports live=false so
// decisions built on it carry reduced confidence.
type StaticPriceOracle struct {
	PriceUSD decimal.Decimal
}

func (o *StaticPriceOracle) NativePriceUSD(_ context.Context) (decimal.Decimal, bool, error) {
	return o.PriceUSD, false, nil
}

// ComposedPriceOracle tries each oracle in order until one succeeds.
type ComposedPriceOracle struct {
	oracles []PriceOracle
}

func NewComposedPriceOracle(oracles ...PriceOracle) *ComposedPriceOracle {
	return &ComposedPriceOracle{oracles: oracles}
}

func (c *ComposedPriceOracle) NativePriceUSD(ctx context.Context) (decimal.Decimal, bool, error) {
	var lastErr error
	for _, o := range c.oracles {
		price, live, err := o.NativePriceUSD(ctx)
		if err == nil {
			return price, live, nil
		}
		lastErr = err
	}
	return decimal.Zero, false, lastErr
}

// NewPriceOracle builds the configured price source: live API when an
// asset id is set, always backed by the static fallback price.
func NewPriceOracle(assetID string, fallbackUSD decimal.Decimal) PriceOracle {
	static := &StaticPriceOracle{PriceUSD: fallbackUSD}
	if assetID == "" {
		return static
	}
	return NewComposedPriceOracle(NewCoinGeckoClient(assetID), static)
}
