package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bezhas/intelligence/pkg/errors"
	"github.com/bezhas/intelligence/pkg/platform"
)

// RPCFeeOracle fetches the fee market over JSON-RPC from a chain node.
type RPCFeeOracle struct {
	endpoint   string
	httpClient *platform.HTTPClient
}

// NewRPCFeeOracle creates a fee oracle against a JSON-RPC endpoint.
func NewRPCFeeOracle(endpoint string) *RPCFeeOracle {
	return &RPCFeeOracle{
		endpoint:   endpoint,
		httpClient: platform.NewHTTPClient(2, 10*time.Second, zerolog.Nop()),
	}
}

// WithLogger attaches a logger for retry diagnostics.
func (o *RPCFeeOracle) WithLogger(logger zerolog.Logger) *RPCFeeOracle {
	o.httpClient.Logger = logger
	return o
}

// FeeData queries eth_gasPrice and eth_maxPriorityFeePerGas. A node
// that does not implement the priority-fee method yields zero for it,
// which is a valid fee market state, not an error.
func (o *RPCFeeOracle) FeeData(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	gasPrice, err := o.callQuantity(ctx, "eth_gasPrice")
	if err != nil {
		return decimal.Zero, decimal.Zero, errors.NewOracleUnavailableError("fee", err)
	}

	priorityFee, err := o.callQuantity(ctx, "eth_maxPriorityFeePerGas")
	if err != nil {
		priorityFee = decimal.Zero
	}

	return gasPrice, priorityFee, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (o *RPCFeeOracle) callQuantity(ctx context.Context, method string) (decimal.Decimal, error) {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: []any{}, ID: 1})
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := o.httpClient.PostJSON(ctx, o.endpoint, body)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rpc endpoint returned status %d", resp.StatusCode)
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return decimal.Zero, err
	}
	if out.Error != nil {
		return decimal.Zero, fmt.Errorf("rpc error %d: %s", out.Error.Code, out.Error.Message)
	}

	return parseQuantity(out.Result)
}

// parseQuantity decodes a hex quantity ("0x...") to a decimal wei value.
func parseQuantity(hex string) (decimal.Decimal, error) {
	trimmed := strings.TrimPrefix(hex, "0x")
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("empty rpc quantity")
	}
	n, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return decimal.Zero, fmt.Errorf("malformed rpc quantity: %q", hex)
	}
	return decimal.NewFromBigInt(n, 0), nil
}

// StaticFeeOracle serves a fixed fee market, for tests and offline use.
type StaticFeeOracle struct {
	GasPriceWei    decimal.Decimal
	PriorityFeeWei decimal.Decimal
	Err            error
}

func (o *StaticFeeOracle) FeeData(_ context.Context) (decimal.Decimal, decimal.Decimal, error) {
	if o.Err != nil {
		return decimal.Zero, decimal.Zero, o.Err
	}
	return o.GasPriceWei, o.PriorityFeeWei, nil
}
