// Package api defines the shared request/response contracts for the
// intelligence service, used by the HTTP server and the CLI.
package api

// GasAdviseRequest is the input for the gas strategy advisor.
type GasAdviseRequest struct {
	Category          string   `json:"transaction_category"`
	EstimatedValueUSD *float64 `json:"estimated_value_usd"`
	Urgency           string   `json:"urgency,omitempty"`
}

// SwapPriceRequest is the input for the swap pricer.
type SwapPriceRequest struct {
	Direction    string   `json:"direction"`
	Amount       *float64 `json:"amount"`
	FiatCurrency string   `json:"fiat_currency,omitempty"`
}

// ComplianceAssessRequest is the input for the compliance risk scorer.
type ComplianceAssessRequest struct {
	WalletAddress   string   `json:"wallet_address"`
	AmountTokens    *float64 `json:"amount_tokens"`
	FiatRegionCode  string   `json:"fiat_region_code"`
	TransactionType string   `json:"transaction_type,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ToolDescriptor describes one decision operation for discovery.
type ToolDescriptor struct {
	Name        string `json:"name"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// HealthResponse reports service health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service,omitempty"`
	Version string            `json:"version,omitempty"`
	Uptime  string            `json:"uptime,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// VersionResponse reports build information.
type VersionResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}
