// Package api provides the HTTP API server for the intelligence
// service. It exposes the three decision endpoints plus health and
// discovery routes.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bezhas/intelligence/internal/audit"
	"github.com/bezhas/intelligence/internal/compliance"
	"github.com/bezhas/intelligence/internal/gas"
	"github.com/bezhas/intelligence/internal/oracle"
	"github.com/bezhas/intelligence/internal/swap"
	"github.com/bezhas/intelligence/pkg/api"
	"github.com/bezhas/intelligence/pkg/errors"
	"github.com/bezhas/intelligence/pkg/platform"
)

// Version is set at build time.
var Version = "0.1.0"

// Config holds server configuration.
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestSize int64
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxRequestSize: 1 * 1024 * 1024, // 1MB
	}
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	provider   *oracle.Provider
	advisor    *gas.Advisor
	pricer     *swap.Pricer
	scorer     *compliance.Scorer
	sink       audit.Sink
	logger     zerolog.Logger
	config     *Config
	startTime  time.Time
}

// NewServer wires the decision engines behind the HTTP surface.
func NewServer(provider *oracle.Provider, advisor *gas.Advisor, pricer *swap.Pricer, scorer *compliance.Scorer, logger zerolog.Logger, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		provider:  provider,
		advisor:   advisor,
		pricer:    pricer,
		scorer:    scorer,
		logger:    logger,
		config:    config,
		startTime: time.Now(),
	}
}

// WithAuditSink attaches a decision audit trail. Writes are
// best-effort and never fail a request.
func (s *Server) WithAuditSink(sink audit.Sink) *Server {
	s.sink = sink
	return s
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/health/live", s.handleLiveness)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/version", s.handleVersion)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/gas/advise", s.handleGasAdvise)
		r.Post("/swap/price", s.handleSwapPrice)
		r.Post("/compliance/assess", s.handleComplianceAssess)
		r.Get("/tools", s.handleTools)

		r.Group(func(r chi.Router) {
			r.Use(platform.BasicAuthMiddleware)
			r.Get("/audit/recent", s.handleAuditRecent)
		})
	})

	return r
}

// Start starts the HTTP server with graceful shutdown on SIGINT/SIGTERM.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Int("port", s.config.Port).Str("version", Version).Msg("Starting intelligence API server")
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		s.logger.Info().Msg("Shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

// =============================================================================
// DECISION ENDPOINTS
// =============================================================================

func (s *Server) handleGasAdvise(w http.ResponseWriter, r *http.Request) {
	var body api.GasAdviseRequest
	if !s.decode(w, r, &body) {
		return
	}

	req := gas.Request{
		Category: body.Category,
		Urgency:  gas.ParseUrgency(body.Urgency),
	}
	if body.EstimatedValueUSD != nil {
		v := decimal.NewFromFloat(*body.EstimatedValueUSD)
		req.EstimatedValueUSD = &v
	}

	var d *gas.Decision
	snap, err := s.provider.Snapshot(r.Context())
	if err != nil {
		if req.EstimatedValueUSD == nil {
			s.engineError(w, errors.NewInvalidInputError("estimated_value_usd", "estimated_value_usd is required"))
			return
		}
		d = s.advisor.Degraded(req, err)
	} else {
		d, err = s.advisor.Advise(snap, req)
		if err != nil {
			s.engineError(w, err)
			return
		}
	}

	var valueUSD float64
	if body.EstimatedValueUSD != nil {
		valueUSD = *body.EstimatedValueUSD
	}
	s.audit(&audit.Record{
		Operation:  audit.OpGasAdvise,
		Verdict:    string(d.Action),
		Subject:    body.Category,
		ValueUSD:   valueUSD,
		Confidence: d.Confidence,
		Degraded:   d.ErrorReason != "",
		SnapshotID: d.SnapshotID,
		Reasoning:  d.Reasoning,
	})
	s.jsonResponse(w, http.StatusOK, NewGasDecisionResponse(d))
}

func (s *Server) handleSwapPrice(w http.ResponseWriter, r *http.Request) {
	var body api.SwapPriceRequest
	if !s.decode(w, r, &body) {
		return
	}

	req := swap.Request{
		Direction:    swap.Direction(body.Direction),
		FiatCurrency: body.FiatCurrency,
	}
	if body.Amount != nil {
		v := decimal.NewFromFloat(*body.Amount)
		req.Amount = &v
	}

	var d *swap.Decision
	snap, err := s.provider.Snapshot(r.Context())
	if err != nil {
		if err := validateSwapInput(req); err != nil {
			s.engineError(w, err)
			return
		}
		d = s.pricer.Degraded(req, err)
	} else {
		d, err = s.pricer.Price(snap, req)
		if err != nil {
			s.engineError(w, err)
			return
		}
	}

	s.audit(&audit.Record{
		Operation:  audit.OpSwapPrice,
		Verdict:    string(d.Recommendation),
		Subject:    string(d.Direction),
		ValueUSD:   d.GrossValueUSD.InexactFloat64(),
		Confidence: d.Confidence,
		Degraded:   d.ErrorReason != "",
		SnapshotID: d.SnapshotID,
		Reasoning:  d.Reasoning,
	})
	s.jsonResponse(w, http.StatusOK, NewSwapDecisionResponse(d))
}

// validateSwapInput rejects malformed requests before a degraded
// decision is issued, so a bad request is still a 400 even when the
// fee oracle is down.
func validateSwapInput(req swap.Request) error {
	if req.Direction != swap.TokenToFiat && req.Direction != swap.FiatToToken {
		return errors.NewInvalidInputError("direction", "direction must be TOKEN_TO_FIAT or FIAT_TO_TOKEN")
	}
	if req.Amount == nil {
		return errors.NewInvalidInputError("amount", "amount is required")
	}
	if !req.Amount.IsPositive() {
		return errors.NewInvalidInputError("amount", "amount must be positive")
	}
	return nil
}

func (s *Server) handleComplianceAssess(w http.ResponseWriter, r *http.Request) {
	var body api.ComplianceAssessRequest
	if !s.decode(w, r, &body) {
		return
	}

	req := compliance.Request{
		WalletAddress:   body.WalletAddress,
		FiatRegionCode:  body.FiatRegionCode,
		TransactionType: body.TransactionType,
	}
	if body.AmountTokens != nil {
		v := decimal.NewFromFloat(*body.AmountTokens)
		req.AmountTokens = &v
	}

	var d *compliance.Decision
	snap, err := s.provider.PriceSnapshot(r.Context())
	if err != nil {
		if req.AmountTokens == nil {
			s.engineError(w, errors.NewInvalidInputError("amount_tokens", "amount_tokens is required"))
			return
		}
		d = s.scorer.Degraded(err)
	} else {
		d, err = s.scorer.Assess(r.Context(), snap, req)
		if err != nil {
			s.engineError(w, err)
			return
		}
	}

	s.audit(&audit.Record{
		Operation:  audit.OpComplianceAssess,
		Verdict:    string(d.Status),
		Subject:    body.WalletAddress,
		ValueUSD:   d.TotalValueUSD.InexactFloat64(),
		RiskScore:  int32(d.RiskScore),
		Confidence: d.Confidence,
		Degraded:   d.ErrorReason != "",
		SnapshotID: d.SnapshotID,
		Reasoning:  d.Reasoning,
	})
	s.jsonResponse(w, http.StatusOK, NewComplianceDecisionResponse(d))
}

// =============================================================================
// RESPONSE SHAPES
// =============================================================================

// GasDecisionResponse is the API shape of a gas strategy decision.
type GasDecisionResponse struct {
	Action                  string  `json:"action"`
	Payer                   string  `json:"payer"`
	CurrentGasGwei          string  `json:"current_gas_gwei"`
	MaxPriorityFeeGwei      string  `json:"max_priority_fee_gwei"`
	NetworkCostUSD          string  `json:"network_cost_usd"`
	ProjectedPlatformProfit string  `json:"projected_platform_profit"`
	IsProfitable            bool    `json:"is_profitable"`
	EstimatedGasUnits       int64   `json:"estimated_gas_units"`
	FeeBurnAmount           string  `json:"fee_burn_amount"`
	Reasoning               string  `json:"reasoning"`
	Confidence              float64 `json:"confidence"`
	SnapshotID              string  `json:"snapshot_id"`
	ErrorReason             string  `json:"error,omitempty"`
}

func NewGasDecisionResponse(d *gas.Decision) GasDecisionResponse {
	return GasDecisionResponse{
		Action:                  string(d.Action),
		Payer:                   string(d.Payer),
		CurrentGasGwei:          d.CurrentGasGwei.StringFixed(2),
		MaxPriorityFeeGwei:      d.MaxPriorityFeeGwei.StringFixed(2),
		NetworkCostUSD:          d.NetworkCostUSD.StringFixed(6),
		ProjectedPlatformProfit: d.ProjectedPlatformProfit.StringFixed(6),
		IsProfitable:            d.IsProfitable,
		EstimatedGasUnits:       d.EstimatedGasUnits,
		FeeBurnAmount:           d.FeeBurnAmount.StringFixed(6),
		Reasoning:               d.Reasoning,
		Confidence:              d.Confidence,
		SnapshotID:              d.SnapshotID.String(),
		ErrorReason:             d.ErrorReason,
	}
}

// FeeBreakdownResponse is the API shape of swap fee lines.
type FeeBreakdownResponse struct {
	ProcessorFeeUSD string `json:"processor_fee_usd"`
	GasCostUSD      string `json:"gas_cost_usd"`
	PlatformFeeUSD  string `json:"platform_fee_usd"`
	FeeBurnedUSD    string `json:"fee_burned_usd"`
	TotalFeesUSD    string `json:"total_fees_usd"`
	NetValueUSD     string `json:"net_value_usd"`
}

// SwapDecisionResponse is the API shape of a swap pricing decision.
type SwapDecisionResponse struct {
	Direction      string               `json:"direction"`
	InputAmount    string               `json:"input_amount"`
	InputCurrency  string               `json:"input_currency"`
	OutputAmount   string               `json:"output_amount"`
	OutputCurrency string               `json:"output_currency"`
	TokenPriceUSD  string               `json:"token_price_usd"`
	GrossValueUSD  string               `json:"gross_value_usd"`
	Fees           FeeBreakdownResponse `json:"fees"`
	EffectiveRate  string               `json:"effective_rate"`
	Recommendation string               `json:"recommendation"`
	Reasoning      string               `json:"reasoning"`
	Confidence     float64              `json:"confidence"`
	SnapshotID     string               `json:"snapshot_id"`
	ErrorReason    string               `json:"error,omitempty"`
}

func NewSwapDecisionResponse(d *swap.Decision) SwapDecisionResponse {
	return SwapDecisionResponse{
		Direction:      string(d.Direction),
		InputAmount:    d.InputAmount.String(),
		InputCurrency:  d.InputCurrency,
		OutputAmount:   d.OutputAmount.String(),
		OutputCurrency: d.OutputCurrency,
		TokenPriceUSD:  d.TokenPriceUSD.StringFixed(4),
		GrossValueUSD:  d.GrossValueUSD.StringFixed(2),
		Fees: FeeBreakdownResponse{
			ProcessorFeeUSD: d.Fees.ProcessorFeeUSD.StringFixed(2),
			GasCostUSD:      d.Fees.GasCostUSD.StringFixed(4),
			PlatformFeeUSD:  d.Fees.PlatformFeeUSD.StringFixed(2),
			FeeBurnedUSD:    d.Fees.FeeBurnedUSD.StringFixed(2),
			TotalFeesUSD:    d.Fees.TotalFeesUSD.StringFixed(2),
			NetValueUSD:     d.Fees.NetValueUSD.StringFixed(2),
		},
		EffectiveRate:  d.EffectiveRate.StringFixed(6),
		Recommendation: string(d.Recommendation),
		Reasoning:      d.Reasoning,
		Confidence:     d.Confidence,
		SnapshotID:     d.SnapshotID.String(),
		ErrorReason:    d.ErrorReason,
	}
}

// ComplianceDecisionResponse is the API shape of a compliance decision.
type ComplianceDecisionResponse struct {
	Status          string   `json:"status"`
	KYCRequired     bool     `json:"kyc_required"`
	KYCVerified     bool     `json:"kyc_verified"`
	RiskScore       int      `json:"risk_score"`
	RiskLevel       string   `json:"risk_level"`
	Flags           []string `json:"flags"`
	AutomaticAction string   `json:"automatic_action"`
	TotalValueUSD   string   `json:"total_value_usd"`
	TransactionType string   `json:"transaction_type"`
	Reasoning       string   `json:"reasoning"`
	Confidence      float64  `json:"confidence"`
	SnapshotID      string   `json:"snapshot_id"`
	ErrorReason     string   `json:"error,omitempty"`
}

func NewComplianceDecisionResponse(d *compliance.Decision) ComplianceDecisionResponse {
	flags := d.Flags
	if flags == nil {
		flags = []string{}
	}
	return ComplianceDecisionResponse{
		Status:          string(d.Status),
		KYCRequired:     d.KYCRequired,
		KYCVerified:     d.KYCVerified,
		RiskScore:       d.RiskScore,
		RiskLevel:       d.RiskLevel,
		Flags:           flags,
		AutomaticAction: string(d.AutomaticAction),
		TotalValueUSD:   d.TotalValueUSD.StringFixed(2),
		TransactionType: d.TransactionType,
		Reasoning:       d.Reasoning,
		Confidence:      d.Confidence,
		SnapshotID:      d.SnapshotID.String(),
		ErrorReason:     d.ErrorReason,
	}
}

// =============================================================================
// META ENDPOINTS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, api.HealthResponse{
		Status:  "healthy",
		Service: "bezhas-intelligence",
		Version: Version,
		Uptime:  time.Since(s.startTime).String(),
	})
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// The service degrades gracefully without live feeds, so readiness
	// only requires that a snapshot can be assembled at all.
	if _, err := s.provider.PriceSnapshot(ctx); err != nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, api.HealthResponse{
			Status: "not ready",
			Checks: map[string]string{"snapshot": err.Error()},
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, api.VersionResponse{
		Service: "bezhas-intelligence",
		Version: Version,
	})
}

// auditReader is satisfied by the ClickHouse audit store; a plain
// write-only sink leaves the history route unserved.
type auditReader interface {
	Recent(ctx context.Context, op audit.Operation, limit int) ([]audit.Record, error)
}

func (s *Server) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	reader, ok := s.sink.(auditReader)
	if !ok {
		s.jsonResponse(w, http.StatusServiceUnavailable, api.ErrorResponse{
			Error:   "AUDIT_DISABLED",
			Message: "decision audit trail is not configured",
		})
		return
	}

	op := audit.Operation(r.URL.Query().Get("operation"))
	switch op {
	case audit.OpGasAdvise, audit.OpSwapPrice, audit.OpComplianceAssess:
	default:
		s.engineError(w, errors.NewInvalidInputError("operation", "operation must be gas_advise, swap_price, or compliance_assess"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := reader.Recent(r.Context(), op, limit)
	if err != nil {
		s.jsonResponse(w, http.StatusInternalServerError, api.ErrorResponse{
			Error:   "AUDIT_QUERY_FAILED",
			Message: err.Error(),
		})
		return
	}
	if records == nil {
		records = []audit.Record{}
	}
	s.jsonResponse(w, http.StatusOK, records)
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, []api.ToolDescriptor{
		{
			Name:        "gas_strategy",
			Method:      http.MethodPost,
			Path:        "/api/v1/gas/advise",
			Description: "Decide whether a transaction should execute, delay, or batch, and who pays gas",
		},
		{
			Name:        "swap_pricing",
			Method:      http.MethodPost,
			Path:        "/api/v1/swap/price",
			Description: "Quote a token/fiat swap with the full fee breakdown and a proceed/wait verdict",
		},
		{
			Name:        "compliance_risk",
			Method:      http.MethodPost,
			Path:        "/api/v1/compliance/assess",
			Description: "Score a transaction for compliance risk and return the automatic action",
		},
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, api.ErrorResponse{
			Error:   errors.ErrCodeInvalidInput,
			Message: fmt.Sprintf("invalid request body: %v", err),
		})
		return false
	}
	return true
}

func (s *Server) engineError(w http.ResponseWriter, err error) {
	var ee *errors.EngineError
	if stderrors.As(err, &ee) {
		status := http.StatusInternalServerError
		if ee.Code == errors.ErrCodeInvalidInput {
			status = http.StatusBadRequest
		}
		s.jsonResponse(w, status, api.ErrorResponse{
			Error:   ee.Code,
			Message: ee.Message,
			Field:   ee.Field,
		})
		return
	}
	s.jsonResponse(w, http.StatusInternalServerError, api.ErrorResponse{
		Error:   "INTERNAL",
		Message: err.Error(),
	})
}

func (s *Server) audit(rec *audit.Record) {
	if s.sink == nil {
		return
	}
	// Detached from the request context so slow audit writes never
	// hold up the response.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.sink.Write(ctx, rec)
	}()
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
