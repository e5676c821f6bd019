// Package main runs the intelligence HTTP server. It exposes the gas
// strategy, swap pricing, and compliance risk endpoints.
package main

import (
	"context"
	"time"

	"github.com/bezhas/intelligence/api"
	"github.com/bezhas/intelligence/internal/audit"
	"github.com/bezhas/intelligence/internal/compliance"
	"github.com/bezhas/intelligence/internal/config"
	"github.com/bezhas/intelligence/internal/gas"
	"github.com/bezhas/intelligence/internal/oracle"
	"github.com/bezhas/intelligence/internal/swap"
	"github.com/bezhas/intelligence/pkg/platform"
)

func main() {
	logger := platform.InitLogger("bezhas-intelligence")

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		platform.LogFatal(logger, "invalid fee configuration", err)
	}
	profile := config.DefaultGasProfile()
	if err := profile.Validate(); err != nil {
		platform.LogFatal(logger, "invalid gas profile", err)
	}

	rpcEndpoint := platform.GetEnv("BEZ_RPC_ENDPOINT", "https://polygon-rpc.com")
	nativeAsset := platform.GetEnv("BEZ_NATIVE_ASSET_ID", "matic-network")

	provider := oracle.NewProvider(
		oracle.NewRPCFeeOracle(rpcEndpoint).WithLogger(logger),
		oracle.NewPriceOracle(nativeAsset, cfg.NativeFallbackPriceUSD),
		cfg,
	)

	advisor := gas.NewAdvisor(cfg, profile)
	pricer := swap.NewPricer(cfg, oracle.NewStaticRateTable())

	var kyc compliance.KYCStore
	if dsn := platform.GetEnv("BEZ_POSTGRES_DSN", ""); dsn != "" {
		store, err := compliance.NewPostgresKYCStore(dsn)
		if err != nil {
			platform.LogFatal(logger, "failed to connect to KYC store", err)
		}
		defer store.Close()
		kyc = store
		logger.Info().Msg("KYC store connected")
	} else {
		logger.Warn().Msg("no KYC store configured, all wallets treated as unverified")
	}

	scorer := compliance.NewScorer(cfg, kyc)
	if dir := platform.GetEnv("BEZ_POLICIES_DIR", ""); dir != "" {
		scorer = scorer.WithPolicyPack(compliance.NewPolicyPack(dir))
		logger.Info().Str("dir", dir).Msg("compliance policy pack loaded")
	}

	server := api.NewServer(provider, advisor, pricer, scorer, logger, &api.Config{
		Port:           platform.GetEnvInt("PORT", 8080),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxRequestSize: 1 << 20,
	})

	if dsn := platform.GetEnv("BEZ_CLICKHOUSE_DSN", ""); dsn != "" {
		store, err := audit.NewStoreFromDSN(dsn, logger)
		if err != nil {
			platform.LogFatal(logger, "failed to connect to audit store", err)
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.EnsureSchema(ctx); err != nil {
			cancel()
			platform.LogFatal(logger, "failed to prepare audit schema", err)
		}
		cancel()

		server.WithAuditSink(store)
		logger.Info().Msg("decision audit trail enabled")
	}

	if err := server.Start(); err != nil {
		platform.LogFatal(logger, "server failed", err)
	}
}
