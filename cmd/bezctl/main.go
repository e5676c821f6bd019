// bezctl - CLI for the BezHas intelligence decision engines.
//
// Usage:
//   bezctl gas advise --category marketplace-purchase --value 50 [--urgency low]
//   bezctl swap price --direction TOKEN_TO_FIAT --amount 1000 [--fiat EUR]
//   bezctl compliance assess --wallet 0xabc --amount 15000 --region US
//   bezctl serve
//
// Exit codes: 0 the transaction may proceed, 1 it is rejected,
// 2 it is held (delay, batch, manual review, or wait for better rate).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/bezhas/intelligence/api"
	"github.com/bezhas/intelligence/internal/compliance"
	"github.com/bezhas/intelligence/internal/config"
	"github.com/bezhas/intelligence/internal/gas"
	"github.com/bezhas/intelligence/internal/oracle"
	"github.com/bezhas/intelligence/internal/swap"
	"github.com/bezhas/intelligence/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	exitProceed = 0
	exitReject  = 1
	exitHold    = 2
)

func main() {
	app := &cli.App{
		Name:    "bezctl",
		Usage:   "BezHas Intelligence - gas strategy, swap pricing, and compliance decisions",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc-endpoint",
				Value:   "https://polygon-rpc.com",
				Usage:   "Chain JSON-RPC endpoint for fee data",
				EnvVars: []string{"BEZ_RPC_ENDPOINT"},
			},
			&cli.StringFlag{
				Name:    "native-asset",
				Value:   "matic-network",
				Usage:   "CoinGecko asset id for the native gas token",
				EnvVars: []string{"BEZ_NATIVE_ASSET_ID"},
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Skip live oracles and use the configured reference prices",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "json",
				Usage:   "Output format (json, text)",
			},
		},

		Commands: []*cli.Command{
			gasCommand(),
			swapCommand(),
			complianceCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		if code, ok := err.(cli.ExitCoder); ok {
			os.Exit(code.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// WIRING
// =============================================================================

func buildProvider(c *cli.Context, cfg *config.FeeConfiguration) *oracle.Provider {
	if c.Bool("offline") {
		return oracle.NewProvider(
			&oracle.StaticFeeOracle{
				GasPriceWei:    decimal.New(30, 9), // 30 gwei
				PriorityFeeWei: decimal.New(1, 9),
			},
			&oracle.StaticPriceOracle{PriceUSD: cfg.NativeFallbackPriceUSD},
			cfg,
		)
	}
	return oracle.NewProvider(
		oracle.NewRPCFeeOracle(c.String("rpc-endpoint")),
		oracle.NewPriceOracle(c.String("native-asset"), cfg.NativeFallbackPriceUSD),
		cfg,
	)
}

func loadConfig() (*config.FeeConfiguration, error) {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func textOutput(c *cli.Context) bool {
	return c.String("output") == "text"
}

func printGasText(d *gas.Decision) {
	fmt.Printf("Action:      %s (payer: %s)\n", d.Action, d.Payer)
	fmt.Printf("Gas:         %s gwei (%s gas, $%s network cost)\n",
		d.CurrentGasGwei.StringFixed(2), decimal.NewFromInt(d.EstimatedGasUnits), d.NetworkCostUSD.StringFixed(4))
	fmt.Printf("Confidence:  %.2f\n", d.Confidence)
	fmt.Printf("Reasoning:   %s\n", d.Reasoning)
	if d.ErrorReason != "" {
		fmt.Printf("Degraded:    %s\n", d.ErrorReason)
	}
}

func printSwapText(d *swap.Decision) {
	fmt.Printf("Recommendation: %s\n", d.Recommendation)
	fmt.Printf("Quote:          %s %s -> %s %s (rate %s)\n",
		d.InputAmount.StringFixed(2), d.InputCurrency,
		d.OutputAmount.StringFixed(2), d.OutputCurrency, d.EffectiveRate.StringFixed(6))
	fmt.Printf("Gross value:    $%s\n", d.GrossValueUSD.StringFixed(2))
	fmt.Printf("Confidence:     %.2f\n", d.Confidence)
	fmt.Printf("Reasoning:      %s\n", d.Reasoning)
	if d.ErrorReason != "" {
		fmt.Printf("Degraded:       %s\n", d.ErrorReason)
	}
}

func printComplianceText(d *compliance.Decision) {
	fmt.Printf("Status:      %s (action: %s)\n", d.Status, d.AutomaticAction)
	fmt.Printf("Risk:        %d (%s)\n", d.RiskScore, d.RiskLevel)
	if len(d.Flags) > 0 {
		fmt.Printf("Flags:       %s\n", strings.Join(d.Flags, ", "))
	}
	fmt.Printf("Confidence:  %.2f\n", d.Confidence)
	fmt.Printf("Reasoning:   %s\n", d.Reasoning)
	if d.ErrorReason != "" {
		fmt.Printf("Degraded:    %s\n", d.ErrorReason)
	}
}

// =============================================================================
// GAS COMMAND
// =============================================================================

func gasCommand() *cli.Command {
	return &cli.Command{
		Name:  "gas",
		Usage: "Gas strategy decisions",
		Subcommands: []*cli.Command{
			{
				Name:  "advise",
				Usage: "Decide whether a transaction should execute, delay, or batch",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "category",
						Aliases:  []string{"c"},
						Usage:    "Transaction category (data-ingest, marketplace-purchase, token-transfer, asset-mint, staking-deposit)",
						Required: true,
					},
					&cli.Float64Flag{
						Name:     "value",
						Aliases:  []string{"v"},
						Usage:    "Estimated transaction value in USD",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "urgency",
						Aliases: []string{"u"},
						Value:   "medium",
						Usage:   "Urgency (low, medium, high)",
					},
				},
				Action: runGasAdvise,
			},
		},
	}
}

func runGasAdvise(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	provider := buildProvider(c, cfg)
	advisor := gas.NewAdvisor(cfg, config.DefaultGasProfile())

	value := decimal.NewFromFloat(c.Float64("value"))
	req := gas.Request{
		Category:          c.String("category"),
		EstimatedValueUSD: &value,
		Urgency:           gas.ParseUrgency(c.String("urgency")),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var d *gas.Decision
	snap, err := provider.Snapshot(ctx)
	if err != nil {
		d = advisor.Degraded(req, err)
	} else {
		d, err = advisor.Advise(snap, req)
		if err != nil {
			return err
		}
	}

	if textOutput(c) {
		printGasText(d)
	} else {
		printJSON(api.NewGasDecisionResponse(d))
	}
	if d.Action == gas.ActionExecute {
		return nil
	}
	return cli.Exit("", exitHold)
}

// =============================================================================
// SWAP COMMAND
// =============================================================================

func swapCommand() *cli.Command {
	return &cli.Command{
		Name:  "swap",
		Usage: "Swap pricing decisions",
		Subcommands: []*cli.Command{
			{
				Name:  "price",
				Usage: "Quote a token/fiat swap with the full fee breakdown",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "direction",
						Aliases:  []string{"d"},
						Usage:    "Swap direction (TOKEN_TO_FIAT, FIAT_TO_TOKEN)",
						Required: true,
					},
					&cli.Float64Flag{
						Name:     "amount",
						Aliases:  []string{"a"},
						Usage:    "Amount to swap (tokens or fiat units depending on direction)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "fiat",
						Aliases: []string{"f"},
						Value:   "USD",
						Usage:   "Fiat currency (USD, EUR, GBP, MXN)",
					},
				},
				Action: runSwapPrice,
			},
		},
	}
}

func runSwapPrice(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	provider := buildProvider(c, cfg)
	pricer := swap.NewPricer(cfg, oracle.NewStaticRateTable())

	amount := decimal.NewFromFloat(c.Float64("amount"))
	req := swap.Request{
		Direction:    swap.Direction(c.String("direction")),
		Amount:       &amount,
		FiatCurrency: c.String("fiat"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var d *swap.Decision
	snap, err := provider.Snapshot(ctx)
	if err != nil {
		d = pricer.Degraded(req, err)
	} else {
		d, err = pricer.Price(snap, req)
		if err != nil {
			return err
		}
	}

	if textOutput(c) {
		printSwapText(d)
	} else {
		printJSON(api.NewSwapDecisionResponse(d))
	}
	if d.Recommendation == swap.RecommendProceed {
		return nil
	}
	return cli.Exit("", exitHold)
}

// =============================================================================
// COMPLIANCE COMMAND
// =============================================================================

func complianceCommand() *cli.Command {
	return &cli.Command{
		Name:  "compliance",
		Usage: "Compliance risk decisions",
		Subcommands: []*cli.Command{
			{
				Name:  "assess",
				Usage: "Score a transaction for compliance risk",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "wallet",
						Aliases:  []string{"w"},
						Usage:    "Wallet address",
						Required: true,
					},
					&cli.Float64Flag{
						Name:     "amount",
						Aliases:  []string{"a"},
						Usage:    "Amount in platform tokens",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "region",
						Aliases:  []string{"r"},
						Usage:    "ISO region code of the fiat counterparty",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Value:   "transfer",
						Usage:   "Transaction type (transfer, swap, marketplace, staking)",
					},
					&cli.StringFlag{
						Name:    "postgres-dsn",
						Usage:   "Postgres DSN for KYC lookups",
						EnvVars: []string{"BEZ_POSTGRES_DSN"},
					},
					&cli.StringFlag{
						Name:    "policies-dir",
						Usage:   "Directory of rego policy files",
						EnvVars: []string{"BEZ_POLICIES_DIR"},
					},
				},
				Action: runComplianceAssess,
			},
		},
	}
}

func runComplianceAssess(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	provider := buildProvider(c, cfg)

	var kyc compliance.KYCStore
	if dsn := c.String("postgres-dsn"); dsn != "" {
		store, err := compliance.NewPostgresKYCStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to KYC store: %w", err)
		}
		defer store.Close()
		kyc = store
	}

	scorer := compliance.NewScorer(cfg, kyc)
	if dir := c.String("policies-dir"); dir != "" {
		scorer = scorer.WithPolicyPack(compliance.NewPolicyPack(dir))
	}

	amount := decimal.NewFromFloat(c.Float64("amount"))
	req := compliance.Request{
		WalletAddress:   c.String("wallet"),
		AmountTokens:    &amount,
		FiatRegionCode:  c.String("region"),
		TransactionType: c.String("type"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var d *compliance.Decision
	snap, err := provider.PriceSnapshot(ctx)
	if err != nil {
		d = scorer.Degraded(err)
	} else {
		d, err = scorer.Assess(ctx, snap, req)
		if err != nil {
			return err
		}
	}

	if textOutput(c) {
		printComplianceText(d)
	} else {
		printJSON(api.NewComplianceDecisionResponse(d))
	}
	switch d.Status {
	case compliance.StatusApproved:
		return nil
	case compliance.StatusRejected:
		return cli.Exit("", exitReject)
	default:
		return cli.Exit("", exitHold)
	}
}

// =============================================================================
// SERVE COMMAND
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the intelligence HTTP server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   8080,
				Usage:   "HTTP listen port",
				EnvVars: []string{"PORT"},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	logger := platform.InitLogger("bezhas-intelligence")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	provider := buildProvider(c, cfg)
	advisor := gas.NewAdvisor(cfg, config.DefaultGasProfile())
	pricer := swap.NewPricer(cfg, oracle.NewStaticRateTable())

	var kyc compliance.KYCStore
	if dsn := platform.GetEnv("BEZ_POSTGRES_DSN", ""); dsn != "" {
		store, err := compliance.NewPostgresKYCStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to KYC store: %w", err)
		}
		defer store.Close()
		kyc = store
	}
	scorer := compliance.NewScorer(cfg, kyc)
	if dir := platform.GetEnv("BEZ_POLICIES_DIR", ""); dir != "" {
		scorer = scorer.WithPolicyPack(compliance.NewPolicyPack(dir))
	}

	serverCfg := api.DefaultConfig()
	serverCfg.Port = c.Int("port")
	server := api.NewServer(provider, advisor, pricer, scorer, logger, serverCfg)
	return server.Start()
}
