// Package main prints a position report for one token: every tracked wallet
// that bought it, with cost basis, average entry and remaining holdings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"solana-wallet-monitor/internal/analytics"
	"solana-wallet-monitor/internal/config"
	"solana-wallet-monitor/internal/dexscreener"
	"solana-wallet-monitor/internal/logging"
	"solana-wallet-monitor/internal/oracle"
	"solana-wallet-monitor/internal/reporting"
	"solana-wallet-monitor/internal/solana"
	pgstore "solana-wallet-monitor/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	token := flag.String("token", "", "Token mint to report on")
	format := flag.String("format", "markdown", "Output format: markdown or csv")
	output := flag.String("output", "", "Output file (default: stdout)")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "Error: --token is required")
		os.Exit(1)
	}
	if err := solana.ValidateAddress(*token); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid token mint: %v\n", err)
		os.Exit(1)
	}
	if *format != "markdown" && *format != "csv" {
		fmt.Fprintf(os.Stderr, "Error: unknown format %q\n", *format)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.UseMemory {
		fmt.Fprintln(os.Stderr, "Error: reports read from postgres; storage.use_memory is set")
		os.Exit(1)
	}

	log, err := logging.New(cfg.App.LogLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	rendered, err := run(ctx, cfg, *token, *format, log)
	if err != nil {
		log.Error("report failed", zap.Error(err))
		os.Exit(1)
	}

	if *output == "" {
		fmt.Print(rendered)
		return
	}
	if err := os.WriteFile(*output, []byte(rendered), 0o644); err != nil {
		log.Error("write report", zap.String("path", *output), zap.Error(err))
		os.Exit(1)
	}
	log.Info("report written", zap.String("path", *output))
}

func run(ctx context.Context, cfg *config.Config, token, format string, log *zap.Logger) (string, error) {
	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return "", err
	}
	defer pool.Close()

	dex := dexscreener.NewClient(
		dexscreener.WithBaseURL(cfg.DexScreener.BaseURL),
		dexscreener.WithTimeout(cfg.DexScreener.Timeout),
		dexscreener.WithMaxRetries(cfg.DexScreener.MaxRetries),
		dexscreener.WithLogger(log.Named("dexscreener")),
	)
	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint,
		solana.WithTimeout(cfg.Solana.Timeout),
		solana.WithMaxRetries(cfg.Solana.MaxRetries),
		solana.WithLogger(log.Named("solana")),
	)

	// One-shot run: no stream, a single refresh seeds the SOL price.
	pc := oracle.DefaultSolPriceConfig()
	pc.StreamURL = ""
	pc.Timeout = cfg.Oracle.Timeout
	sol := oracle.NewSolPriceCache(pc, dex, log)
	if err := sol.Refresh(ctx); err != nil {
		log.Warn("SOL price unavailable; SOL-funded buys will be unpriced", zap.Error(err))
	}

	ac := analytics.DefaultConfig()
	ac.QueryTimeout = cfg.Cohort.QueryTimeout
	ac.PriceTimeout = cfg.Oracle.Timeout
	engine := analytics.NewEngine(
		pgstore.NewTransactionStore(pool),
		pgstore.NewWalletStore(pool),
		oracle.NewRouter(sol, dex, cfg.Oracle.Timeout),
		oracle.NewSupplyOracle(rpc, cfg.Oracle.Timeout, log),
		ac,
		log,
	)

	analysis, err := engine.Analyze(ctx, token)
	if err != nil {
		return "", fmt.Errorf("analyze %s: %w", token, err)
	}

	info, err := dex.GetTokenInfo(ctx, token)
	if err != nil {
		if !errors.Is(err, dexscreener.ErrTokenNotFound) {
			log.Warn("market data unavailable", zap.Error(err))
		}
		info = nil
	}

	report := reporting.Build(analysis, info, time.Now())
	if format == "csv" {
		return reporting.RenderCSV(report)
	}
	return reporting.RenderMarkdown(report), nil
}
