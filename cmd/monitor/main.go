// Package main runs the wallet monitor: the webhook receiver, the ingestion
// pipeline, the cohort detector and its notification sinks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"solana-wallet-monitor/internal/config"
	"solana-wallet-monitor/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (default: ./config.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.App.LogLevel, cfg.App.LogEncoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	app := fx.New(
		fx.Supply(cfg),
		fx.Supply(log),

		// Infrastructure
		fx.Provide(
			newStores,
			newSignalArchive,
			newCoalescer,
			newRPCClient,
			newDexScreener,
			newShyft,
		),

		// Oracles and analytics
		fx.Provide(
			newSolPriceCache,
			newPriceRouter,
			newSupplyOracle,
			newEngine,
			newMarketFilter,
		),

		// Delivery, ingestion and detection
		fx.Provide(
			newTelegramSink,
			newSink,
			newFollowUp,
			newPipeline,
			newDetector,
			newHTTPServer,
		),

		fx.Invoke(checkRPC),
		fx.Invoke(startSolPrice),
		fx.Invoke(startDetector),
		fx.Invoke(startHTTPServer),

		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx").WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
		}),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		os.Exit(1)
	}
	log.Info("wallet monitor started", zap.String("env", cfg.App.Env), zap.String("addr", cfg.HTTP.Addr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Shutting down", zap.String("signal", sig.String()))

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}
