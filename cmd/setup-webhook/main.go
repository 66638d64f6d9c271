// Package main registers (or updates) the Helius enhanced webhook that
// delivers SWAP transactions of every watched wallet to the monitor.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"solana-wallet-monitor/internal/config"
	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/helius"
	"solana-wallet-monitor/internal/logging"
	"solana-wallet-monitor/internal/solana"
	pgstore "solana-wallet-monitor/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	dryRun := flag.Bool("dry-run", false, "Print the webhook definition without calling Helius")
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

	if err := run(cfg, *dryRun, log); err != nil {
		log.Error("webhook setup failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, dryRun bool, log *zap.Logger) error {
	if cfg.Storage.UseMemory {
		return fmt.Errorf("webhook setup reads wallets from postgres; storage.use_memory is set")
	}
	if cfg.Helius.WebhookURL == "" {
		return fmt.Errorf("helius.webhook_url is required")
	}
	if cfg.Helius.APIKey == "" && !dryRun {
		return fmt.Errorf("helius.api_key is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	wallets, err := pgstore.NewWalletStore(pool).List(ctx)
	if err != nil {
		return fmt.Errorf("list wallets: %w", err)
	}

	addresses := watchableAddresses(wallets, log)
	if len(addresses) == 0 {
		return fmt.Errorf("no valid wallet addresses to watch")
	}

	hook := &helius.Webhook{
		WebhookURL:       cfg.Helius.WebhookURL,
		TransactionTypes: []string{helius.TransactionTypeSwap},
		AccountAddresses: addresses,
		WebhookType:      helius.WebhookTypeEnhanced,
		AuthHeader:       cfg.Helius.AuthHeader,
	}

	if dryRun {
		log.Info("dry run", zap.String("url", hook.WebhookURL), zap.Strings("accounts", addresses))
		return nil
	}

	client := helius.NewWebhookClient(cfg.Helius.APIKey, cfg.Helius.APIBaseURL)

	existing, err := client.List(ctx)
	if err != nil {
		return err
	}
	for _, w := range existing {
		if w.WebhookURL != hook.WebhookURL {
			continue
		}
		updated, err := client.Update(ctx, w.WebhookID, hook)
		if err != nil {
			return err
		}
		log.Info("webhook updated",
			zap.String("webhook_id", updated.WebhookID),
			zap.Int("accounts", len(addresses)))
		return nil
	}

	created, err := client.Create(ctx, hook)
	if err != nil {
		return err
	}
	log.Info("webhook created",
		zap.String("webhook_id", created.WebhookID),
		zap.Int("accounts", len(addresses)))
	return nil
}

// watchableAddresses keeps well-formed wallet addresses that are on the
// ed25519 curve. Program-derived addresses cannot sign swaps.
func watchableAddresses(wallets []*domain.Wallet, log *zap.Logger) []string {
	out := make([]string, 0, len(wallets))
	for _, w := range wallets {
		if err := solana.ValidateAddress(w.Address); err != nil {
			log.Warn("skipping malformed wallet address", zap.String("address", w.Address), zap.Error(err))
			continue
		}
		if !solana.IsOnCurve(w.Address) {
			log.Warn("skipping off-curve wallet address", zap.String("address", w.Address))
			continue
		}
		out = append(out, w.Address)
	}
	return out
}
