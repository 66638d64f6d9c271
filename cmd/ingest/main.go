// Package main backfills transactions by signature. Each signature is
// fetched from Shyft and run through the same pipeline as webhook deliveries,
// so cohort detection sees the inserts if the monitor is running.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"solana-wallet-monitor/internal/config"
	"solana-wallet-monitor/internal/ingestion"
	"solana-wallet-monitor/internal/logging"
	"solana-wallet-monitor/internal/normalizer"
	"solana-wallet-monitor/internal/shyft"
	pgstore "solana-wallet-monitor/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	signatures := flag.String("signatures", "", "Comma-separated transaction signatures")
	file := flag.String("file", "", "File with one signature per line (- for stdin)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.App.LogLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	sigs, err := collectSignatures(*signatures, *file)
	if err != nil {
		log.Fatal("read signatures", zap.Error(err))
	}
	if len(sigs) == 0 {
		log.Fatal("no signatures given; use --signatures or --file")
	}
	if cfg.Shyft.APIKey == "" {
		log.Fatal("shyft.api_key is required for backfill")
	}
	if cfg.Storage.UseMemory {
		log.Fatal("backfill writes to postgres; storage.use_memory is set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	client := shyft.NewClient(cfg.Shyft.APIKey,
		shyft.WithBaseURL(cfg.Shyft.BaseURL),
		shyft.WithNetwork(cfg.Shyft.Network),
		shyft.WithTimeout(cfg.Shyft.Timeout),
		shyft.WithMaxRetries(cfg.Shyft.MaxRetries),
		shyft.WithLogger(log.Named("shyft")),
	)
	pipeline := ingestion.NewPipeline(ingestion.PipelineOptions{
		Transactions: pgstore.NewTransactionStore(pool),
		RawRecords:   pgstore.NewRawRecordStore(pool),
		Pull:         normalizer.NewPullNormalizer(client),
		StoreTimeout: cfg.Ingest.StoreTimeout,
		Logger:       log,
	})

	counts := backfill(ctx, pipeline, sigs)
	log.Info("backfill complete",
		zap.Int("total", len(sigs)),
		zap.Int("stored", counts[ingestion.StatusStored]),
		zap.Int("skipped", counts[ingestion.StatusSkipped]),
		zap.Int("failed", counts[ingestion.StatusFailed]))

	if counts[ingestion.StatusFailed] > 0 {
		os.Exit(1)
	}
}

// backfill ingests every signature sequentially and tallies outcomes.
func backfill(ctx context.Context, p *ingestion.Pipeline, sigs []string) map[ingestion.Status]int {
	counts := make(map[ingestion.Status]int, 3)
	for _, sig := range sigs {
		if ctx.Err() != nil {
			break
		}
		body, _ := json.Marshal(map[string]string{"signature": sig})
		out := p.Ingest(ctx, body)
		counts[out.Status]++
	}
	return counts
}

// collectSignatures merges the flag list and the file, dropping blanks and
// duplicates while keeping first-seen order.
func collectSignatures(list, file string) ([]string, error) {
	var raw []string
	if list != "" {
		raw = append(raw, strings.Split(list, ",")...)
	}

	if file != "" {
		var r io.Reader
		if file == "-" {
			r = os.Stdin
		} else {
			f, err := os.Open(file)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			r = f
		}
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			raw = append(raw, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || strings.HasPrefix(s, "#") || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}
