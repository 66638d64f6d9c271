package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"solana-wallet-monitor/internal/analytics"
	"solana-wallet-monitor/internal/coalesce"
	"solana-wallet-monitor/internal/cohort"
	"solana-wallet-monitor/internal/config"
	"solana-wallet-monitor/internal/dexscreener"
	"solana-wallet-monitor/internal/httpapi"
	"solana-wallet-monitor/internal/ingestion"
	"solana-wallet-monitor/internal/normalizer"
	"solana-wallet-monitor/internal/notify"
	"solana-wallet-monitor/internal/oracle"
	"solana-wallet-monitor/internal/retry"
	"solana-wallet-monitor/internal/shyft"
	"solana-wallet-monitor/internal/solana"
	"solana-wallet-monitor/internal/storage"
	chstore "solana-wallet-monitor/internal/storage/clickhouse"
	"solana-wallet-monitor/internal/storage/memory"
	"solana-wallet-monitor/internal/storage/migrations"
	pgstore "solana-wallet-monitor/internal/storage/postgres"
	"solana-wallet-monitor/internal/twitter"
)

const connectTimeout = 30 * time.Second

// stores groups the primary store backends.
type stores struct {
	txs     storage.TransactionStore
	raw     storage.RawRecordStore
	wallets storage.WalletStore
	feed    storage.InsertFeed
	health  map[string]httpapi.HealthFunc
}

func newStores(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Storage.UseMemory {
		log.Warn("using in-memory storage; data is lost on exit")
		txs := memory.NewTransactionStore()
		return &stores{
			txs:     txs,
			raw:     memory.NewRawRecordStore(),
			wallets: memory.NewWalletStore(),
			feed:    txs,
			health:  map[string]httpapi.HealthFunc{},
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.RunMigrations {
		if err := migrations.RunPostgresMigrations(ctx, pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return &stores{
		txs:     pgstore.NewTransactionStore(pool),
		raw:     pgstore.NewRawRecordStore(pool),
		wallets: pgstore.NewWalletStore(pool),
		feed:    pgstore.NewInsertFeed(pool),
		health:  map[string]httpapi.HealthFunc{"postgres": pool.Ping},
	}, nil
}

// newSignalArchive returns nil when no ClickHouse DSN is configured.
func newSignalArchive(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (storage.SignalArchive, error) {
	if cfg.ClickHouse.DSN == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return conn.Close() },
	})
	return chstore.NewSignalArchive(conn), nil
}

func newCoalescer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (coalesce.Coalescer, error) {
	if cfg.Redis.Addr == "" {
		return coalesce.NewLocal(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := coalesce.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return client.Close() },
	})
	log.Info("using redis trigger coalescer", zap.String("addr", cfg.Redis.Addr))
	return coalesce.NewRedis(client, cfg.Redis.KeyPrefix), nil
}

func newRPCClient(cfg *config.Config, log *zap.Logger) *solana.HTTPClient {
	return solana.NewHTTPClient(cfg.Solana.RPCEndpoint,
		solana.WithTimeout(cfg.Solana.Timeout),
		solana.WithMaxRetries(cfg.Solana.MaxRetries),
		solana.WithLogger(log.Named("solana")),
	)
}

func newDexScreener(cfg *config.Config, log *zap.Logger) *dexscreener.Client {
	return dexscreener.NewClient(
		dexscreener.WithBaseURL(cfg.DexScreener.BaseURL),
		dexscreener.WithTimeout(cfg.DexScreener.Timeout),
		dexscreener.WithMaxRetries(cfg.DexScreener.MaxRetries),
		dexscreener.WithLogger(log.Named("dexscreener")),
	)
}

func newShyft(cfg *config.Config, log *zap.Logger) *shyft.Client {
	return shyft.NewClient(cfg.Shyft.APIKey,
		shyft.WithBaseURL(cfg.Shyft.BaseURL),
		shyft.WithNetwork(cfg.Shyft.Network),
		shyft.WithTimeout(cfg.Shyft.Timeout),
		shyft.WithMaxRetries(cfg.Shyft.MaxRetries),
		shyft.WithLogger(log.Named("shyft")),
	)
}

func newSolPriceCache(cfg *config.Config, dex *dexscreener.Client, log *zap.Logger) *oracle.SolPriceCache {
	pc := oracle.DefaultSolPriceConfig()
	pc.StreamURL = cfg.SolPrice.StreamURL
	if !cfg.SolPrice.StreamEnabled {
		pc.StreamURL = ""
	}
	pc.RefreshSchedule = cfg.SolPrice.RefreshSchedule
	pc.StaleAfter = cfg.SolPrice.StaleAfter
	pc.Timeout = cfg.Oracle.Timeout
	return oracle.NewSolPriceCache(pc, dex, log)
}

func newPriceRouter(cfg *config.Config, sol *oracle.SolPriceCache, dex *dexscreener.Client) oracle.PriceOracle {
	return oracle.NewRouter(sol, dex, cfg.Oracle.Timeout)
}

func newSupplyOracle(cfg *config.Config, rpc *solana.HTTPClient, log *zap.Logger) *oracle.SupplyOracle {
	return oracle.NewSupplyOracle(rpc, cfg.Oracle.Timeout, log)
}

func newEngine(cfg *config.Config, st *stores, prices oracle.PriceOracle, supply *oracle.SupplyOracle, log *zap.Logger) *analytics.Engine {
	ac := analytics.DefaultConfig()
	ac.QueryTimeout = cfg.Cohort.QueryTimeout
	ac.PriceTimeout = cfg.Oracle.Timeout
	return analytics.NewEngine(st.txs, st.wallets, prices, supply, ac, log)
}

func newMarketFilter(cfg *config.Config, dex *dexscreener.Client, log *zap.Logger) *cohort.MarketFilter {
	return cohort.NewMarketFilter(dex, cohort.MarketFilterConfig{
		Enabled:      cfg.Filter.Enabled,
		MaxPairAge:   cfg.Filter.MaxPairAge,
		MinMarketCap: decimal.NewFromFloat(cfg.Filter.MinMarketCap),
		Timeout:      cfg.Oracle.Timeout,
	}, log)
}

// newTelegramSink returns nil when no bot token is configured.
func newTelegramSink(cfg *config.Config) *notify.TelegramSink {
	if cfg.Telegram.BotToken == "" {
		return nil
	}
	return notify.NewTelegramSink(cfg.Telegram.BaseURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.Timeout)
}

// newSink fans out to every configured sink. The log sink is always present.
func newSink(
	lc fx.Lifecycle,
	cfg *config.Config,
	telegram *notify.TelegramSink,
	archive storage.SignalArchive,
	log *zap.Logger,
) (notify.Sink, error) {
	sinks := []notify.Sink{notify.NewLogSink(log)}

	if telegram != nil {
		sinks = append(sinks, telegram)
	}

	if cfg.NATS.Enabled {
		conn, err := notify.ConnectNATS(notify.NATSConfig{
			URL:            cfg.NATS.URL,
			SubjectPrefix:  cfg.NATS.SubjectPrefix,
			ConnectTimeout: cfg.NATS.ConnectTimeout,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			MaxReconnects:  cfg.NATS.MaxReconnects,
		}, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return conn.Drain() },
		})
		sinks = append(sinks, notify.NewNATSSink(conn, cfg.NATS.SubjectPrefix))
	}

	if archive != nil {
		sinks = append(sinks, notify.NewArchiveSink(archive))
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	log.Info("notification sinks configured", zap.Strings("sinks", names))

	return notify.NewMulti(cfg.Telegram.Timeout, log, sinks...), nil
}

// newFollowUp posts the social digest under Telegram alerts. It returns nil
// unless twitter is enabled and the Telegram sink is configured.
func newFollowUp(cfg *config.Config, telegram *notify.TelegramSink, log *zap.Logger) cohort.FollowUp {
	if !cfg.Twitter.Enabled {
		return nil
	}
	if telegram == nil {
		log.Warn("twitter.enabled is set without telegram.bot_token; social digest disabled")
		return nil
	}
	client := twitter.NewClient(cfg.Twitter.APIKey,
		twitter.WithBaseURL(cfg.Twitter.BaseURL),
		twitter.WithHost(cfg.Twitter.Host),
		twitter.WithTimeout(cfg.Twitter.Timeout),
		twitter.WithMaxRetries(cfg.Twitter.MaxRetries),
		twitter.WithLogger(log.Named("twitter")),
	)
	return notify.NewSocialDigest(client, telegram, cfg.Twitter.MaxTweets, log)
}

func newPipeline(cfg *config.Config, st *stores, sh *shyft.Client, log *zap.Logger) *ingestion.Pipeline {
	opts := ingestion.PipelineOptions{
		Transactions: st.txs,
		RawRecords:   st.raw,
		StoreTimeout: cfg.Ingest.StoreTimeout,
		Logger:       log,
	}
	if cfg.Shyft.APIKey != "" {
		opts.Pull = normalizer.NewPullNormalizer(sh)
	} else {
		log.Warn("shyft.api_key not set; signature-only deliveries will be skipped")
	}
	return ingestion.NewPipeline(opts)
}

func newDetector(
	cfg *config.Config,
	st *stores,
	coalescer coalesce.Coalescer,
	filter *cohort.MarketFilter,
	engine *analytics.Engine,
	sink notify.Sink,
	followUp cohort.FollowUp,
	log *zap.Logger,
) *cohort.Detector {
	reconnect := retry.DefaultConfig()
	reconnect.InitialDelay = cfg.Cohort.ReconnectMin
	reconnect.MaxDelay = cfg.Cohort.ReconnectMax

	return cohort.NewDetector(cohort.Deps{
		Feed:      st.feed,
		Txs:       st.txs,
		Coalescer: coalescer,
		Filter:    filter,
		Analyzer:  engine,
		Sink:      sink,
		FollowUp:  followUp,
	}, cohort.Config{
		Lookback:        cfg.Cohort.Lookback,
		DebounceWindow:  cfg.Cohort.DebounceWindow,
		Workers:         cfg.Cohort.Workers,
		QueueSize:       cfg.Cohort.QueueSize,
		QueryTimeout:    cfg.Cohort.QueryTimeout,
		AnalysisTimeout: cfg.Cohort.AnalysisTimeout,
		Reconnect:       reconnect,
	}, log)
}

func newHTTPServer(cfg *config.Config, st *stores, pipeline *ingestion.Pipeline, log *zap.Logger) *httpapi.Server {
	return httpapi.NewServer(httpapi.Options{
		Addr:            cfg.HTTP.Addr,
		AuthHeader:      cfg.Helius.AuthHeader,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		MaxBodyBytes:    cfg.HTTP.MaxBodyBytes,
		Health:          st.health,
	}, pipeline, log)
}

// checkRPC logs the current slot at start-up.
func checkRPC(lc fx.Lifecycle, cfg *config.Config, rpc *solana.HTTPClient, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			slot, err := rpc.GetSlot(ctx)
			if err != nil {
				log.Warn("solana rpc unreachable; supply lookups will use the fallback",
					zap.String("endpoint", cfg.Solana.RPCEndpoint), zap.Error(err))
				return nil
			}
			log.Info("solana rpc reachable", zap.Int64("slot", slot))
			return nil
		},
	})
}

func startSolPrice(lc fx.Lifecycle, cache *oracle.SolPriceCache) {
	lc.Append(fx.Hook{
		OnStart: cache.Start,
		OnStop: func(context.Context) error {
			cache.Stop()
			return nil
		},
	})
}

func startDetector(lc fx.Lifecycle, d *cohort.Detector, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Start()
			log.Info("cohort detector started")
			return nil
		},
		OnStop: func(context.Context) error {
			d.Stop()
			log.Info("cohort detector stopped")
			return nil
		},
	})
}

func startHTTPServer(lc fx.Lifecycle, s *httpapi.Server) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return s.Start() },
		OnStop:  s.Shutdown,
	})
}
