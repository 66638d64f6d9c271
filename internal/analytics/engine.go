// Package analytics computes per-wallet positions in a token from stored swaps.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/observability"
	"solana-wallet-monitor/internal/oracle"
	"solana-wallet-monitor/internal/storage"
)

// SupplySource resolves the total supply of a mint.
type SupplySource interface {
	GetTotalSupply(ctx context.Context, mint string) oracle.Supply
}

// Config bounds the I/O of one analysis.
type Config struct {
	// QueryTimeout bounds each store query.
	QueryTimeout time.Duration
	// PriceTimeout bounds each price lookup.
	PriceTimeout time.Duration
	// PriceConcurrency caps concurrent price lookups per analysis.
	PriceConcurrency int
}

// DefaultConfig returns the defaults used by the monitor.
func DefaultConfig() Config {
	return Config{
		QueryTimeout:     10 * time.Second,
		PriceTimeout:     5 * time.Second,
		PriceConcurrency: 4,
	}
}

// Engine analyzes wallet positions in a token.
type Engine struct {
	txs     storage.TransactionStore
	wallets storage.WalletStore
	prices  oracle.PriceOracle
	supply  SupplySource
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(
	txs storage.TransactionStore,
	wallets storage.WalletStore,
	prices oracle.PriceOracle,
	supply SupplySource,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PriceConcurrency <= 0 {
		cfg.PriceConcurrency = 1
	}
	return &Engine{
		txs:     txs,
		wallets: wallets,
		prices:  prices,
		supply:  supply,
		cfg:     cfg,
		logger:  logger.Named("analytics"),
		now:     time.Now,
	}
}

// Analyze loads every swap of token and derives one position per buying
// account. Only the transaction query can fail the analysis; price, supply
// and name lookups degrade instead.
func (e *Engine) Analyze(ctx context.Context, token string) (*domain.TokenAnalysis, error) {
	start := time.Now()

	txs, err := e.loadTransactions(ctx, token)
	if err != nil {
		return nil, err
	}

	analysis := &domain.TokenAnalysis{
		Token:      token,
		Positions:  map[string]*domain.PositionSnapshot{},
		AnalyzedAt: e.now().Unix(),
	}

	assets := SpentAssets(token, txs)
	if len(assets) == 0 {
		e.logger.Debug("no buyers", zap.String("token", token), zap.Int("txs", len(txs)))
		return analysis, nil
	}

	quotes := e.resolvePrices(ctx, assets)

	supply := e.supply.GetTotalSupply(ctx, token)
	analysis.TotalSupply = supply.Value
	analysis.SupplyIsFallback = supply.Fallback

	analysis.Positions = ComputePositions(token, txs, quotes, supply.Value)
	e.resolveNames(ctx, analysis.Positions)

	observability.RecordAnalysis(time.Since(start).Seconds(), len(analysis.Positions))
	e.logger.Info("token analyzed",
		zap.String("token", token),
		zap.Int("txs", len(txs)),
		zap.Int("positions", len(analysis.Positions)),
		zap.Bool("degraded", analysis.Degraded()),
		zap.Duration("duration", time.Since(start)))

	return analysis, nil
}

func (e *Engine) loadTransactions(ctx context.Context, token string) ([]*domain.Transaction, error) {
	if e.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.QueryTimeout)
		defer cancel()
	}
	txs, err := e.txs.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load transactions for %s: %w", token, err)
	}
	return txs, nil
}

// resolvePrices looks up each asset once, concurrently, each with its own
// timeout. Failures resolve to a degraded zero quote.
func (e *Engine) resolvePrices(ctx context.Context, assets []string) map[string]Quote {
	memo := xsync.NewMap[string, Quote]()
	sem := make(chan struct{}, e.cfg.PriceConcurrency)
	var wg sync.WaitGroup

	for _, asset := range assets {
		wg.Add(1)
		sem <- struct{}{}
		go func(asset string) {
			defer wg.Done()
			defer func() { <-sem }()
			memo.Store(asset, e.lookupPrice(ctx, asset))
		}(asset)
	}
	wg.Wait()

	quotes := make(map[string]Quote, len(assets))
	memo.Range(func(asset string, q Quote) bool {
		quotes[asset] = q
		return true
	})
	return quotes
}

func (e *Engine) lookupPrice(ctx context.Context, asset string) Quote {
	if e.cfg.PriceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.PriceTimeout)
		defer cancel()
	}

	price, err := e.prices.GetPrice(ctx, asset)
	if err != nil {
		e.logger.Warn("price lookup failed, using zero", zap.String("asset", asset), zap.Error(err))
		observability.RecordOracleDegradation("price")
		return Quote{Degraded: true}
	}
	return Quote{Price: price}
}

// resolveNames fills WalletName from the registry. A registry failure leaves
// every name as domain.UnknownWalletName.
func (e *Engine) resolveNames(ctx context.Context, positions map[string]*domain.PositionSnapshot) {
	accounts := make([]string, 0, len(positions))
	for a := range positions {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)

	if e.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.QueryTimeout)
		defer cancel()
	}

	names, err := e.wallets.GetNames(ctx, accounts)
	if err != nil {
		e.logger.Warn("wallet name lookup failed", zap.Int("accounts", len(accounts)), zap.Error(err))
		observability.RecordOracleDegradation("wallet_names")
		return
	}
	for a, p := range positions {
		if name, ok := names[a]; ok && name != "" {
			p.WalletName = name
		}
	}
}
