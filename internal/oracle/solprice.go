package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-wallet-monitor/internal/dexscreener"
	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/observability"
	"solana-wallet-monitor/internal/retry"
)

// Price origins.
const (
	OriginStream  = "stream"
	OriginRefresh = "refresh"
)

// SolPriceConfig configures SolPriceCache.
type SolPriceConfig struct {
	// StreamURL is a Binance-compatible trade stream. Empty disables streaming.
	StreamURL string
	// RefreshSchedule is a six-field cron expression for the staleness check.
	RefreshSchedule string
	// StaleAfter is how old a price may be before the refresh job fetches one.
	StaleAfter time.Duration
	// Timeout bounds each refresh request.
	Timeout time.Duration
	// ReadTimeout is the longest the stream may stay silent before reconnecting.
	ReadTimeout time.Duration
	// Reconnect is the stream reconnect policy.
	Reconnect retry.Config
}

// DefaultSolPriceConfig returns the defaults used by the monitor.
func DefaultSolPriceConfig() SolPriceConfig {
	return SolPriceConfig{
		StreamURL:       "wss://stream.binance.com:9443/ws/solusdt@trade",
		RefreshSchedule: "*/30 * * * * *",
		StaleAfter:      time.Minute,
		Timeout:         5 * time.Second,
		ReadTimeout:     60 * time.Second,
		Reconnect:       retry.DefaultConfig(),
	}
}

// SolPriceCache keeps the latest SOL/USD price.
//
// A websocket trade stream updates it continuously; a cron job refreshes it
// from DexScreener whenever the stream has been quiet for StaleAfter.
type SolPriceCache struct {
	cfg       SolPriceConfig
	refresher dexscreener.TokenInfoSource
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.RWMutex
	price     decimal.Decimal
	updatedAt time.Time

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ SolPriceSource = (*SolPriceCache)(nil)

// NewSolPriceCache creates a cache. refresher may be nil to disable refreshes.
func NewSolPriceCache(cfg SolPriceConfig, refresher dexscreener.TokenInfoSource, logger *zap.Logger) *SolPriceCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SolPriceCache{
		cfg:       cfg,
		refresher: refresher,
		logger:    logger.Named("solprice"),
		now:       time.Now,
	}
}

// Start performs an initial refresh, schedules the staleness job and opens
// the stream. The initial refresh failing is logged, not returned.
func (c *SolPriceCache) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	if c.refresher != nil {
		if err := c.Refresh(ctx); err != nil {
			c.logger.Warn("initial sol price refresh failed", zap.Error(err))
		}

		if c.cfg.RefreshSchedule != "" {
			c.cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))
			_, err := c.cron.AddFunc(c.cfg.RefreshSchedule, func() {
				if !c.Stale() {
					return
				}
				if err := c.Refresh(runCtx); err != nil {
					c.logger.Warn("sol price refresh failed", zap.Error(err))
				}
			})
			if err != nil {
				cancel()
				return fmt.Errorf("schedule sol price refresh %q: %w", c.cfg.RefreshSchedule, err)
			}
			c.cron.Start()
			c.logger.Info("sol price refresh scheduled", zap.String("schedule", c.cfg.RefreshSchedule))
		}
	}

	if c.cfg.StreamURL != "" {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.runStream(runCtx)
		}()
	}
	return nil
}

// Stop stops the refresh job and closes the stream.
func (c *SolPriceCache) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
	c.wg.Wait()
}

// Current returns the latest observed price.
// It fails only if no price was ever observed; stale prices are returned.
func (c *SolPriceCache) Current() (decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.updatedAt.IsZero() {
		return decimal.Zero, ErrNoPrice
	}
	return c.price, nil
}

// Set records a price observation.
func (c *SolPriceCache) Set(price decimal.Decimal, at time.Time, origin string) {
	if !price.IsPositive() {
		return
	}
	c.mu.Lock()
	if at.Before(c.updatedAt) {
		c.mu.Unlock()
		return
	}
	c.price = price
	c.updatedAt = at
	c.mu.Unlock()

	observability.RecordSolPrice(origin, price.InexactFloat64())
}

// Stale reports whether the price is missing or older than StaleAfter.
func (c *SolPriceCache) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.updatedAt.IsZero() {
		return true
	}
	return c.now().Sub(c.updatedAt) > c.cfg.StaleAfter
}

// Refresh fetches the SOL price from DexScreener.
func (c *SolPriceCache) Refresh(ctx context.Context) error {
	if c.refresher == nil {
		return fmt.Errorf("no refresher configured")
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	info, err := c.refresher.GetTokenInfo(ctx, domain.NativeMint)
	if err != nil {
		return fmt.Errorf("refresh sol price: %w", err)
	}
	if !info.PriceUSD.IsPositive() {
		return fmt.Errorf("refresh sol price: no priceUsd")
	}
	c.Set(info.PriceUSD, c.now(), OriginRefresh)
	return nil
}

// tradeMessage is a Binance trade stream event.
type tradeMessage struct {
	Event     string          `json:"e"`
	Symbol    string          `json:"s"`
	Price     decimal.Decimal `json:"p"`
	TradeTime int64           `json:"T"` // milliseconds
}

// runStream keeps the stream connected until ctx is done. A session that
// delivered at least one price resets the reconnect backoff.
func (c *SolPriceCache) runStream(ctx context.Context) {
	for ctx.Err() == nil {
		err := retry.WithBackoff(ctx, c.cfg.Reconnect, c.logger, "sol price stream", func() error {
			received, err := c.consume(ctx)
			if ctx.Err() != nil {
				return retry.Permanent(ctx.Err())
			}
			observability.RecordSolStreamReconnect()
			if received > 0 {
				c.logger.Info("sol price stream disconnected", zap.Int("messages", received), zap.Error(err))
				return nil
			}
			return err
		})
		if err != nil && ctx.Err() == nil {
			c.logger.Error("sol price stream gave up", zap.Error(err))
			return
		}
	}
}

// consume reads one websocket session and returns how many prices it applied.
func (c *SolPriceCache) consume(ctx context.Context) (int, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.StreamURL, nil)
	if err != nil {
		return 0, fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.logger.Info("sol price stream connected", zap.String("url", c.cfg.StreamURL))

	received := 0
	for {
		if c.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return received, fmt.Errorf("websocket read: %w", err)
		}

		var msg tradeMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.logger.Debug("skip undecodable stream message", zap.Error(err))
			continue
		}
		if msg.Event != "trade" {
			continue
		}

		at := c.now()
		if msg.TradeTime > 0 {
			at = time.UnixMilli(msg.TradeTime)
		}
		c.Set(msg.Price, at, OriginStream)
		received++
	}
}
