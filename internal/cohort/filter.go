package cohort

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-wallet-monitor/internal/dexscreener"
	"solana-wallet-monitor/internal/domain"
)

// Filter rejection reasons.
const (
	RejectLookupFailed   = "lookup_failed"
	RejectPairAgeUnknown = "pair_age_unknown"
	RejectPairTooOld     = "pair_too_old"
	RejectMarketCapLow   = "market_cap_low"
)

// TokenFilter decides whether a triggered token is worth analyzing.
// It returns the market data it looked up, which may be nil.
type TokenFilter interface {
	Check(ctx context.Context, token string) (info *domain.TokenInfo, pass bool, reason string)
}

// MarketFilterConfig configures MarketFilter.
type MarketFilterConfig struct {
	// Enabled applies the thresholds. When false every token passes and
	// market data is still fetched for the notification.
	Enabled      bool
	MaxPairAge   time.Duration
	MinMarketCap decimal.Decimal
	Timeout      time.Duration
}

// MarketFilter keeps tokens whose most liquid pair is young and whose market
// cap is above a floor.
type MarketFilter struct {
	source dexscreener.TokenInfoSource
	cfg    MarketFilterConfig
	logger *zap.Logger
	now    func() time.Time
}

var _ TokenFilter = (*MarketFilter)(nil)

// NewMarketFilter creates a MarketFilter.
func NewMarketFilter(source dexscreener.TokenInfoSource, cfg MarketFilterConfig, logger *zap.Logger) *MarketFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketFilter{source: source, cfg: cfg, logger: logger.Named("filter"), now: time.Now}
}

// Check implements TokenFilter.
func (f *MarketFilter) Check(ctx context.Context, token string) (*domain.TokenInfo, bool, string) {
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	info, err := f.source.GetTokenInfo(ctx, token)
	if err != nil {
		f.logger.Warn("token info lookup failed", zap.String("token", token), zap.Error(err))
		if !f.cfg.Enabled {
			return nil, true, ""
		}
		return nil, false, RejectLookupFailed
	}
	if !f.cfg.Enabled {
		return info, true, ""
	}

	age := info.PairAgeSeconds(f.now().Unix())
	switch {
	case age < 0:
		return info, false, RejectPairAgeUnknown
	case time.Duration(age)*time.Second > f.cfg.MaxPairAge:
		return info, false, RejectPairTooOld
	case info.MarketCap.LessThan(f.cfg.MinMarketCap):
		return info, false, RejectMarketCapLow
	}
	return info, true, ""
}
