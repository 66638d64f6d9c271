// Package oracle resolves USD prices and token supplies for position analytics.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"solana-wallet-monitor/internal/dexscreener"
	"solana-wallet-monitor/internal/domain"
)

// ErrNoPrice is returned when no price has been observed for an asset.
var ErrNoPrice = errors.New("oracle: no price available")

// PriceOracle returns the USD price of one unit of an asset.
type PriceOracle interface {
	GetPrice(ctx context.Context, asset string) (decimal.Decimal, error)
}

// SolPriceSource returns the latest SOL/USD price without blocking.
type SolPriceSource interface {
	Current() (decimal.Decimal, error)
}

// Router dispatches price lookups by asset: SOL from the cache, USDC at par,
// everything else from DexScreener.
type Router struct {
	sol     SolPriceSource
	tokens  dexscreener.TokenInfoSource
	timeout time.Duration
}

var _ PriceOracle = (*Router)(nil)

// NewRouter creates a Router. timeout bounds each DexScreener lookup.
func NewRouter(sol SolPriceSource, tokens dexscreener.TokenInfoSource, timeout time.Duration) *Router {
	return &Router{sol: sol, tokens: tokens, timeout: timeout}
}

// GetPrice returns the USD price of asset.
// A token listed without priceUsd is priced at zero with no error.
func (r *Router) GetPrice(ctx context.Context, asset string) (decimal.Decimal, error) {
	switch asset {
	case domain.NativeMint:
		return r.sol.Current()
	case domain.USDCMint:
		return decimal.NewFromInt(1), nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	info, err := r.tokens.GetTokenInfo(ctx, asset)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price %s: %w", asset, err)
	}
	return info.PriceUSD, nil
}
