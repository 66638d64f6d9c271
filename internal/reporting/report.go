package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"solana-wallet-monitor/internal/analytics"
	"solana-wallet-monitor/internal/domain"
)

// Report is a rendered snapshot of every tracked wallet's position in one token.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Token       string

	// Market data, nil when DexScreener had nothing for the token
	Info *domain.TokenInfo

	// Supply used for market cap figures
	TotalSupply      string
	SupplyIsFallback bool

	// Positions sorted by buy cost, largest first
	Positions []analytics.FormattedPosition

	// Summary
	Summary Summary
}

// Summary aggregates the positions.
type Summary struct {
	Wallets         int
	StillHolding    int // wallets with a non-zero remaining balance
	TotalBuyCost    string
	DegradedPricing int // wallets with at least one unpriced buy
}

// Build assembles a Report from an analysis. info may be nil.
func Build(a *domain.TokenAnalysis, info *domain.TokenInfo, now time.Time) *Report {
	r := &Report{
		GeneratedAt: now.UTC(),
		Info:        info,
	}
	if a == nil {
		return r
	}

	r.Token = a.Token
	r.TotalSupply = a.TotalSupply.String()
	r.SupplyIsFallback = a.SupplyIsFallback
	r.Positions = analytics.FormatAnalysis(a, now.Unix())

	cost := decimal.Zero
	for _, p := range a.Positions {
		r.Summary.Wallets++
		if p.Remaining.IsPositive() {
			r.Summary.StillHolding++
		}
		if p.PriceDegraded {
			r.Summary.DegradedPricing++
		}
		cost = cost.Add(p.TotalBuyCost)
	}
	r.Summary.TotalBuyCost = cost.StringFixed(0)
	return r
}
