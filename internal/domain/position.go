package domain

import "github.com/shopspring/decimal"

// PositionSnapshot is the derived per-wallet position in one token.
// Not persisted; recomputed per analysis.
type PositionSnapshot struct {
	Account           string
	WalletName        string
	BuyCount          int
	SellCount         int
	TotalBuyCost      decimal.Decimal // USD spent on buys
	TotalBuyAmount    decimal.Decimal // tokens acquired
	TotalSellAmount   decimal.Decimal // tokens disposed
	Remaining         decimal.Decimal // max(0, bought - sold)
	AverageBuyPrice   decimal.Decimal // cost / bought
	AverageMarketCap  decimal.Decimal // average price * total supply
	HoldsPercentage   decimal.Decimal // remaining / bought * 100
	MostRecentBuyTime int64           // unix seconds
	PriceDegraded     bool            // at least one buy priced at zero after a lookup failure
}

// TokenAnalysis is the ephemeral result of analyzing one token.
type TokenAnalysis struct {
	Token            string
	TotalSupply      decimal.Decimal
	SupplyIsFallback bool // supply lookup failed; fallback constant used
	Positions        map[string]*PositionSnapshot
	AnalyzedAt       int64 // unix seconds
}

// Degraded reports whether any figure in the analysis was computed from a
// fallback value.
func (a *TokenAnalysis) Degraded() bool {
	if a.SupplyIsFallback {
		return true
	}
	for _, p := range a.Positions {
		if p.PriceDegraded {
			return true
		}
	}
	return false
}
