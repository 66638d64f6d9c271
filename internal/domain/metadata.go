package domain

import "github.com/shopspring/decimal"

// TokenInfo is market data for a token as reported by DexScreener.
type TokenInfo struct {
	Address       string          // token mint
	Name          string          // token name
	Symbol        string          // ticker
	PriceUSD      decimal.Decimal // last price in USD
	MarketCap     decimal.Decimal // market cap in USD (zero when unknown)
	FDV           decimal.Decimal // fully diluted valuation in USD
	LiquidityUSD  decimal.Decimal // pool liquidity in USD
	PairAddress   string          // most liquid pair
	DexID         string          // dex hosting the pair
	URL           string          // DexScreener page
	PairCreatedAt int64           // pair creation, unix seconds (0 when unknown)
	TwitterHandle string          // project account without "@", empty when not listed
}

// PairAgeSeconds returns the age of the pair at now (unix seconds).
// Returns -1 when the creation time is unknown.
func (t *TokenInfo) PairAgeSeconds(now int64) int64 {
	if t.PairCreatedAt <= 0 {
		return -1
	}
	return now - t.PairCreatedAt
}
