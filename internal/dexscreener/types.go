package dexscreener

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"solana-wallet-monitor/internal/domain"
)

// tokensResponse is the body of GET /latest/dex/tokens/{address}.
type tokensResponse struct {
	Pairs []pair `json:"pairs"`
}

type pair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	URL         string `json:"url"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD  decimal.NullDecimal `json:"priceUsd"`
	Liquidity struct {
		USD decimal.Decimal `json:"usd"`
	} `json:"liquidity"`
	FDV           decimal.NullDecimal `json:"fdv"`
	MarketCap     decimal.NullDecimal `json:"marketCap"`
	PairCreatedAt int64               `json:"pairCreatedAt"` // unix milliseconds
	Info          *struct {
		Socials []struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		} `json:"socials"`
	} `json:"info"`
}

// twitterHandle returns the screen name of the first twitter social link.
func (p *pair) twitterHandle() string {
	if p.Info == nil {
		return ""
	}
	for _, s := range p.Info.Socials {
		if s.Type != "twitter" {
			continue
		}
		return handleFromURL(s.URL)
	}
	return ""
}

// handleFromURL accepts https://x.com/name, https://twitter.com/name/... and @name.
func handleFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "@") {
		return strings.TrimPrefix(raw, "@")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.TrimPrefix(strings.ToLower(u.Host), "www.") {
	case "x.com", "twitter.com":
	default:
		return ""
	}
	name, _, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	if name == "" || name == "i" || name == "search" {
		return ""
	}
	return name
}

func (p *pair) toTokenInfo() *domain.TokenInfo {
	info := &domain.TokenInfo{
		Address:      p.BaseToken.Address,
		Name:         p.BaseToken.Name,
		Symbol:       p.BaseToken.Symbol,
		PriceUSD:     p.PriceUSD.Decimal,
		FDV:          p.FDV.Decimal,
		LiquidityUSD: p.Liquidity.USD,
		PairAddress:  p.PairAddress,
		DexID:        p.DexID,
		URL:          p.URL,
	}
	if p.MarketCap.Valid {
		info.MarketCap = p.MarketCap.Decimal
	} else {
		info.MarketCap = p.FDV.Decimal
	}
	if p.PairCreatedAt > 0 {
		info.PairCreatedAt = p.PairCreatedAt / 1000
	}
	info.TwitterHandle = p.twitterHandle()
	return info
}
