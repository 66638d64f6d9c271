package analytics

import (
	"github.com/shopspring/decimal"

	"solana-wallet-monitor/internal/domain"
)

// DivisionPrecision is the number of fractional digits kept by divisions.
const DivisionPrecision = 18

var hundred = decimal.NewFromInt(100)

// Quote is the resolved USD price of a spent asset.
// Degraded marks a price of zero substituted after a failed lookup.
type Quote struct {
	Price    decimal.Decimal
	Degraded bool
}

// SpentAssets returns the distinct assets spent on buys of token, in first
// appearance order.
func SpentAssets(token string, txs []*domain.Transaction) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tx := range txs {
		if !tx.IsBuyOf(token) {
			continue
		}
		if _, ok := seen[tx.TokenInAddress]; ok {
			continue
		}
		seen[tx.TokenInAddress] = struct{}{}
		out = append(out, tx.TokenInAddress)
	}
	return out
}

// ComputePositions derives per-account positions in token.
//
// Accounts with no buy of token are excluded. Assets missing from quotes are
// priced at zero and mark the position degraded. Amounts that do not parse
// count as zero.
func ComputePositions(token string, txs []*domain.Transaction, quotes map[string]Quote, supply decimal.Decimal) map[string]*domain.PositionSnapshot {
	positions := make(map[string]*domain.PositionSnapshot)

	// buys first so sell-only accounts never get an entry
	for _, tx := range txs {
		if !tx.IsBuyOf(token) {
			continue
		}
		p, ok := positions[tx.Account]
		if !ok {
			p = &domain.PositionSnapshot{Account: tx.Account, WalletName: domain.UnknownWalletName}
			positions[tx.Account] = p
		}

		q, ok := quotes[tx.TokenInAddress]
		if !ok || q.Degraded {
			p.PriceDegraded = true
		}

		p.BuyCount++
		p.TotalBuyCost = p.TotalBuyCost.Add(q.Price.Mul(parseAmount(tx.TokenInAmount)))
		p.TotalBuyAmount = p.TotalBuyAmount.Add(parseAmount(tx.TokenOutAmount))
		if tx.Timestamp > p.MostRecentBuyTime {
			p.MostRecentBuyTime = tx.Timestamp
		}
	}

	for _, tx := range txs {
		if !tx.IsSellOf(token) {
			continue
		}
		p, ok := positions[tx.Account]
		if !ok {
			continue
		}
		p.SellCount++
		p.TotalSellAmount = p.TotalSellAmount.Add(parseAmount(tx.TokenInAmount))
	}

	for _, p := range positions {
		p.Remaining = decimal.Max(decimal.Zero, p.TotalBuyAmount.Sub(p.TotalSellAmount))
		if p.TotalBuyAmount.IsPositive() {
			p.HoldsPercentage = p.Remaining.DivRound(p.TotalBuyAmount, DivisionPrecision).Mul(hundred)
			p.AverageBuyPrice = p.TotalBuyCost.DivRound(p.TotalBuyAmount, DivisionPrecision)
		}
		p.AverageMarketCap = p.AverageBuyPrice.Mul(supply)
	}

	return positions
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
