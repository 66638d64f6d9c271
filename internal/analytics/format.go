package analytics

import (
	"fmt"
	"sort"

	"solana-wallet-monitor/internal/domain"
)

// FormattedPosition is a PositionSnapshot rendered for display.
type FormattedPosition struct {
	Account          string
	WalletName       string
	TotalBuyCost     string // USD, 0 dp
	AverageBuyPrice  string // USD, 6 dp
	AverageMarketCap string // USD, 0 dp
	BuyTime          string // "5m ago"
	HoldsPercentage  string // "42.50%"
	PriceDegraded    bool
}

// FormatSnapshot renders p relative to now (unix seconds).
func FormatSnapshot(p *domain.PositionSnapshot, now int64) FormattedPosition {
	return FormattedPosition{
		Account:          p.Account,
		WalletName:       p.WalletName,
		TotalBuyCost:     p.TotalBuyCost.StringFixed(0),
		AverageBuyPrice:  p.AverageBuyPrice.StringFixed(6),
		AverageMarketCap: p.AverageMarketCap.StringFixed(0),
		BuyTime:          FormatTimeAgo(p.MostRecentBuyTime, now),
		HoldsPercentage:  p.HoldsPercentage.StringFixed(2) + "%",
		PriceDegraded:    p.PriceDegraded,
	}
}

// FormatAnalysis renders every position, largest buy cost first.
func FormatAnalysis(a *domain.TokenAnalysis, now int64) []FormattedPosition {
	if a == nil {
		return nil
	}
	positions := make([]*domain.PositionSnapshot, 0, len(a.Positions))
	for _, p := range a.Positions {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool {
		if c := positions[i].TotalBuyCost.Cmp(positions[j].TotalBuyCost); c != 0 {
			return c > 0
		}
		return positions[i].Account < positions[j].Account
	})

	out := make([]FormattedPosition, len(positions))
	for i, p := range positions {
		out[i] = FormatSnapshot(p, now)
	}
	return out
}

// FormatTimeAgo renders the age of ts as "Xs ago", "Xm ago", "Xh ago" or
// "Xd ago", truncating to the largest whole unit. Future times render as "0s ago".
func FormatTimeAgo(ts, now int64) string {
	const (
		minute = 60
		hour   = 60 * minute
		day    = 24 * hour
	)

	diff := now - ts
	if diff < 0 {
		diff = 0
	}
	switch {
	case diff < minute:
		return fmt.Sprintf("%ds ago", diff)
	case diff < hour:
		return fmt.Sprintf("%dm ago", diff/minute)
	case diff < day:
		return fmt.Sprintf("%dh ago", diff/hour)
	default:
		return fmt.Sprintf("%dd ago", diff/day)
	}
}
