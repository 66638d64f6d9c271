package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	title := r.Token
	if r.Info != nil && r.Info.Symbol != "" {
		title = fmt.Sprintf("$%s (%s)", r.Info.Symbol, r.Token)
	}
	sb.WriteString(fmt.Sprintf("# Wallet Positions: %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Market
	sb.WriteString("## Market\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	if r.Info != nil {
		sb.WriteString(fmt.Sprintf("| Price (USD) | %s |\n", r.Info.PriceUSD.String()))
		sb.WriteString(fmt.Sprintf("| Market Cap (USD) | %s |\n", r.Info.MarketCap.StringFixed(0)))
		sb.WriteString(fmt.Sprintf("| Liquidity (USD) | %s |\n", r.Info.LiquidityUSD.StringFixed(0)))
		if r.Info.URL != "" {
			sb.WriteString(fmt.Sprintf("| Chart | %s |\n", r.Info.URL))
		}
	}
	supply := r.TotalSupply
	if r.SupplyIsFallback {
		supply += " (fallback)"
	}
	sb.WriteString(fmt.Sprintf("| Total Supply | %s |\n", supply))
	sb.WriteString("\n")

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- Wallets: %d\n", r.Summary.Wallets))
	sb.WriteString(fmt.Sprintf("- Still holding: %d\n", r.Summary.StillHolding))
	sb.WriteString(fmt.Sprintf("- Total buy cost: $%s\n", r.Summary.TotalBuyCost))
	if r.Summary.DegradedPricing > 0 {
		sb.WriteString(fmt.Sprintf("- Wallets with unpriced buys: %d\n", r.Summary.DegradedPricing))
	}
	sb.WriteString("\n")

	// Positions
	sb.WriteString("## Positions\n\n")
	if len(r.Positions) == 0 {
		sb.WriteString("No tracked wallet has bought this token.\n")
		return sb.String()
	}
	sb.WriteString("| Wallet | Account | Cost (USD) | Avg Price | Avg MCap | Holds | Last Buy |\n")
	sb.WriteString("|--------|---------|------------|-----------|----------|-------|----------|\n")
	for _, p := range r.Positions {
		cost := p.TotalBuyCost
		if p.PriceDegraded {
			cost += "*"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
			p.WalletName, p.Account, cost, p.AverageBuyPrice, p.AverageMarketCap,
			p.HoldsPercentage, p.BuyTime))
	}
	if r.Summary.DegradedPricing > 0 {
		sb.WriteString("\n\\* at least one buy could not be priced and counts as zero cost.\n")
	}

	return sb.String()
}
