package notify

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"solana-wallet-monitor/internal/analytics"
	"solana-wallet-monitor/internal/domain"
)

// TelegramMessageLimit is the Bot API cap on message text, in characters.
const TelegramMessageLimit = 4096

// FormatMessage renders s as Telegram HTML. now is unix seconds.
// Wallet lines that would push the text past TelegramMessageLimit are
// replaced by a count of the omitted wallets.
func FormatMessage(s *domain.CohortSignal, now int64) string {
	var head strings.Builder

	title := shortAddress(s.Token)
	if s.Info != nil && s.Info.Symbol != "" {
		title = "$" + s.Info.Symbol
	}
	fmt.Fprintf(&head, "<b>Multi-wallet buy: %s</b>", html.EscapeString(title))
	if s.Info != nil && s.Info.Name != "" {
		fmt.Fprintf(&head, " (%s)", html.EscapeString(s.Info.Name))
	}
	fmt.Fprintf(&head, "\n<code>%s</code>\n", html.EscapeString(s.Token))

	if info := s.Info; info != nil {
		fmt.Fprintf(&head, "\nPrice: $%s\nMCap: $%s\nLiquidity: $%s\n",
			info.PriceUSD.String(),
			info.MarketCap.StringFixed(0),
			info.LiquidityUSD.StringFixed(0))
		if age := info.PairAgeSeconds(now); age >= 0 {
			fmt.Fprintf(&head, "Pair age: %s\n", formatAge(age))
		}
		if info.URL != "" {
			fmt.Fprintf(&head, "<a href=\"%s\">DexScreener</a>\n", html.EscapeString(info.URL))
		}
	}

	if s.Analysis == nil {
		return strings.TrimRight(head.String(), "\n")
	}

	var lines []string
	for _, p := range analytics.FormatAnalysis(s.Analysis, now) {
		lines = append(lines, fmt.Sprintf("• <b>%s</b> <code>%s</code>\n  cost $%s @ %s, mcap $%s, holds %s, last buy %s\n",
			html.EscapeString(p.WalletName),
			html.EscapeString(shortAddress(p.Account)),
			p.TotalBuyCost,
			p.AverageBuyPrice,
			p.AverageMarketCap,
			p.HoldsPercentage,
			p.BuyTime))
	}

	var foot strings.Builder
	if s.Analysis.SupplyIsFallback {
		fmt.Fprintf(&foot, "\n<i>Supply unavailable; market caps assume %s tokens.</i>\n",
			s.Analysis.TotalSupply.StringFixed(0))
	}
	if hasPriceGaps(s.Analysis) {
		foot.WriteString("<i>Some buys could not be priced and count as $0.</i>\n")
	}

	var b strings.Builder
	b.WriteString(head.String())
	if len(lines) > 0 {
		b.WriteString("\n<b>Wallets</b>\n")
	}
	// room for the footer and the longest possible "more" line
	budget := TelegramMessageLimit - runeLen(b.String()) - runeLen(foot.String()) -
		runeLen(moreWallets(len(lines)))
	for i, line := range lines {
		if runeLen(line) > budget {
			b.WriteString(moreWallets(len(lines) - i))
			break
		}
		b.WriteString(line)
		budget -= runeLen(line)
	}
	b.WriteString(foot.String())

	return strings.TrimRight(b.String(), "\n")
}

func moreWallets(n int) string {
	return fmt.Sprintf("<i>…and %d more wallets</i>\n", n)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func hasPriceGaps(a *domain.TokenAnalysis) bool {
	for _, p := range a.Positions {
		if p.PriceDegraded {
			return true
		}
	}
	return false
}

func shortAddress(a string) string {
	if len(a) <= 10 {
		return a
	}
	return a[:4] + "…" + a[len(a)-4:]
}

func formatAge(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours())/24)
	}
}
