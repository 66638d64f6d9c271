package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"
)

var csvHeader = []string{
	"account", "wallet_name", "total_buy_cost", "average_buy_price",
	"average_market_cap", "holds_percentage", "last_buy", "price_degraded",
}

// RenderCSV renders the positions of r as CSV string.
func RenderCSV(r *Report) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, p := range r.Positions {
		row := []string{
			p.Account,
			p.WalletName,
			p.TotalBuyCost,
			p.AverageBuyPrice,
			p.AverageMarketCap,
			p.HoldsPercentage,
			p.BuyTime,
			strconv.FormatBool(p.PriceDegraded),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}
