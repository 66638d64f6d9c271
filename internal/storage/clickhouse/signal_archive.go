package clickhouse

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/idhash"
	"solana-wallet-monitor/internal/storage"
)

// SignalArchive implements storage.SignalArchive using ClickHouse.
// Signals go to cohort_signals, their positions to cohort_positions.
type SignalArchive struct {
	conn *Conn
}

// NewSignalArchive creates a new SignalArchive.
func NewSignalArchive(conn *Conn) *SignalArchive {
	return &SignalArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.SignalArchive = (*SignalArchive)(nil)

// Append stores the signal row and one row per position.
// ClickHouse has no cross-table transactions; a failed position batch leaves
// the signal row in place.
func (a *SignalArchive) Append(ctx context.Context, s *domain.CohortSignal) error {
	if s == nil || s.Token == "" {
		return storage.ErrInvalidInput
	}

	detectedAt := time.Unix(s.DetectedAt, 0).UTC()

	var (
		symbol    string
		priceUSD  = decimal.Zero
		marketCap = decimal.Zero
	)
	if s.Info != nil {
		symbol = s.Info.Symbol
		priceUSD = s.Info.PriceUSD
		marketCap = s.Info.MarketCap
	}

	var (
		supply         = decimal.Zero
		supplyFallback uint8
		walletCount    uint32
	)
	if s.Analysis != nil {
		supply = s.Analysis.TotalSupply
		if s.Analysis.SupplyIsFallback {
			supplyFallback = 1
		}
		walletCount = uint32(len(s.Analysis.Positions))
	}

	err := a.conn.Exec(ctx, `
		INSERT INTO cohort_signals (
			signal_id, token, trigger_signature, trigger_account, trigger_timestamp, detected_at,
			token_symbol, price_usd, market_cap, total_supply, supply_fallback, wallet_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		idhash.ComputeSignalID(s.Token, s.TriggerSignature), s.Token, s.TriggerSignature, s.TriggerAccount, s.TriggerTimestamp, detectedAt,
		symbol, priceUSD, marketCap, supply, supplyFallback, walletCount,
	)
	if err != nil {
		return fmt.Errorf("insert cohort signal: %w", err)
	}

	if s.Analysis == nil || len(s.Analysis.Positions) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, "INSERT INTO cohort_positions")
	if err != nil {
		return fmt.Errorf("prepare positions batch: %w", err)
	}

	accounts := make([]string, 0, len(s.Analysis.Positions))
	for account := range s.Analysis.Positions {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	for _, account := range accounts {
		p := s.Analysis.Positions[account]
		var degraded uint8
		if p.PriceDegraded {
			degraded = 1
		}
		if err := batch.Append(
			s.Token,
			s.TriggerSignature,
			p.Account,
			p.WalletName,
			uint32(p.BuyCount),
			uint32(p.SellCount),
			p.TotalBuyCost,
			p.TotalBuyAmount,
			p.TotalSellAmount,
			p.Remaining,
			p.AverageBuyPrice,
			p.AverageMarketCap.Round(2),
			p.HoldsPercentage.Round(2),
			p.MostRecentBuyTime,
			degraded,
			detectedAt,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append position %s: %w", account, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send positions batch: %w", err)
	}
	return nil
}

// CountByToken returns how many signals were archived for token.
func (a *SignalArchive) CountByToken(ctx context.Context, token string) (uint64, error) {
	var count uint64
	row := a.conn.QueryRow(ctx, `SELECT count() FROM cohort_signals WHERE token = ?`, token)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count cohort signals: %w", err)
	}
	return count, nil
}

// PositionAccounts returns the archived accounts for one signal, ordered.
func (a *SignalArchive) PositionAccounts(ctx context.Context, token, triggerSignature string) ([]string, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT account FROM cohort_positions
		WHERE token = ? AND trigger_signature = ?
		ORDER BY account
	`, token, triggerSignature)
	if err != nil {
		return nil, fmt.Errorf("query cohort positions: %w", err)
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var account string
		if err := rows.Scan(&account); err != nil {
			return nil, fmt.Errorf("scan cohort position: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}
