package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/storage"
)

func testSignal(token, sig string) *domain.CohortSignal {
	return &domain.CohortSignal{
		Token:            token,
		TriggerSignature: sig,
		TriggerAccount:   "walletB",
		TriggerTimestamp: 1_700_000_000,
		DetectedAt:       time.Now().Unix(),
		Info: &domain.TokenInfo{
			Address:   token,
			Symbol:    "MEME",
			PriceUSD:  decimal.RequireFromString("0.000123"),
			MarketCap: decimal.NewFromInt(250000),
		},
		Analysis: &domain.TokenAnalysis{
			Token:       token,
			TotalSupply: decimal.NewFromInt(1_000_000_000),
			Positions: map[string]*domain.PositionSnapshot{
				"walletA": {
					Account:         "walletA",
					WalletName:      "alpha",
					BuyCount:        1,
					TotalBuyCost:    decimal.NewFromInt(150),
					TotalBuyAmount:  decimal.NewFromInt(1000),
					TotalSellAmount: decimal.Zero,
					Remaining:       decimal.NewFromInt(1000),
					AverageBuyPrice: decimal.RequireFromString("0.15"),
					HoldsPercentage: decimal.NewFromInt(100),
				},
				"walletB": {
					Account:         "walletB",
					WalletName:      domain.UnknownWalletName,
					BuyCount:        1,
					TotalBuyCost:    decimal.NewFromInt(50),
					TotalBuyAmount:  decimal.NewFromInt(500),
					TotalSellAmount: decimal.Zero,
					Remaining:       decimal.NewFromInt(500),
					AverageBuyPrice: decimal.RequireFromString("0.1"),
					HoldsPercentage: decimal.NewFromInt(100),
					PriceDegraded:   true,
				},
			},
		},
	}
}

func TestSignalArchive_AppendAndCount(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	archive := NewSignalArchive(conn)

	require.NoError(t, archive.Append(ctx, testSignal("tokenX", "sig1")))
	require.NoError(t, archive.Append(ctx, testSignal("tokenX", "sig2")))

	count, err := archive.CountByToken(ctx, "tokenX")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	accounts, err := archive.PositionAccounts(ctx, "tokenX", "sig1")
	require.NoError(t, err)
	assert.Equal(t, []string{"walletA", "walletB"}, accounts)
}

func TestSignalArchive_AppendWithoutAnalysis(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	archive := NewSignalArchive(conn)

	s := testSignal("tokenY", "sig3")
	s.Info = nil
	s.Analysis = nil
	require.NoError(t, archive.Append(ctx, s))

	count, err := archive.CountByToken(ctx, "tokenY")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSignalArchive_InvalidInput(t *testing.T) {
	archive := NewSignalArchive(nil)
	err := archive.Append(context.Background(), &domain.CohortSignal{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
