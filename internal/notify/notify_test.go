package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/storage/memory"
)

const (
	testToken = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	testNow   = int64(1_700_000_000)
)

func testSignal() *domain.CohortSignal {
	return &domain.CohortSignal{
		Token:            testToken,
		TriggerSignature: "sigTrigger",
		TriggerAccount:   "WalletB",
		TriggerTimestamp: testNow - 30,
		DetectedAt:       testNow,
		Info: &domain.TokenInfo{
			Address:       testToken,
			Name:          "Bonk <Inu>",
			Symbol:        "BONK",
			PriceUSD:      decimal.RequireFromString("0.0000234"),
			MarketCap:     decimal.RequireFromString("1500000.4"),
			LiquidityUSD:  decimal.RequireFromString("250000"),
			URL:           "https://dexscreener.com/solana/pair",
			PairCreatedAt: testNow - 2*86400,
		},
		Analysis: &domain.TokenAnalysis{
			Token:       testToken,
			TotalSupply: decimal.NewFromInt(1_000_000_000),
			Positions: map[string]*domain.PositionSnapshot{
				"WalletA": {
					Account:           "WalletA",
					WalletName:        "alpha",
					TotalBuyCost:      decimal.NewFromInt(300),
					AverageBuyPrice:   decimal.RequireFromString("0.15"),
					AverageMarketCap:  decimal.NewFromInt(150000),
					HoldsPercentage:   decimal.NewFromInt(75),
					MostRecentBuyTime: testNow - 300,
				},
				"WalletB": {
					Account:           "WalletB",
					WalletName:        domain.UnknownWalletName,
					TotalBuyCost:      decimal.NewFromInt(100),
					AverageBuyPrice:   decimal.RequireFromString("0.25"),
					AverageMarketCap:  decimal.NewFromInt(250000),
					HoldsPercentage:   decimal.NewFromInt(100),
					MostRecentBuyTime: testNow - 30,
					PriceDegraded:     true,
				},
			},
		},
	}
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage(testSignal(), testNow)

	assert.Contains(t, msg, "<b>Multi-wallet buy: $BONK</b>")
	assert.Contains(t, msg, "(Bonk &lt;Inu&gt;)")
	assert.Contains(t, msg, "<code>"+testToken+"</code>")
	assert.Contains(t, msg, "MCap: $1500000")
	assert.Contains(t, msg, "Pair age: 2d")
	assert.Contains(t, msg, "cost $300 @ 0.150000, mcap $150000, holds 75.00%, last buy 5m ago")
	assert.Contains(t, msg, "holds 100.00%, last buy 30s ago")
	assert.Contains(t, msg, "could not be priced")
	assert.NotContains(t, msg, "Supply unavailable")

	assert.Less(t, strings.Index(msg, "alpha"), strings.Index(msg, domain.UnknownWalletName), "largest cost first")
}

func TestFormatMessage_WithoutInfo(t *testing.T) {
	s := testSignal()
	s.Info = nil
	s.Analysis.SupplyIsFallback = true

	msg := FormatMessage(s, testNow)
	assert.Contains(t, msg, "Multi-wallet buy: DezX…B263")
	assert.Contains(t, msg, "Supply unavailable; market caps assume 1000000000 tokens.")
}

func TestFormatMessage_FitsTelegramLimit(t *testing.T) {
	s := testSignal()
	s.Analysis.SupplyIsFallback = true
	for i := 0; i < 200; i++ {
		account := fmt.Sprintf("Wallet%03dxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx", i)
		s.Analysis.Positions[account] = &domain.PositionSnapshot{
			Account:           account,
			WalletName:        fmt.Sprintf("wallet number %d", i),
			TotalBuyCost:      decimal.NewFromInt(int64(1000 + i)),
			AverageBuyPrice:   decimal.RequireFromString("0.15"),
			AverageMarketCap:  decimal.NewFromInt(150000),
			HoldsPercentage:   decimal.NewFromInt(50),
			MostRecentBuyTime: testNow - 60,
		}
	}

	msg := FormatMessage(s, testNow)

	assert.LessOrEqual(t, utf8.RuneCountInString(msg), TelegramMessageLimit)
	assert.Regexp(t, `…and \d+ more wallets`, msg)
	assert.Contains(t, msg, "Supply unavailable")
	assert.Equal(t, strings.Count(msg, "<b>"), strings.Count(msg, "</b>"))
	assert.Equal(t, strings.Count(msg, "<code>"), strings.Count(msg, "</code>"))
	// largest costs are kept
	assert.Contains(t, msg, "wallet number 199")
}

func TestFormatMessage_SmallCohortNotTruncated(t *testing.T) {
	assert.NotContains(t, FormatMessage(testSignal(), testNow), "more wallets")
}

func TestTelegramSink_Deliver(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42}}`))
	}))
	defer srv.Close()

	sink := NewTelegramSink(srv.URL, "TOKEN", "-1001", time.Second)
	sink.now = func() time.Time { return time.Unix(testNow, 0) }

	r, err := sink.Deliver(context.Background(), testSignal())
	require.NoError(t, err)
	assert.Equal(t, Receipt{Sink: "telegram", MessageID: "42"}, r)
	assert.Equal(t, "-1001", got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Contains(t, got.Text, "$BONK")
}

func TestTelegramSink_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	_, err := NewTelegramSink(srv.URL, "TOKEN", "x", time.Second).Deliver(context.Background(), testSignal())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return f.err
}

func TestNATSSink_Deliver(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewNATSSink(pub, "monitor")
	sink.now = func() time.Time { return time.Unix(testNow, 0) }

	r, err := sink.Deliver(context.Background(), testSignal())
	require.NoError(t, err)
	assert.Equal(t, "nats", r.Sink)
	assert.Len(t, r.MessageID, 64)
	assert.Equal(t, "monitor.cohort", pub.subject)

	var msg SignalMessage
	require.NoError(t, json.Unmarshal(pub.data, &msg))
	assert.Equal(t, r.MessageID, msg.ID)
	assert.Equal(t, testToken, msg.Token)
	assert.Equal(t, "BONK", msg.Symbol)
	require.Len(t, msg.Positions, 2)
	assert.Equal(t, "alpha", msg.Positions[0].WalletName)
	assert.Equal(t, "75.00%", msg.Positions[0].HoldsPercentage)
}

func TestNATSSink_PublishError(t *testing.T) {
	_, err := NewNATSSink(&fakePublisher{err: errors.New("no responders")}, "").Deliver(context.Background(), testSignal())
	assert.Error(t, err)
}

func TestArchiveSink_Deliver(t *testing.T) {
	archive := memory.NewSignalArchive()
	_, err := NewArchiveSink(archive).Deliver(context.Background(), testSignal())
	require.NoError(t, err)

	n, err := archive.CountByToken(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

type failingSink struct{}

func (failingSink) Name() string { return "broken" }
func (failingSink) Deliver(context.Context, *domain.CohortSignal) (Receipt, error) {
	return Receipt{}, errors.New("unavailable")
}

func TestMulti_CollectsErrors(t *testing.T) {
	archive := memory.NewSignalArchive()
	m := NewMulti(time.Second, nil, failingSink{}, NewArchiveSink(archive), NewLogSink(nil))

	r, err := m.Deliver(context.Background(), testSignal())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: unavailable")
	assert.Equal(t, "archive", r.Sink)

	n, _ := archive.CountByToken(context.Background(), testToken)
	assert.Equal(t, uint64(1), n, "later sinks still run")
}

func TestMulti_AllFail(t *testing.T) {
	r, err := NewMulti(time.Second, nil, failingSink{}, failingSink{}).Deliver(context.Background(), testSignal())
	assert.Error(t, err)
	assert.Empty(t, r.Sink)
}
