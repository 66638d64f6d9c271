package dexscreener

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mint = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"

const pairsBody = `{
  "schemaVersion": "1.0.0",
  "pairs": [
    {
      "chainId": "solana",
      "dexId": "raydium",
      "url": "https://dexscreener.com/solana/pairLow",
      "pairAddress": "pairLow",
      "baseToken": {"address": "` + mint + `", "name": "Meme", "symbol": "MEME"},
      "priceUsd": "0.0010",
      "liquidity": {"usd": 1000.5},
      "fdv": 900000,
      "marketCap": 800000,
      "pairCreatedAt": 1700000000000
    },
    {
      "chainId": "solana",
      "dexId": "orca",
      "url": "https://dexscreener.com/solana/pairHigh",
      "pairAddress": "pairHigh",
      "baseToken": {"address": "` + mint + `", "name": "Meme", "symbol": "MEME"},
      "priceUsd": "0.00123",
      "liquidity": {"usd": 50000},
      "fdv": 1230000,
      "pairCreatedAt": 1700000500000
    },
    {
      "chainId": "solana",
      "dexId": "raydium",
      "pairAddress": "pairQuote",
      "baseToken": {"address": "So11111111111111111111111111111111111111112", "name": "Wrapped SOL", "symbol": "SOL"},
      "priceUsd": "150",
      "liquidity": {"usd": 9000000}
    }
  ]
}`

func TestClient_GetTokenInfo_PicksMostLiquidBasePair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/tokens/"+mint, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(pairsBody))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	info, err := client.GetTokenInfo(context.Background(), mint)
	require.NoError(t, err)

	assert.Equal(t, "pairHigh", info.PairAddress)
	assert.Equal(t, "MEME", info.Symbol)
	assert.Equal(t, "0.00123", info.PriceUSD.String())
	// marketCap absent: falls back to fdv
	assert.Equal(t, "1230000", info.MarketCap.String())
	assert.Equal(t, int64(1700000500), info.PairCreatedAt)
	assert.Equal(t, int64(500), info.PairAgeSeconds(1700001000))
}

func TestClient_GetTokenInfo_NoPairs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"schemaVersion":"1.0.0","pairs":null}`))
	}))
	defer server.Close()

	_, err := NewClient(WithBaseURL(server.URL)).GetTokenInfo(context.Background(), mint)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestClient_GetTokenInfo_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(pairsBody))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetryDelay(time.Millisecond))
	_, err := client.GetTokenInfo(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_GetTokenInfo_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetryDelay(time.Millisecond))
	_, err := client.GetTokenInfo(context.Background(), mint)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTokenNotFound))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHandleFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://x.com/memecoin", "memecoin"},
		{"https://twitter.com/memecoin/status/123", "memecoin"},
		{"https://www.x.com/memecoin/", "memecoin"},
		{"@memecoin", "memecoin"},
		{"https://x.com/i/communities/1", ""},
		{"https://t.me/memecoin", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, handleFromURL(tt.in), tt.in)
	}
}

func TestClient_GetTokenInfo_TwitterHandle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[{
			"chainId":"solana","pairAddress":"p1",
			"baseToken":{"address":"` + mint + `","symbol":"MEME"},
			"liquidity":{"usd":10},
			"info":{"socials":[{"type":"telegram","url":"https://t.me/meme"},{"type":"twitter","url":"https://x.com/memecoin"}]}
		}]}`))
	}))
	defer server.Close()

	info, err := NewClient(WithBaseURL(server.URL)).GetTokenInfo(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, "memecoin", info.TwitterHandle)
}
