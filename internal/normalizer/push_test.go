package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/helius"
)

const (
	testWallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	testMint   = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

func decodePush(t *testing.T, body string) *helius.EnhancedTransaction {
	t.Helper()
	var et helius.EnhancedTransaction
	require.NoError(t, json.Unmarshal([]byte(body), &et))
	return &et
}

func TestNormalizePush_NativeInTokenOut(t *testing.T) {
	et := decodePush(t, `{
		"signature": "sig1",
		"feePayer": "`+testWallet+`",
		"timestamp": 1700000000,
		"description": "swapped 1.5 SOL for 1234.5 BONK",
		"events": {"swap": {
			"nativeInput": {"account": "`+testWallet+`", "amount": "1500000000"},
			"tokenInputs": [],
			"tokenOutputs": [{"mint": "`+testMint+`", "rawTokenAmount": {"tokenAmount": "123450000", "decimals": 5}}]
		}}
	}`)

	res := NormalizePush(et)
	require.Equal(t, KindSwap, res.Kind, res.Reason)
	tx := res.Transaction
	assert.Equal(t, "sig1", tx.Signature)
	assert.Equal(t, testWallet, tx.Account)
	assert.Equal(t, domain.NativeMint, tx.TokenInAddress)
	assert.Equal(t, "1.5", tx.TokenInAmount)
	assert.Equal(t, testMint, tx.TokenOutAddress)
	assert.Equal(t, "1234.5", tx.TokenOutAmount)
	assert.Equal(t, int64(1700000000), tx.Timestamp)
	require.NotNil(t, tx.Description)
	assert.Equal(t, domain.SourceHelius, res.Source)
}

func TestNormalizePush_TokenInNativeOut(t *testing.T) {
	et := decodePush(t, `{
		"signature": "sig2",
		"feePayer": "`+testWallet+`",
		"timestamp": 1700000100,
		"events": {"swap": {
			"nativeOutput": {"account": "`+testWallet+`", "amount": "250000000"},
			"tokenInputs": [{"mint": "`+testMint+`", "rawTokenAmount": {"tokenAmount": "1000000", "decimals": 6}}],
			"tokenOutputs": []
		}}
	}`)

	res := NormalizePush(et)
	require.Equal(t, KindSwap, res.Kind, res.Reason)
	assert.Equal(t, testMint, res.Transaction.TokenInAddress)
	assert.Equal(t, "1", res.Transaction.TokenInAmount)
	assert.Equal(t, domain.NativeMint, res.Transaction.TokenOutAddress)
	assert.Equal(t, "0.25", res.Transaction.TokenOutAmount)
	assert.Nil(t, res.Transaction.Description)
}

func TestNormalizePush_NativeTakesPrecedence(t *testing.T) {
	et := decodePush(t, `{
		"signature": "sig3",
		"feePayer": "`+testWallet+`",
		"timestamp": 1,
		"events": {"swap": {
			"nativeInput": {"amount": "1000000000"},
			"tokenInputs": [{"mint": "`+domain.USDCMint+`", "rawTokenAmount": {"tokenAmount": "5000000", "decimals": 6}}],
			"tokenOutputs": [{"mint": "`+testMint+`", "rawTokenAmount": {"tokenAmount": "1", "decimals": 0}}]
		}}
	}`)

	res := NormalizePush(et)
	require.Equal(t, KindSwap, res.Kind, res.Reason)
	assert.Equal(t, domain.NativeMint, res.Transaction.TokenInAddress)
	assert.Equal(t, "1", res.Transaction.TokenInAmount)
}

func TestNormalizePush_ZeroAmount(t *testing.T) {
	et := decodePush(t, `{
		"signature": "sig4",
		"feePayer": "`+testWallet+`",
		"timestamp": 1,
		"events": {"swap": {
			"nativeInput": {"amount": "0"},
			"tokenOutputs": [{"mint": "`+testMint+`", "rawTokenAmount": {"tokenAmount": "0", "decimals": 6}}]
		}}
	}`)

	res := NormalizePush(et)
	require.Equal(t, KindSwap, res.Kind, res.Reason)
	assert.Equal(t, "0", res.Transaction.TokenInAmount)
	assert.Equal(t, "0", res.Transaction.TokenOutAmount)
}

func TestNormalizePush_MissingDecimals(t *testing.T) {
	et := decodePush(t, `{
		"signature": "sig5",
		"feePayer": "`+testWallet+`",
		"timestamp": 1,
		"events": {"swap": {
			"nativeInput": {"amount": "1000"},
			"tokenOutputs": [{"mint": "`+testMint+`", "rawTokenAmount": {"tokenAmount": "10"}}]
		}}
	}`)

	res := NormalizePush(et)
	assert.Equal(t, KindUnparsable, res.Kind)
	assert.Contains(t, res.Reason, "decimals")
	assert.Nil(t, res.Transaction)
}

func TestNormalizePush_OneSided(t *testing.T) {
	et := decodePush(t, `{
		"signature": "sig6",
		"feePayer": "`+testWallet+`",
		"timestamp": 1,
		"events": {"swap": {
			"nativeInput": {"amount": "1000"},
			"tokenOutputs": []
		}}
	}`)

	res := NormalizePush(et)
	assert.Equal(t, KindNotASwap, res.Kind)
	assert.Equal(t, "incomplete swap", res.Reason)
	assert.Equal(t, "sig6", res.Signature)
}

func TestNormalizePush_NoSwapEvent(t *testing.T) {
	et := decodePush(t, `{"signature": "sig7", "feePayer": "`+testWallet+`", "events": {}}`)
	assert.Equal(t, KindNotASwap, NormalizePush(et).Kind)
}

func TestNormalizePush_BadAddresses(t *testing.T) {
	et := decodePush(t, `{
		"signature": "sig8",
		"feePayer": "not-base58-0OIl",
		"timestamp": 1,
		"events": {"swap": {"nativeInput": {"amount": "1"}, "tokenOutputs": [{"mint": "`+testMint+`", "rawTokenAmount": {"tokenAmount": "1", "decimals": 0}}]}}
	}`)
	assert.Equal(t, KindUnparsable, NormalizePush(et).Kind)

	et = decodePush(t, `{
		"signature": "sig9",
		"feePayer": "`+testWallet+`",
		"timestamp": 1,
		"events": {"swap": {"nativeInput": {"amount": "1"}, "tokenOutputs": [{"mint": "short", "rawTokenAmount": {"tokenAmount": "1", "decimals": 0}}]}}
	}`)
	assert.Equal(t, KindUnparsable, NormalizePush(et).Kind)
}

func TestNormalizePush_Nil(t *testing.T) {
	assert.Equal(t, KindUnparsable, NormalizePush(nil).Kind)
}

func TestScaleAmount(t *testing.T) {
	tests := []struct {
		raw      string
		decimals int32
		want     string
		wantErr  bool
	}{
		{"1000000000", 9, "1", false},
		{"1", 9, "0.000000001", false},
		{"123456789", 3, "123456.789", false},
		{"0", 6, "0", false},
		{"42", 0, "42", false},
		{"340282366920938463463374607431768211455", 18, "340282366920938463463.374607431768211455", false},
		{"", 6, "", true},
		{"-5", 2, "", true},
		{"abc", 2, "", true},
		{"5", -1, "", true},
	}

	for _, tt := range tests {
		got, err := ScaleAmount(tt.raw, tt.decimals)
		if tt.wantErr {
			assert.Error(t, err, "raw=%q", tt.raw)
			continue
		}
		require.NoError(t, err, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, got.String(), "raw=%q decimals=%d", tt.raw, tt.decimals)
	}
}
