package helius

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookClient_Create(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v0/webhooks", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("api-key"))

		var in Webhook
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, []string{TransactionTypeSwap}, in.TransactionTypes)
		assert.Equal(t, WebhookTypeEnhanced, in.WebhookType)
		assert.Equal(t, "Bearer secret", in.AuthHeader)

		in.WebhookID = "hook-1"
		json.NewEncoder(w).Encode(in)
	}))
	defer server.Close()

	client := NewWebhookClient("key", server.URL)
	created, err := client.Create(context.Background(), &Webhook{
		WebhookURL:       "https://monitor.example/api/webhook",
		TransactionTypes: []string{TransactionTypeSwap},
		AccountAddresses: []string{"walletA", "walletB"},
		WebhookType:      WebhookTypeEnhanced,
		AuthHeader:       "Bearer secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "hook-1", created.WebhookID)
	assert.Len(t, created.AccountAddresses, 2)
}

func TestWebhookClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer server.Close()

	_, err := NewWebhookClient("bad", server.URL).List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestEnvelope_HasSwapEvent(t *testing.T) {
	cases := map[string]bool{
		`{"signature":"s","events":{"swap":{"nativeInput":null}}}`: true,
		`{"signature":"s","events":{"swap":null}}`:                 false,
		`{"signature":"s","events":{}}`:                            false,
		`{"signature":"s"}`:                                        false,
	}
	for body, want := range cases {
		var p Envelope
		require.NoError(t, json.Unmarshal([]byte(body), &p))
		assert.Equal(t, want, p.HasSwapEvent(), body)
	}
}
