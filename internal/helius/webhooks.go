package helius

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAPIBaseURL is the Helius REST API root.
const DefaultAPIBaseURL = "https://api.helius.xyz"

// Webhook types and transaction filters used for wallet monitoring.
const (
	WebhookTypeEnhanced = "enhanced"
	TransactionTypeSwap = "SWAP"
)

// Webhook is a Helius webhook definition.
type Webhook struct {
	WebhookID        string   `json:"webhookID,omitempty"`
	Wallet           string   `json:"wallet,omitempty"`
	WebhookURL       string   `json:"webhookURL"`
	TransactionTypes []string `json:"transactionTypes"`
	AccountAddresses []string `json:"accountAddresses"`
	WebhookType      string   `json:"webhookType"`
	AuthHeader       string   `json:"authHeader,omitempty"`
}

// WebhookClient manages webhooks through the Helius REST API.
type WebhookClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewWebhookClient creates a client. Empty baseURL uses DefaultAPIBaseURL.
func NewWebhookClient(apiKey, baseURL string) *WebhookClient {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &WebhookClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Create registers a new webhook and returns it with its assigned ID.
func (c *WebhookClient) Create(ctx context.Context, w *Webhook) (*Webhook, error) {
	var created Webhook
	if err := c.do(ctx, http.MethodPost, "/v0/webhooks", w, &created); err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}
	return &created, nil
}

// List returns every webhook owned by the API key.
func (c *WebhookClient) List(ctx context.Context) ([]Webhook, error) {
	var hooks []Webhook
	if err := c.do(ctx, http.MethodGet, "/v0/webhooks", nil, &hooks); err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	return hooks, nil
}

// Update replaces the definition of an existing webhook.
func (c *WebhookClient) Update(ctx context.Context, id string, w *Webhook) (*Webhook, error) {
	var updated Webhook
	if err := c.do(ctx, http.MethodPut, "/v0/webhooks/"+url.PathEscape(id), w, &updated); err != nil {
		return nil, fmt.Errorf("update webhook %s: %w", id, err)
	}
	return &updated, nil
}

func (c *WebhookClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	endpoint := c.baseURL + path + "?api-key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
