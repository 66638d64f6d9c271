package shyft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"solana-wallet-monitor/internal/observability"
	"solana-wallet-monitor/internal/retry"
)

// ErrNotFound is returned when Shyft has no record of the signature.
var ErrNotFound = errors.New("shyft: transaction not found")

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.shyft.to/sol/v1"
	DefaultNetwork    = "mainnet-beta"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second

	apiKeyHeader = "x-api-key"
)

// Client fetches parsed transactions from the Shyft API.
type Client struct {
	apiKey     string
	baseURL    string
	network    string
	client     *http.Client
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithNetwork selects the Solana cluster.
func WithNetwork(n string) Option {
	return func(c *Client) { c.network = n }
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithMaxRetries sets maximum retry attempts after the first call.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a new Shyft client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		network:    DefaultNetwork,
		client:     &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetParsedTransaction fetches Shyft's parsed view of signature.
// A response with success=false is returned as-is; callers decide what it means.
func (c *Client) GetParsedTransaction(ctx context.Context, signature string) (*Fetched, error) {
	q := url.Values{}
	q.Set("network", c.network)
	q.Set("txn_signature", signature)
	endpoint := c.baseURL + "/transaction/parsed?" + q.Encode()

	var fetched *Fetched
	cfg := retry.Config{
		MaxRetries:   c.maxRetries + 1,
		InitialDelay: c.retryDelay,
		MaxDelay:     c.maxDelay,
		Multiplier:   2,
	}
	err := retry.WithBackoff(ctx, cfg, c.logger, "shyft parsed transaction", func() error {
		f, err := c.get(ctx, endpoint)
		if err != nil {
			return err
		}
		fetched = f
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get parsed transaction %s: %w", signature, err)
	}
	return fetched, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*Fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		observability.RecordUpstreamCall("shyft", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	observability.RecordUpstreamCall("shyft", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited (429)")
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, retry.Permanent(ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Permanent(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, retry.Permanent(ErrNotFound)
	}

	var decoded Response
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
	}

	return &Fetched{Response: &decoded, Raw: json.RawMessage(body)}, nil
}
