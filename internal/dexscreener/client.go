package dexscreener

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

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/observability"
	"solana-wallet-monitor/internal/retry"
)

// ErrTokenNotFound is returned when DexScreener lists no Solana pair whose
// base token is the requested mint.
var ErrTokenNotFound = errors.New("dexscreener: token not found")

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.dexscreener.com"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second

	chainSolana = "solana"
)

// TokenInfoSource returns market data for a token.
type TokenInfoSource interface {
	GetTokenInfo(ctx context.Context, mint string) (*domain.TokenInfo, error)
}

// Client fetches token market data from the DexScreener public API.
type Client struct {
	baseURL    string
	client     *http.Client
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// Compile-time interface check.
var _ TokenInfoSource = (*Client)(nil)

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
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

// NewClient creates a new DexScreener client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
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

// GetTokenInfo returns market data from the most liquid Solana pair whose
// base token is mint.
func (c *Client) GetTokenInfo(ctx context.Context, mint string) (*domain.TokenInfo, error) {
	endpoint := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, url.PathEscape(mint))

	var resp tokensResponse
	cfg := retry.Config{
		MaxRetries:   c.maxRetries + 1,
		InitialDelay: c.retryDelay,
		MaxDelay:     c.maxDelay,
		Multiplier:   2,
	}
	err := retry.WithBackoff(ctx, cfg, c.logger, "dexscreener tokens", func() error {
		return c.getJSON(ctx, endpoint, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("get token info %s: %w", mint, err)
	}

	best := bestPair(resp.Pairs, mint)
	if best == nil {
		return nil, ErrTokenNotFound
	}
	return best.toTokenInfo(), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		observability.RecordUpstreamCall("dexscreener", "error", time.Since(start).Seconds())
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	observability.RecordUpstreamCall("dexscreener", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("rate limited (429)")
	case resp.StatusCode >= 500:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(ErrTokenNotFound)
	case resp.StatusCode != http.StatusOK:
		return retry.Permanent(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
	}
	return nil
}

// bestPair picks the Solana pair for mint with the highest USD liquidity.
func bestPair(pairs []pair, mint string) *pair {
	var best *pair
	for i := range pairs {
		p := &pairs[i]
		if p.ChainID != chainSolana || p.BaseToken.Address != mint {
			continue
		}
		if best == nil || p.Liquidity.USD.GreaterThan(best.Liquidity.USD) {
			best = p
		}
	}
	return best
}
