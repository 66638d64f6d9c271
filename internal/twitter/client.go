// Package twitter reads public tweets through the RapidAPI twitter-api45
// endpoints.
package twitter

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

// ErrUserNotFound is returned when a timeline is requested for an unknown account.
var ErrUserNotFound = errors.New("twitter: user not found")

// Default configuration values.
const (
	DefaultBaseURL    = "https://twitter-api45.p.rapidapi.com"
	DefaultHost       = "twitter-api45.p.rapidapi.com"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
	DefaultMaxDelay   = 5 * time.Second

	SearchTop    = "Top"
	SearchLatest = "Latest"
)

// Source reads tweets.
type Source interface {
	Search(ctx context.Context, query, searchType string) ([]Tweet, error)
	UserTimeline(ctx context.Context, screenName string) (*Timeline, error)
}

// Client is a RapidAPI twitter-api45 client.
type Client struct {
	baseURL    string
	host       string
	apiKey     string
	client     *http.Client
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

var _ Source = (*Client)(nil)

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHost sets the x-rapidapi-host header.
func WithHost(h string) Option {
	return func(c *Client) { c.host = h }
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

// NewClient creates a client authenticated with a RapidAPI key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		host:       DefaultHost,
		apiKey:     apiKey,
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

// Search returns tweets matching query. An empty searchType means SearchTop.
func (c *Client) Search(ctx context.Context, query, searchType string) ([]Tweet, error) {
	if searchType == "" {
		searchType = SearchTop
	}
	params := url.Values{"query": {query}, "search_type": {searchType}}

	var resp searchResponse
	if err := c.get(ctx, "search", "/search.php", params, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	tweets := make([]Tweet, 0, len(resp.Timeline))
	for i := range resp.Timeline {
		tweets = append(tweets, resp.Timeline[i].toTweet(false))
	}
	return tweets, nil
}

// UserTimeline returns the profile, pinned tweet and latest tweets of screenName.
// The pinned tweet, when present, comes first.
func (c *Client) UserTimeline(ctx context.Context, screenName string) (*Timeline, error) {
	params := url.Values{"screenname": {screenName}}

	var resp timelineResponse
	if err := c.get(ctx, "timeline", "/timeline.php", params, &resp); err != nil {
		return nil, fmt.Errorf("timeline @%s: %w", screenName, err)
	}
	if resp.User == nil {
		return nil, ErrUserNotFound
	}

	tl := &Timeline{
		User: Author{
			Name:        resp.User.Name,
			ScreenName:  screenName,
			Description: resp.User.Desc,
			Followers:   int64(resp.User.SubCount),
			Verified:    resp.User.Verified,
		},
	}
	if resp.Pinned != nil {
		tl.Tweets = append(tl.Tweets, resp.Pinned.toTweet(true))
	}
	for i := range resp.Timeline {
		tl.Tweets = append(tl.Tweets, resp.Timeline[i].toTweet(false))
	}
	for i := range tl.Tweets {
		if tl.Tweets[i].Author.ScreenName == "" {
			tl.Tweets[i].Author = tl.User
		}
	}
	return tl, nil
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, out interface{}) error {
	cfg := retry.Config{
		MaxRetries:   c.maxRetries + 1,
		InitialDelay: c.retryDelay,
		MaxDelay:     c.maxDelay,
		Multiplier:   2,
	}
	endpoint := c.baseURL + path + "?" + params.Encode()
	return retry.WithBackoff(ctx, cfg, c.logger, "twitter "+op, func() error {
		return c.getJSON(ctx, endpoint, out)
	})
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		observability.RecordUpstreamCall("twitter", "error", time.Since(start).Seconds())
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	observability.RecordUpstreamCall("twitter", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(ErrUserNotFound)
	case resp.StatusCode != http.StatusOK:
		// 429 means the plan quota is exhausted
		return retry.Permanent(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
	}
	return nil
}
