package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"solana-wallet-monitor/internal/shyft"
)

// Client serves canned Shyft responses keyed by signature.
type Client struct {
	mu     sync.Mutex
	bodies map[string][]byte
	errs   map[string]error
	Calls  []string
}

// NewClient creates an empty stub.
func NewClient() *Client {
	return &Client{
		bodies: make(map[string][]byte),
		errs:   make(map[string]error),
	}
}

// AddBody registers the raw JSON body returned for signature.
func (c *Client) AddBody(signature string, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bodies[signature] = []byte(body)
}

// AddError registers an error returned for signature.
func (c *Client) AddError(signature string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[signature] = err
}

// GetParsedTransaction returns the registered body or error.
// Unknown signatures yield shyft.ErrNotFound.
func (c *Client) GetParsedTransaction(_ context.Context, signature string) (*shyft.Fetched, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls = append(c.Calls, signature)

	if err, ok := c.errs[signature]; ok {
		return nil, err
	}
	body, ok := c.bodies[signature]
	if !ok {
		return nil, shyft.ErrNotFound
	}

	var resp shyft.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("stub body for %s: %w", signature, err)
	}
	return &shyft.Fetched{Response: &resp, Raw: json.RawMessage(body)}, nil
}
