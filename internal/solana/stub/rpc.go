package stub

import (
	"context"
	"errors"
	"sync"

	"solana-wallet-monitor/internal/solana"
)

// ErrNotFound is returned when a mint has no stubbed supply.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu       sync.Mutex
	Supplies map[string]*solana.TokenSupply
	Accounts map[string]*solana.AccountInfo
	Slot     int64
	// SupplyErr, when set, is returned by every GetTokenSupply call.
	SupplyErr error

	SupplyCalls int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Supplies: make(map[string]*solana.TokenSupply),
		Accounts: make(map[string]*solana.AccountInfo),
	}
}

// GetTokenSupply returns the stubbed supply for mint.
func (c *RPCClient) GetTokenSupply(_ context.Context, mint string) (*solana.TokenSupply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SupplyCalls++
	if c.SupplyErr != nil {
		return nil, c.SupplyErr
	}
	s, ok := c.Supplies[mint]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// GetAccountInfo returns the stubbed account, or nil if absent.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[pubkey], nil
}

// GetSlot returns the stubbed slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	return c.Slot, nil
}

// AddSupply stubs a supply result for mint.
func (c *RPCClient) AddSupply(mint, uiAmount string, decimals int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Supplies[mint] = &solana.TokenSupply{UIAmountString: uiAmount, Decimals: decimals}
}

var _ solana.RPCClient = (*RPCClient)(nil)
