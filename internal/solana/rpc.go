package solana

import "context"

// RPCClient defines the Solana RPC calls used for token supply lookups.
type RPCClient interface {
	// GetTokenSupply returns the total supply of an SPL mint.
	GetTokenSupply(ctx context.Context, mint string) (*TokenSupply, error)

	// GetAccountInfo returns raw account data, or nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetSlot returns the current slot. Used as a liveness check.
	GetSlot(ctx context.Context) (int64, error)
}

// TokenSupply is the result of getTokenSupply.
type TokenSupply struct {
	Amount         string // raw integer amount
	Decimals       int
	UIAmountString string // human-scaled amount, exact
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       string // base64 encoded
	Executable bool
	RentEpoch  uint64
}
