package domain

import "errors"

// Transaction is the canonical swap record shared by every ingestion source.
// Corresponds to txs table in PostgreSQL.
//
// Amounts are human-scaled decimal strings (raw on-chain integer divided by
// 10^decimals). They are never stored as floats.
type Transaction struct {
	Signature       string  // Solana transaction signature, natural primary key
	Account         string  // wallet that initiated the swap (fee payer / swapper)
	TokenInAddress  string  // mint spent
	TokenInAmount   string  // amount spent
	TokenOutAddress string  // mint received
	TokenOutAmount  string  // amount received
	Timestamp       int64   // block time, seconds since epoch
	Description     *string // provider description (nullable)
}

// Validation errors for Transaction.
var (
	ErrMissingSignature = errors.New("transaction: missing signature")
	ErrMissingAccount   = errors.New("transaction: missing account")
	ErrIncompleteSwap   = errors.New("transaction: incomplete swap")
)

// IsCompleteSwap reports whether both sides of the swap are present.
func (t *Transaction) IsCompleteSwap() bool {
	return t.TokenInAddress != "" && t.TokenInAmount != "" &&
		t.TokenOutAddress != "" && t.TokenOutAmount != ""
}

// Validate checks the invariants required before persistence.
func (t *Transaction) Validate() error {
	if t.Signature == "" {
		return ErrMissingSignature
	}
	if t.Account == "" {
		return ErrMissingAccount
	}
	if !t.IsCompleteSwap() {
		return ErrIncompleteSwap
	}
	return nil
}

// IsBuyOf reports whether the transaction acquired token.
func (t *Transaction) IsBuyOf(token string) bool {
	return t.TokenOutAddress == token
}

// IsSellOf reports whether the transaction disposed of token.
func (t *Transaction) IsSellOf(token string) bool {
	return t.TokenInAddress == token
}
