package storage

import (
	"context"

	"solana-wallet-monitor/internal/domain"
)

// TransactionStore provides access to txs storage.
type TransactionStore interface {
	// Insert adds a new transaction. Returns ErrDuplicateKey if signature exists.
	Insert(ctx context.Context, tx *domain.Transaction) error

	// GetBySignature retrieves a transaction. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.Transaction, error)

	// ExistsOtherAccountBetween reports whether any account other than
	// excludeAccount received token within [since, until] (unix seconds).
	ExistsOtherAccountBetween(ctx context.Context, token, excludeAccount string, since, until int64) (bool, error)

	// GetByToken retrieves every transaction where token is either side,
	// ordered by timestamp ASC, then signature ASC.
	GetByToken(ctx context.Context, token string) ([]*domain.Transaction, error)
}

// RawRecordStore provides access to raw_txs storage.
type RawRecordStore interface {
	// Insert adds a new raw record. Returns ErrDuplicateKey if signature exists.
	Insert(ctx context.Context, r *domain.RawRecord) error

	// GetBySignature retrieves a raw record. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.RawRecord, error)
}

// WalletStore provides read access to the watched wallet registry.
type WalletStore interface {
	// List returns every registered wallet, ordered by address.
	List(ctx context.Context) ([]*domain.Wallet, error)

	// GetNames resolves display names for addresses. Addresses without a
	// registry entry or with a NULL name are absent from the result.
	GetNames(ctx context.Context, addresses []string) (map[string]string, error)
}

// InsertFeed delivers newly persisted transactions in commit order.
type InsertFeed interface {
	// Subscribe opens a subscription. Events inserted before Subscribe
	// returns are not guaranteed to be delivered.
	Subscribe(ctx context.Context) (InsertSubscription, error)
}

// InsertSubscription is one live stream of insert events.
type InsertSubscription interface {
	// Next blocks until the next inserted transaction is available.
	// Returns ErrSubscriptionClosed once the subscription is closed, or the
	// underlying transport error when the stream broke.
	Next(ctx context.Context) (*domain.Transaction, error)

	// Close releases the subscription.
	Close() error
}

// SignalArchive is an append-only audit trail of delivered cohort signals.
type SignalArchive interface {
	// Append stores the signal and its position rows.
	Append(ctx context.Context, s *domain.CohortSignal) error

	// CountByToken returns how many signals were archived for token.
	CountByToken(ctx context.Context, token string) (uint64, error)
}
