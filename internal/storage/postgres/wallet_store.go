package postgres

import (
	"context"
	"fmt"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
// The wallets table is owned by the registry; this store only reads it.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// List returns every registered wallet, ordered by address.
func (s *WalletStore) List(ctx context.Context) ([]*domain.Wallet, error) {
	rows, err := s.pool.Query(ctx, `SELECT address, name FROM wallets ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		if err := rows.Scan(&w.Address, &w.Name); err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return wallets, nil
}

// GetNames resolves display names for addresses in one query.
func (s *WalletStore) GetNames(ctx context.Context, addresses []string) (map[string]string, error) {
	names := make(map[string]string, len(addresses))
	if len(addresses) == 0 {
		return names, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT address, name FROM wallets WHERE address = ANY($1) AND name IS NOT NULL`,
		addresses,
	)
	if err != nil {
		return nil, fmt.Errorf("get wallet names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var address, name string
		if err := rows.Scan(&address, &name); err != nil {
			return nil, fmt.Errorf("scan wallet name: %w", err)
		}
		names[address] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet names: %w", err)
	}
	return names, nil
}
