package memory

import (
	"context"
	"sort"
	"sync"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/storage"
)

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Wallet
}

// NewWalletStore creates a new in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{data: make(map[string]*domain.Wallet)}
}

// Put registers or replaces a wallet. Used to seed the registry.
func (s *WalletStore) Put(address string, name *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := &domain.Wallet{Address: address}
	if name != nil {
		n := *name
		w.Name = &n
	}
	s.data[address] = w
}

// List returns every registered wallet, ordered by address.
func (s *WalletStore) List(_ context.Context) ([]*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Wallet, 0, len(s.data))
	for _, w := range s.data {
		c := *w
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Address < result[j].Address })
	return result, nil
}

// GetNames resolves display names for addresses.
func (s *WalletStore) GetNames(_ context.Context, addresses []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[string]string, len(addresses))
	for _, addr := range addresses {
		if w, ok := s.data[addr]; ok && w.Name != nil {
			names[addr] = *w.Name
		}
	}
	return names, nil
}

var _ storage.WalletStore = (*WalletStore)(nil)
