package memory

import (
	"context"
	"sync"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/storage"
)

// RawRecordStore is an in-memory implementation of storage.RawRecordStore.
type RawRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RawRecord
}

// NewRawRecordStore creates a new in-memory raw record store.
func NewRawRecordStore() *RawRecordStore {
	return &RawRecordStore{data: make(map[string]*domain.RawRecord)}
}

// Insert adds a new raw record. Returns ErrDuplicateKey if signature exists.
func (s *RawRecordStore) Insert(_ context.Context, r *domain.RawRecord) error {
	if r == nil || r.Signature == "" || len(r.Body) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	c := *r
	c.Body = append([]byte(nil), r.Body...)
	s.data[r.Signature] = &c
	return nil
}

// Len returns the number of stored records.
func (s *RawRecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// GetBySignature retrieves a raw record. Returns ErrNotFound if not exists.
func (s *RawRecordStore) GetBySignature(_ context.Context, signature string) (*domain.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *r
	c.Body = append([]byte(nil), r.Body...)
	return &c, nil
}

var _ storage.RawRecordStore = (*RawRecordStore)(nil)
