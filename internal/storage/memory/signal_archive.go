package memory

import (
	"context"
	"sync"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/storage"
)

// SignalArchive is an in-memory implementation of storage.SignalArchive.
type SignalArchive struct {
	mu      sync.RWMutex
	signals []*domain.CohortSignal
}

// NewSignalArchive creates a new in-memory signal archive.
func NewSignalArchive() *SignalArchive {
	return &SignalArchive{}
}

// Append stores a shallow copy of the signal.
func (a *SignalArchive) Append(_ context.Context, s *domain.CohortSignal) error {
	if s == nil || s.Token == "" {
		return storage.ErrInvalidInput
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	c := *s
	a.signals = append(a.signals, &c)
	return nil
}

// CountByToken returns how many signals were archived for token.
func (a *SignalArchive) CountByToken(_ context.Context, token string) (uint64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var n uint64
	for _, s := range a.signals {
		if s.Token == token {
			n++
		}
	}
	return n, nil
}

var _ storage.SignalArchive = (*SignalArchive)(nil)
