package memory

import (
	"context"
	"sort"
	"sync"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
// It doubles as a storage.InsertFeed: every successful Insert is delivered to
// all live subscriptions in insert order.
type TransactionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Transaction // keyed by signature
	subs map[*subscription]struct{}
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data: make(map[string]*domain.Transaction),
		subs: make(map[*subscription]struct{}),
	}
}

// Len returns the number of stored transactions.
func (s *TransactionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Insert adds a new transaction. Returns ErrDuplicateKey if signature exists.
func (s *TransactionStore) Insert(_ context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.Validate() != nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tx.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	stored := copyTx(tx)
	s.data[tx.Signature] = stored

	// Published under the write lock so subscribers observe commit order.
	for sub := range s.subs {
		sub.push(copyTx(stored))
	}
	return nil
}

// GetBySignature retrieves a transaction. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetBySignature(_ context.Context, signature string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.data[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyTx(tx), nil
}

// ExistsOtherAccountBetween reports whether an account other than
// excludeAccount received token within [since, until].
func (s *TransactionStore) ExistsOtherAccountBetween(_ context.Context, token, excludeAccount string, since, until int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.data {
		if tx.TokenOutAddress == token && tx.Account != excludeAccount &&
			tx.Timestamp >= since && tx.Timestamp <= until {
			return true, nil
		}
	}
	return false, nil
}

// GetByToken retrieves every transaction touching token, ordered by timestamp ASC.
func (s *TransactionStore) GetByToken(_ context.Context, token string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range s.data {
		if tx.TokenOutAddress == token || tx.TokenInAddress == token {
			result = append(result, copyTx(tx))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].Signature < result[j].Signature
	})

	return result, nil
}

// Subscribe registers a new subscription receiving subsequent inserts.
func (s *TransactionStore) Subscribe(_ context.Context) (storage.InsertSubscription, error) {
	sub := &subscription{
		store:  s,
		notify: make(chan struct{}, 1),
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	return sub, nil
}

func (s *TransactionStore) unsubscribe(sub *subscription) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

func copyTx(tx *domain.Transaction) *domain.Transaction {
	c := *tx
	if tx.Description != nil {
		d := *tx.Description
		c.Description = &d
	}
	return &c
}

// subscription is an unbounded FIFO so Insert never blocks on a slow reader.
type subscription struct {
	store  *TransactionStore
	mu     sync.Mutex
	queue  []*domain.Transaction
	notify chan struct{}
	closed bool
}

func (s *subscription) push(tx *domain.Transaction) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, tx)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until an insert is available, ctx is done, or Close is called.
func (s *subscription) Next(ctx context.Context) (*domain.Transaction, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, storage.ErrSubscriptionClosed
		}
		if len(s.queue) > 0 {
			tx := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return tx, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.notify:
		}
	}
}

// Close detaches the subscription and wakes any blocked Next.
func (s *subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.queue = nil
	s.mu.Unlock()

	s.store.unsubscribe(s)

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

var (
	_ storage.TransactionStore = (*TransactionStore)(nil)
	_ storage.InsertFeed       = (*TransactionStore)(nil)
)
