package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/storage"
)

// InsertChannel is the notification channel fed by the txs insert trigger.
const InsertChannel = "txs_insert"

// InsertFeed implements storage.InsertFeed with LISTEN/NOTIFY.
// Each subscription holds one pooled connection for its lifetime.
type InsertFeed struct {
	pool  *Pool
	store *TransactionStore
}

// NewInsertFeed creates a new InsertFeed.
func NewInsertFeed(pool *Pool) *InsertFeed {
	return &InsertFeed{pool: pool, store: NewTransactionStore(pool)}
}

// Compile-time interface check.
var _ storage.InsertFeed = (*InsertFeed)(nil)

// Subscribe acquires a dedicated connection and starts listening.
func (f *InsertFeed) Subscribe(ctx context.Context) (storage.InsertSubscription, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+InsertChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", InsertChannel, err)
	}

	return &insertSubscription{conn: conn, store: f.store}, nil
}

type insertSubscription struct {
	mu     sync.Mutex
	conn   *pgxpool.Conn
	store  *TransactionStore
	closed bool
}

// Next waits for the next notification and loads the row it names.
// Rows that vanished between notify and read are skipped.
func (s *insertSubscription) Next(ctx context.Context) (*domain.Transaction, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, storage.ErrSubscriptionClosed
		}
		conn := s.conn
		s.mu.Unlock()

		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("wait for notification: %w", err)
		}
		if n.Channel != InsertChannel || n.Payload == "" {
			continue
		}

		tx, err := s.store.GetBySignature(ctx, n.Payload)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load notified transaction %s: %w", n.Payload, err)
		}
		return tx, nil
	}
}

// Close stops listening and returns the connection to the pool.
// A connection broken by a cancelled wait is discarded by the pool.
func (s *insertSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if !s.conn.Conn().IsClosed() {
		_, err = s.conn.Exec(context.Background(), "UNLISTEN "+InsertChannel)
	}
	s.conn.Release()
	if err != nil {
		return fmt.Errorf("unlisten %s: %w", InsertChannel, err)
	}
	return nil
}
