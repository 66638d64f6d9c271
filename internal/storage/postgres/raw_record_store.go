package postgres

import (
	"context"
	"fmt"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/storage"
)

// RawRecordStore implements storage.RawRecordStore using PostgreSQL.
type RawRecordStore struct {
	pool *Pool
}

// NewRawRecordStore creates a new RawRecordStore.
func NewRawRecordStore(pool *Pool) *RawRecordStore {
	return &RawRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RawRecordStore = (*RawRecordStore)(nil)

// Insert adds a new raw record. Returns ErrDuplicateKey if signature exists.
func (s *RawRecordStore) Insert(ctx context.Context, r *domain.RawRecord) error {
	if r == nil || r.Signature == "" || len(r.Body) == 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO raw_txs (signature, source, body, received_at)
		VALUES ($1, $2, $3::jsonb, $4)
	`

	_, err := s.pool.Exec(ctx, query, r.Signature, string(r.Source), string(r.Body), r.ReceivedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert raw record: %w", err)
	}
	return nil
}

// GetBySignature retrieves a raw record. Returns ErrNotFound if not exists.
func (s *RawRecordStore) GetBySignature(ctx context.Context, signature string) (*domain.RawRecord, error) {
	query := `
		SELECT signature, source, body::text, received_at
		FROM raw_txs
		WHERE signature = $1
	`

	var (
		r      domain.RawRecord
		source string
		body   string
	)
	err := s.pool.QueryRow(ctx, query, signature).Scan(&r.Signature, &source, &body, &r.ReceivedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get raw record: %w", err)
	}
	r.Source = domain.Source(source)
	r.Body = []byte(body)
	return &r, nil
}
