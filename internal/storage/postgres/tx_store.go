package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const txColumns = `
	signature, account,
	token_in_address, token_in_amount::text,
	token_out_address, token_out_amount::text,
	timestamp, description
`

// Insert adds a new transaction. Returns ErrDuplicateKey if signature exists.
// Amounts are bound as text and cast server-side so no precision is lost.
func (s *TransactionStore) Insert(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.Validate() != nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO txs (
			signature, account, token_in_address, token_in_amount,
			token_out_address, token_out_amount, timestamp, description
		) VALUES ($1, $2, $3, $4::text::numeric, $5, $6::text::numeric, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		tx.Signature,
		tx.Account,
		tx.TokenInAddress,
		tx.TokenInAmount,
		tx.TokenOutAddress,
		tx.TokenOutAmount,
		tx.Timestamp,
		tx.Description,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetBySignature retrieves a transaction. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetBySignature(ctx context.Context, signature string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM txs WHERE signature = $1`

	rows, err := s.pool.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("get transaction by signature: %w", err)
	}
	defer rows.Close()

	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, storage.ErrNotFound
	}
	return txs[0], nil
}

// ExistsOtherAccountBetween reports whether an account other than
// excludeAccount received token within [since, until].
func (s *TransactionStore) ExistsOtherAccountBetween(ctx context.Context, token, excludeAccount string, since, until int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM txs
			WHERE token_out_address = $1 AND account <> $2
			  AND timestamp >= $3 AND timestamp <= $4
		)
	`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, token, excludeAccount, since, until).Scan(&exists); err != nil {
		return false, fmt.Errorf("check cohort window: %w", err)
	}
	return exists, nil
}

// GetByToken retrieves every transaction touching token on either side,
// ordered by timestamp ASC, signature ASC.
func (s *TransactionStore) GetByToken(ctx context.Context, token string) ([]*domain.Transaction, error) {
	query := `SELECT ` + txColumns + `
		FROM txs
		WHERE token_out_address = $1 OR token_in_address = $1
		ORDER BY timestamp ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("get transactions by token: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// scanTransactions scans multiple rows into a slice of Transaction.
func scanTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction

	for rows.Next() {
		var tx domain.Transaction

		err := rows.Scan(
			&tx.Signature,
			&tx.Account,
			&tx.TokenInAddress,
			&tx.TokenInAmount,
			&tx.TokenOutAddress,
			&tx.TokenOutAmount,
			&tx.Timestamp,
			&tx.Description,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}

		txs = append(txs, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}

	return txs, nil
}
