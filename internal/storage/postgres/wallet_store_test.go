package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletStore_ListAndNames(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, err := pool.Exec(ctx, `INSERT INTO wallets (address, name) VALUES ('walletB', 'bravo'), ('walletA', 'alpha'), ('walletC', NULL)`)
	require.NoError(t, err)

	store := NewWalletStore(pool)

	wallets, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 3)
	assert.Equal(t, "walletA", wallets[0].Address)
	assert.Equal(t, "alpha", wallets[0].DisplayName())
	assert.Equal(t, "Unknown", wallets[2].DisplayName())

	names, err := store.GetNames(ctx, []string{"walletA", "walletC", "walletZ"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"walletA": "alpha"}, names)

	names, err = store.GetNames(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, names)
}
