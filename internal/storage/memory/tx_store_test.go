package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/storage"
)

func newTx(sig, account, in, out string, ts int64) *domain.Transaction {
	return &domain.Transaction{
		Signature:       sig,
		Account:         account,
		TokenInAddress:  in,
		TokenInAmount:   "1",
		TokenOutAddress: out,
		TokenOutAmount:  "10",
		Timestamp:       ts,
	}
}

func TestTransactionStore_InsertAndGet(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	desc := "swap"
	tx := newTx("sig1", "walletA", domain.NativeMint, "tokenX", 1000)
	tx.Description = &desc

	if err := store.Insert(ctx, tx); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	desc = "changed"
	tx.Account = "other"

	got, err := store.GetBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignature failed: %v", err)
	}
	if got.Account != "walletA" {
		t.Errorf("Account mismatch: got %s, want walletA", got.Account)
	}
	if got.Description == nil || *got.Description != "swap" {
		t.Errorf("Description mismatch: got %v", got.Description)
	}
}

func TestTransactionStore_DuplicateKey(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	tx := newTx("sig1", "walletA", domain.NativeMint, "tokenX", 1000)
	if err := store.Insert(ctx, tx); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, tx)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTransactionStore_InvalidInput(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}

	tx := newTx("sig1", "walletA", domain.NativeMint, "", 1000)
	if err := store.Insert(ctx, tx); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for incomplete swap, got %v", err)
	}
}

func TestTransactionStore_ExistsOtherAccountBetween(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	_ = store.Insert(ctx, newTx("s1", "walletA", domain.NativeMint, "tokenX", 1000))
	_ = store.Insert(ctx, newTx("s2", "walletB", domain.NativeMint, "tokenX", 2000))
	_ = store.Insert(ctx, newTx("s3", "walletC", "tokenX", domain.NativeMint, 2500))

	tests := []struct {
		name    string
		token   string
		exclude string
		since   int64
		until   int64
		want    bool
	}{
		{"other account at lower bound", "tokenX", "walletB", 1000, 2000, true},
		{"other account before bound", "tokenX", "walletB", 1001, 2000, false},
		{"only self in window", "tokenX", "walletB", 1500, 2000, false},
		{"sell side ignored", "tokenX", "walletA", 2001, 3000, false},
		{"different token", "tokenY", "walletA", 0, 3000, false},
		{"other account at upper bound", "tokenX", "walletA", 1000, 2000, true},
		{"later buy ignored", "tokenX", "walletA", 0, 1999, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ExistsOtherAccountBetween(ctx, tt.token, tt.exclude, tt.since, tt.until)
			if err != nil {
				t.Fatalf("ExistsOtherAccountBetween failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransactionStore_GetByTokenOrdering(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	_ = store.Insert(ctx, newTx("s3", "walletA", "tokenX", domain.NativeMint, 3000))
	_ = store.Insert(ctx, newTx("s1", "walletA", domain.NativeMint, "tokenX", 1000))
	_ = store.Insert(ctx, newTx("s0", "walletB", domain.NativeMint, "tokenX", 1000))
	_ = store.Insert(ctx, newTx("s9", "walletC", domain.NativeMint, "tokenY", 500))

	result, err := store.GetByToken(ctx, "tokenX")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}

	want := []string{"s0", "s1", "s3"}
	if len(result) != len(want) {
		t.Fatalf("Expected %d transactions, got %d", len(want), len(result))
	}
	for i, sig := range want {
		if result[i].Signature != sig {
			t.Errorf("result[%d] = %s, want %s", i, result[i].Signature, sig)
		}
	}
}

func TestTransactionStore_SubscribeDeliversInOrder(t *testing.T) {
	store := NewTransactionStore()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub, err := store.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	_ = store.Insert(ctx, newTx("s1", "walletA", domain.NativeMint, "tokenX", 1000))
	_ = store.Insert(ctx, newTx("s1", "walletA", domain.NativeMint, "tokenX", 1000)) // duplicate, not delivered
	_ = store.Insert(ctx, newTx("s2", "walletB", domain.NativeMint, "tokenX", 1001))

	for _, want := range []string{"s1", "s2"} {
		got, err := sub.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if got.Signature != want {
			t.Errorf("Next = %s, want %s", got.Signature, want)
		}
	}
}

func TestTransactionStore_SubscriptionClose(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	sub, _ := store.Subscribe(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := sub.Next(ctx)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := sub.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, storage.ErrSubscriptionClosed) {
			t.Errorf("Expected ErrSubscriptionClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Close")
	}

	// Inserts after close are not queued.
	_ = store.Insert(ctx, newTx("s1", "walletA", domain.NativeMint, "tokenX", 1000))
	if len(store.subs) != 0 {
		t.Errorf("Expected no live subscriptions, got %d", len(store.subs))
	}
}

func TestTransactionStore_NextHonorsContext(t *testing.T) {
	store := NewTransactionStore()
	sub, _ := store.Subscribe(context.Background())
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := sub.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
}
