package cohort

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-monitor/internal/coalesce"
	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/notify"
	"solana-wallet-monitor/internal/retry"
	"solana-wallet-monitor/internal/storage"
	"solana-wallet-monitor/internal/storage/memory"
)

const (
	token   = "TokenMint"
	walletA = "WalletA"
	walletB = "WalletB"
)

func buy(sig, account, out string, ts int64) *domain.Transaction {
	return &domain.Transaction{
		Signature:       sig,
		Account:         account,
		TokenInAddress:  domain.NativeMint,
		TokenInAmount:   "1",
		TokenOutAddress: out,
		TokenOutAmount:  "1000",
		Timestamp:       ts,
	}
}

type fakeAnalyzer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, token string) (*domain.TokenAnalysis, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.TokenAnalysis{Token: token, Positions: map[string]*domain.PositionSnapshot{}}, nil
}

type captureSink struct {
	signals chan *domain.CohortSignal
}

func newCaptureSink() *captureSink {
	return &captureSink{signals: make(chan *domain.CohortSignal, 16)}
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Deliver(_ context.Context, s *domain.CohortSignal) (notify.Receipt, error) {
	c.signals <- s
	return notify.Receipt{Sink: c.Name(), MessageID: s.TriggerSignature}, nil
}

type staticFilter struct {
	pass   bool
	reason string
}

func (f staticFilter) Check(context.Context, string) (*domain.TokenInfo, bool, string) {
	return &domain.TokenInfo{Symbol: "TKN"}, f.pass, f.reason
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.QueryTimeout = time.Second
	cfg.AnalysisTimeout = 5 * time.Second
	cfg.Reconnect = retry.Config{InitialDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond, Multiplier: 2}
	return cfg
}

func newTestDetector(t *testing.T, store *memory.TransactionStore, deps Deps) *Detector {
	t.Helper()
	if deps.Feed == nil {
		deps.Feed = store
	}
	if deps.Txs == nil {
		deps.Txs = store
	}
	d := NewDetector(deps, testConfig(), nil)
	t.Cleanup(d.Stop)
	return d
}

func waitListening(t *testing.T, d *Detector) {
	t.Helper()
	require.Eventually(t, func() bool { return d.State() == StateListening }, 2*time.Second, 5*time.Millisecond)
}

func TestDetector_Evaluate(t *testing.T) {
	store := memory.NewTransactionStore()
	ctx := context.Background()
	base := int64(1_700_000_000)
	lookback := int64(6 * 3600)

	require.NoError(t, store.Insert(ctx, buy("a1", walletA, token, base)))
	require.NoError(t, store.Insert(ctx, buy("u1", walletA, domain.USDCMint, base)))
	require.NoError(t, store.Insert(ctx, buy("n1", walletA, domain.NativeMint, base)))
	require.NoError(t, store.Insert(ctx, buy("c1", walletA, "LaterMint", base+7200)))

	d := newTestDetector(t, store, Deps{Analyzer: &fakeAnalyzer{}, Sink: newCaptureSink()})

	tests := []struct {
		name string
		tx   *domain.Transaction
		want bool
	}{
		{"other account inside window", buy("b1", walletB, token, base+3600), true},
		{"exactly at lower bound", buy("b2", walletB, token, base+lookback), true},
		{"one second past window", buy("b3", walletB, token, base+lookback+1), false},
		{"same account only", buy("a2", walletA, token, base+60), false},
		{"different token", buy("b4", walletB, "OtherMint", base+60), false},
		{"reference asset out", buy("b5", walletB, domain.USDCMint, base+60), false},
		{"native out", buy("b6", walletB, domain.NativeMint, base+60), false},
		{"other account buy is later", buy("b7", walletB, "LaterMint", base+60), false},
		{"other account buy at same second", buy("b8", walletB, "LaterMint", base+7200), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Evaluate(ctx, tt.tx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetector_TriggersAnalysisAndDelivery(t *testing.T) {
	store := memory.NewTransactionStore()
	analyzer := &fakeAnalyzer{}
	sink := newCaptureSink()
	d := newTestDetector(t, store, Deps{
		Analyzer:  analyzer,
		Sink:      sink,
		Filter:    staticFilter{pass: true},
		Coalescer: coalesce.NewLocal(),
	})

	d.Start()
	waitListening(t, d)

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, buy("a1", walletA, token, 1000)))
	require.NoError(t, store.Insert(ctx, buy("b1", walletB, token, 1100)))

	select {
	case s := <-sink.signals:
		assert.Equal(t, token, s.Token)
		assert.Equal(t, "b1", s.TriggerSignature)
		assert.Equal(t, walletB, s.TriggerAccount)
		require.NotNil(t, s.Info)
		assert.Equal(t, "TKN", s.Info.Symbol)
		require.NotNil(t, s.Analysis)
	case <-time.After(3 * time.Second):
		t.Fatal("no signal delivered")
	}
	assert.Equal(t, int32(1), analyzer.calls.Load())
}

// backlogFeed replays a fixed list of inserts, then blocks until closed.
type backlogFeed struct {
	txs []*domain.Transaction
}

func (f *backlogFeed) Subscribe(context.Context) (storage.InsertSubscription, error) {
	return &backlogSub{pending: f.txs, done: make(chan struct{})}, nil
}

type backlogSub struct {
	mu      sync.Mutex
	pending []*domain.Transaction
	done    chan struct{}
	once    sync.Once
}

func (s *backlogSub) Next(ctx context.Context) (*domain.Transaction, error) {
	s.mu.Lock()
	if len(s.pending) > 0 {
		tx := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		return tx, nil
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, storage.ErrSubscriptionClosed
	}
}

func (s *backlogSub) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func TestDetector_BacklogTriggersOnLaterBuyerOnly(t *testing.T) {
	store := memory.NewTransactionStore()
	ctx := context.Background()
	a1 := buy("a1", walletA, token, 1000)
	b1 := buy("b1", walletB, token, 1100)
	require.NoError(t, store.Insert(ctx, a1))
	require.NoError(t, store.Insert(ctx, b1))

	analyzer := &fakeAnalyzer{}
	sink := newCaptureSink()
	d := newTestDetector(t, store, Deps{
		Feed:     &backlogFeed{txs: []*domain.Transaction{a1, b1}},
		Analyzer: analyzer,
		Sink:     sink,
	})
	d.Start()

	select {
	case s := <-sink.signals:
		assert.Equal(t, "b1", s.TriggerSignature)
		assert.Equal(t, walletB, s.TriggerAccount)
	case <-time.After(3 * time.Second):
		t.Fatal("no signal delivered")
	}
	select {
	case s := <-sink.signals:
		t.Fatalf("unexpected second signal for %s", s.TriggerSignature)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, int32(1), analyzer.calls.Load())
}

func TestDetector_CoalescesRepeatedTriggers(t *testing.T) {
	store := memory.NewTransactionStore()
	analyzer := &fakeAnalyzer{}
	sink := newCaptureSink()
	d := newTestDetector(t, store, Deps{Analyzer: analyzer, Sink: sink, Coalescer: coalesce.NewLocal()})

	d.Start()
	waitListening(t, d)

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, buy("a1", walletA, token, 1000)))
	require.NoError(t, store.Insert(ctx, buy("b1", walletB, token, 1001)))
	require.NoError(t, store.Insert(ctx, buy("a2", walletA, token, 1002)))

	<-sink.signals
	select {
	case s := <-sink.signals:
		t.Fatalf("unexpected second signal for %s", s.TriggerSignature)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, int32(1), analyzer.calls.Load())
}

func TestDetector_FilterRejects(t *testing.T) {
	store := memory.NewTransactionStore()
	analyzer := &fakeAnalyzer{}
	sink := newCaptureSink()
	d := newTestDetector(t, store, Deps{Analyzer: analyzer, Sink: sink, Filter: staticFilter{reason: RejectPairTooOld}})

	d.Start()
	waitListening(t, d)

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, buy("a1", walletA, token, 1000)))
	require.NoError(t, store.Insert(ctx, buy("b1", walletB, token, 1001)))

	select {
	case <-sink.signals:
		t.Fatal("filtered token delivered")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, int32(0), analyzer.calls.Load())
}

type captureFollowUp struct {
	receipts chan notify.Receipt
}

func (c *captureFollowUp) FollowUp(_ context.Context, s *domain.CohortSignal, r notify.Receipt) error {
	c.receipts <- r
	return errors.New("reply failed")
}

func TestDetector_FollowUpReceivesReceipt(t *testing.T) {
	store := memory.NewTransactionStore()
	followUp := &captureFollowUp{receipts: make(chan notify.Receipt, 4)}
	sink := newCaptureSink()
	d := newTestDetector(t, store, Deps{Analyzer: &fakeAnalyzer{}, Sink: sink, FollowUp: followUp})

	d.Start()
	waitListening(t, d)

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, buy("a1", walletA, token, 1000)))
	require.NoError(t, store.Insert(ctx, buy("b1", walletB, token, 1001)))

	select {
	case r := <-followUp.receipts:
		assert.Equal(t, "capture", r.Sink)
		assert.Equal(t, "b1", r.MessageID)
	case <-time.After(3 * time.Second):
		t.Fatal("follow-up not run")
	}
	// a failing follow-up leaves the detector running
	assert.Equal(t, StateListening, d.State())
}

func TestDetector_FollowUpSkippedWhenAnalysisFails(t *testing.T) {
	store := memory.NewTransactionStore()
	analyzer := &fakeAnalyzer{err: errors.New("db down")}
	followUp := &captureFollowUp{receipts: make(chan notify.Receipt, 4)}
	d := newTestDetector(t, store, Deps{Analyzer: analyzer, Sink: newCaptureSink(), FollowUp: followUp})

	d.Start()
	waitListening(t, d)

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, buy("a1", walletA, token, 1000)))
	require.NoError(t, store.Insert(ctx, buy("b1", walletB, token, 1001)))

	require.Eventually(t, func() bool { return analyzer.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	select {
	case <-followUp.receipts:
		t.Fatal("follow-up ran without a delivery")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDetector_AnalysisErrorIsNotDelivered(t *testing.T) {
	store := memory.NewTransactionStore()
	analyzer := &fakeAnalyzer{err: errors.New("db down")}
	sink := newCaptureSink()
	d := newTestDetector(t, store, Deps{Analyzer: analyzer, Sink: sink})

	d.Start()
	waitListening(t, d)

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, buy("a1", walletA, token, 1000)))
	require.NoError(t, store.Insert(ctx, buy("b1", walletB, token, 1001)))

	require.Eventually(t, func() bool { return analyzer.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	select {
	case <-sink.signals:
		t.Fatal("signal delivered after failed analysis")
	case <-time.After(100 * time.Millisecond):
	}
}

// flakyFeed fails the first failures Subscribe calls.
type flakyFeed struct {
	inner    storage.InsertFeed
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyFeed) Subscribe(ctx context.Context) (storage.InsertSubscription, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return nil, errors.New("connection refused")
	}
	return f.inner.Subscribe(ctx)
}

func (f *flakyFeed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDetector_ReconnectsAfterSubscribeFailure(t *testing.T) {
	store := memory.NewTransactionStore()
	feed := &flakyFeed{inner: store, failures: 3}
	sink := newCaptureSink()
	d := newTestDetector(t, store, Deps{Feed: feed, Analyzer: &fakeAnalyzer{}, Sink: sink})

	d.Start()
	waitListening(t, d)
	assert.Equal(t, 4, feed.Calls())

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, buy("a1", walletA, token, 1000)))
	require.NoError(t, store.Insert(ctx, buy("b1", walletB, token, 1001)))

	select {
	case <-sink.signals:
	case <-time.After(3 * time.Second):
		t.Fatal("no signal after reconnect")
	}
}

// failingTxs wraps a store and fails ExistsOtherAccountBetween once.
type failingTxs struct {
	storage.TransactionStore
	failed atomic.Bool
}

func (f *failingTxs) ExistsOtherAccountBetween(ctx context.Context, token, exclude string, since, until int64) (bool, error) {
	if !f.failed.Swap(true) {
		return false, errors.New("statement timeout")
	}
	return f.TransactionStore.ExistsOtherAccountBetween(ctx, token, exclude, since, until)
}

func TestDetector_EvaluationErrorDropsEventOnly(t *testing.T) {
	store := memory.NewTransactionStore()
	sink := newCaptureSink()
	d := newTestDetector(t, store, Deps{Txs: &failingTxs{TransactionStore: store}, Analyzer: &fakeAnalyzer{}, Sink: sink})

	d.Start()
	waitListening(t, d)

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, buy("a1", walletA, token, 1000)))
	require.NoError(t, store.Insert(ctx, buy("b1", walletB, token, 1001)))

	select {
	case s := <-sink.signals:
		assert.Equal(t, "b1", s.TriggerSignature)
	case <-time.After(3 * time.Second):
		t.Fatal("detector stopped after evaluation error")
	}
	assert.Equal(t, StateListening, d.State())
}

func TestDetector_StopSetsStopped(t *testing.T) {
	store := memory.NewTransactionStore()
	d := NewDetector(Deps{Feed: store, Txs: store, Analyzer: &fakeAnalyzer{}, Sink: newCaptureSink()}, testConfig(), nil)
	d.Start()
	waitListening(t, d)
	d.Stop()
	assert.Equal(t, StateStopped, d.State())
}

func TestMarketFilter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	info := func(ageHours int64, mcap int64) *domain.TokenInfo {
		created := now.Unix() - ageHours*3600
		if ageHours < 0 {
			created = 0
		}
		return &domain.TokenInfo{PairCreatedAt: created, MarketCap: decimal.NewFromInt(mcap)}
	}

	cfg := MarketFilterConfig{
		Enabled:      true,
		MaxPairAge:   7 * 24 * time.Hour,
		MinMarketCap: decimal.NewFromInt(100_000),
	}

	tests := []struct {
		name   string
		info   *domain.TokenInfo
		err    error
		pass   bool
		reason string
	}{
		{"young and big", info(24, 500_000), nil, true, ""},
		{"exactly seven days", info(7*24, 100_000), nil, true, ""},
		{"too old", info(7*24+1, 500_000), nil, false, RejectPairTooOld},
		{"too small", info(1, 99_999), nil, false, RejectMarketCapLow},
		{"unknown age", info(-1, 500_000), nil, false, RejectPairAgeUnknown},
		{"lookup failed", nil, errors.New("429"), false, RejectLookupFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &stubSource{info: tt.info, err: tt.err}
			f := NewMarketFilter(src, cfg, nil)
			f.now = func() time.Time { return now }

			_, pass, reason := f.Check(context.Background(), token)
			assert.Equal(t, tt.pass, pass)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestMarketFilter_Disabled(t *testing.T) {
	f := NewMarketFilter(&stubSource{err: errors.New("down")}, MarketFilterConfig{}, nil)
	info, pass, _ := f.Check(context.Background(), token)
	assert.True(t, pass)
	assert.Nil(t, info)
}

type stubSource struct {
	info *domain.TokenInfo
	err  error
}

func (s *stubSource) GetTokenInfo(context.Context, string) (*domain.TokenInfo, error) {
	return s.info, s.err
}
