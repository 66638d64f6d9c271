// Package cohort detects when a second distinct wallet buys a token within
// a lookback window and dispatches position analysis for it.
package cohort

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"solana-wallet-monitor/internal/coalesce"
	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/notify"
	"solana-wallet-monitor/internal/observability"
	"solana-wallet-monitor/internal/retry"
	"solana-wallet-monitor/internal/storage"
)

// Analyzer computes positions for a token.
type Analyzer interface {
	Analyze(ctx context.Context, token string) (*domain.TokenAnalysis, error)
}

// FollowUp runs after a signal was delivered, with the delivery receipt.
type FollowUp interface {
	FollowUp(ctx context.Context, s *domain.CohortSignal, r notify.Receipt) error
}

// Config tunes the detector.
type Config struct {
	Lookback        time.Duration
	DebounceWindow  time.Duration
	Workers         int
	QueueSize       int
	QueryTimeout    time.Duration
	AnalysisTimeout time.Duration
	Reconnect       retry.Config
}

// DefaultConfig returns the defaults used by the monitor.
func DefaultConfig() Config {
	return Config{
		Lookback:        6 * time.Hour,
		DebounceWindow:  time.Minute,
		Workers:         4,
		QueueSize:       256,
		QueryTimeout:    10 * time.Second,
		AnalysisTimeout: 2 * time.Minute,
		Reconnect:       retry.DefaultConfig(),
	}
}

// Deps are the detector's collaborators. Filter, Coalescer and FollowUp are optional.
type Deps struct {
	Feed      storage.InsertFeed
	Txs       storage.TransactionStore
	Coalescer coalesce.Coalescer
	Filter    TokenFilter
	Analyzer  Analyzer
	Sink      notify.Sink
	FollowUp  FollowUp
}

// Detector subscribes to newly inserted transactions and evaluates each one.
//
// A single pump goroutine reads the feed in delivery order. Triggered
// analyses run on a bounded worker pool so the pump is never held up by
// analytics or delivery.
type Detector struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	state atomic.Int32
	pool  pond.Pool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDetector creates a Detector.
func NewDetector(deps Deps, cfg Config, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	var opts []pond.Option
	if cfg.QueueSize > 0 {
		opts = append(opts, pond.WithQueueSize(cfg.QueueSize))
	}
	return &Detector{
		deps:   deps,
		cfg:    cfg,
		logger: logger.Named("detector"),
		now:    time.Now,
		pool:   pond.NewPool(cfg.Workers, opts...),
	}
}

// State returns the current subscription state.
func (d *Detector) State() State {
	return State(d.state.Load())
}

func (d *Detector) setState(s State) {
	d.state.Store(int32(s))
	observability.SetDetectorState(int(s))
}

// Start runs the detector in the background until Stop.
func (d *Detector) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		d.Run(ctx)
	}()
}

// Stop cancels the pump and waits for in-flight analyses.
func (d *Detector) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	d.pool.StopAndWait()
}

// Run subscribes and pumps events until ctx is done. Subscription faults
// are retried with backoff forever.
func (d *Detector) Run(ctx context.Context) {
	attempt := 0
	for {
		d.setState(StateConnecting)
		sub, err := d.deps.Feed.Subscribe(ctx)
		if err == nil {
			attempt = 0
			d.setState(StateListening)
			d.logger.Info("listening for inserts")
			err = d.pump(ctx, sub)
			if cerr := sub.Close(); cerr != nil {
				d.logger.Debug("close subscription", zap.Error(cerr))
			}
		}

		if ctx.Err() != nil {
			d.setState(StateStopped)
			d.logger.Info("detector stopped")
			return
		}

		attempt++
		delay := retry.Backoff(d.cfg.Reconnect, attempt)
		d.setState(StateBackoff)
		observability.RecordReconnect()
		d.logger.Warn("insert feed failed, reconnecting",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			d.setState(StateStopped)
			return
		case <-timer.C:
		}
	}
}

func (d *Detector) pump(ctx context.Context, sub storage.InsertSubscription) error {
	for {
		tx, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrSubscriptionClosed) {
				return fmt.Errorf("subscription closed: %w", err)
			}
			return err
		}
		d.handle(ctx, tx)
	}
}

// handle evaluates one event and dispatches an analysis if it triggers.
func (d *Detector) handle(ctx context.Context, tx *domain.Transaction) {
	triggered, err := d.Evaluate(ctx, tx)
	if err != nil {
		observability.RecordEvaluation("error")
		d.logger.Error("evaluation failed, event dropped",
			zap.String("signature", tx.Signature),
			zap.String("token", tx.TokenOutAddress),
			zap.Error(err))
		return
	}
	if !triggered {
		return
	}

	observability.RecordTrigger()
	d.logger.Info("multi-wallet buy detected",
		zap.String("token", tx.TokenOutAddress),
		zap.String("account", tx.Account),
		zap.String("signature", tx.Signature))

	if d.deps.Coalescer != nil {
		ok, err := d.deps.Coalescer.Acquire(ctx, tx.TokenOutAddress, d.cfg.DebounceWindow)
		switch {
		case err != nil:
			// fail open
			d.logger.Warn("coalescer unavailable", zap.String("token", tx.TokenOutAddress), zap.Error(err))
		case !ok:
			observability.RecordCoalesced()
			d.logger.Debug("trigger coalesced", zap.String("token", tx.TokenOutAddress))
			return
		}
	}

	d.dispatch(ctx, tx)
}

// Evaluate reports whether tx is a buy of a non-reference token and another
// account bought the same token within [tx.Timestamp - Lookback, tx.Timestamp].
// Rows newer than tx never count, so a detector replaying a backlog fires on
// the later buyer only.
func (d *Detector) Evaluate(ctx context.Context, tx *domain.Transaction) (bool, error) {
	if tx == nil || tx.TokenOutAddress == "" || domain.IsReferenceAsset(tx.TokenOutAddress) {
		observability.RecordEvaluation("ignored")
		return false, nil
	}

	if d.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.QueryTimeout)
		defer cancel()
	}

	since := tx.Timestamp - int64(d.cfg.Lookback/time.Second)
	found, err := d.deps.Txs.ExistsOtherAccountBetween(ctx, tx.TokenOutAddress, tx.Account, since, tx.Timestamp)
	if err != nil {
		return false, fmt.Errorf("query cohort for %s: %w", tx.TokenOutAddress, err)
	}
	if found {
		observability.RecordEvaluation("triggered")
	} else {
		observability.RecordEvaluation("no_match")
	}
	return found, nil
}

func (d *Detector) dispatch(ctx context.Context, tx *domain.Transaction) {
	if ctx.Err() != nil {
		observability.RecordTaskDropped()
		return
	}
	trigger := *tx
	d.pool.Submit(func() {
		d.analyze(ctx, &trigger)
	})
}

// analyze runs the filter, analytics and delivery for one trigger.
// Errors are logged; nothing is retried.
func (d *Detector) analyze(ctx context.Context, trigger *domain.Transaction) {
	if d.cfg.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.AnalysisTimeout)
		defer cancel()
	}
	token := trigger.TokenOutAddress
	logger := d.logger.With(zap.String("token", token), zap.String("trigger", trigger.Signature))

	signal := &domain.CohortSignal{
		Token:            token,
		TriggerSignature: trigger.Signature,
		TriggerAccount:   trigger.Account,
		TriggerTimestamp: trigger.Timestamp,
		DetectedAt:       d.now().Unix(),
	}

	if d.deps.Filter != nil {
		info, pass, reason := d.deps.Filter.Check(ctx, token)
		if !pass {
			observability.RecordFilterRejection(reason)
			logger.Info("token filtered out", zap.String("reason", reason))
			return
		}
		signal.Info = info
	}

	analysis, err := d.deps.Analyzer.Analyze(ctx, token)
	if err != nil {
		logger.Error("analysis failed", zap.Error(err))
		return
	}
	signal.Analysis = analysis

	receipt, err := d.deps.Sink.Deliver(ctx, signal)
	if err != nil {
		logger.Error("signal delivery failed", zap.Error(err))
		return
	}
	logger.Info("signal delivered",
		zap.String("sink", receipt.Sink),
		zap.String("message_id", receipt.MessageID),
		zap.Int("positions", len(analysis.Positions)))

	if d.deps.FollowUp != nil {
		if err := d.deps.FollowUp.FollowUp(ctx, signal, receipt); err != nil {
			logger.Warn("signal follow-up failed", zap.Error(err))
		}
	}
}
