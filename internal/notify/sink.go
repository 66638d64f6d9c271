// Package notify delivers cohort signals to external channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/observability"
)

// Receipt identifies a delivered notification. A fan-out receipt lists the
// successful child receipts in Children.
type Receipt struct {
	Sink      string
	MessageID string
	Children  []Receipt
}

// Find returns the receipt issued by the named sink, searching r and its children.
func (r Receipt) Find(sink string) (Receipt, bool) {
	if r.Sink == sink {
		return r, true
	}
	for _, c := range r.Children {
		if found, ok := c.Find(sink); ok {
			return found, true
		}
	}
	return Receipt{}, false
}

// Sink delivers a cohort signal. Delivery is attempted once.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, s *domain.CohortSignal) (Receipt, error)
}

// Multi fans a signal out to every sink.
type Multi struct {
	sinks   []Sink
	timeout time.Duration
	logger  *zap.Logger
}

var _ Sink = (*Multi)(nil)

// NewMulti creates a fan-out sink. timeout bounds each child delivery.
func NewMulti(timeout time.Duration, logger *zap.Logger, sinks ...Sink) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multi{sinks: sinks, timeout: timeout, logger: logger.Named("notify")}
}

// Name implements Sink.
func (m *Multi) Name() string { return "multi" }

// Deliver sends s to every sink in order and joins their errors.
// The returned receipt is the first successful child receipt.
func (m *Multi) Deliver(ctx context.Context, s *domain.CohortSignal) (Receipt, error) {
	var (
		first    Receipt
		children []Receipt
		errs     []error
	)
	for _, sink := range m.sinks {
		r, err := m.deliverOne(ctx, sink, s)
		observability.RecordSinkDelivery(sink.Name(), err)
		if err != nil {
			m.logger.Warn("signal delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("token", s.Token),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		if first.Sink == "" {
			first = r
		}
		children = append(children, r)
	}
	if len(errs) == len(m.sinks) && len(errs) > 0 {
		return Receipt{}, errors.Join(errs...)
	}
	observability.MarkSignalDelivered(time.Now().Unix())
	first.Children = children
	return first, errors.Join(errs...)
}

func (m *Multi) deliverOne(ctx context.Context, sink Sink, s *domain.CohortSignal) (Receipt, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return sink.Deliver(ctx, s)
}

// LogSink writes signals to the log.
type LogSink struct {
	logger *zap.Logger
}

var _ Sink = (*LogSink)(nil)

// NewLogSink creates a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("signal")}
}

// Name implements Sink.
func (l *LogSink) Name() string { return "log" }

// Deliver implements Sink.
func (l *LogSink) Deliver(_ context.Context, s *domain.CohortSignal) (Receipt, error) {
	fields := []zap.Field{
		zap.String("token", s.Token),
		zap.String("trigger_signature", s.TriggerSignature),
		zap.String("trigger_account", s.TriggerAccount),
		zap.Int64("trigger_timestamp", s.TriggerTimestamp),
	}
	if s.Info != nil {
		fields = append(fields,
			zap.String("symbol", s.Info.Symbol),
			zap.String("market_cap", s.Info.MarketCap.StringFixed(0)))
	}
	if s.Analysis != nil {
		fields = append(fields,
			zap.Int("positions", len(s.Analysis.Positions)),
			zap.Bool("degraded", s.Analysis.Degraded()))
	}
	l.logger.Info("cohort signal", fields...)
	return Receipt{Sink: l.Name(), MessageID: s.TriggerSignature}, nil
}
