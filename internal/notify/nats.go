package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"solana-wallet-monitor/internal/analytics"
	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/idhash"
)

// Publisher is the subset of *nats.Conn used by NATSSink.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	URL            string
	SubjectPrefix  string
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

// ConnectNATS opens a NATS connection with logging handlers.
func ConnectNATS(cfg NATSConfig, logger *zap.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("nats")

	opts := []nats.Option{
		nats.Name("wallets-monitor"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.URL, err)
	}
	logger.Info("connected to NATS", zap.String("url", conn.ConnectedUrl()))
	return conn, nil
}

// SignalMessage is the JSON body published for a signal.
type SignalMessage struct {
	ID               string                        `json:"id"`
	Token            string                        `json:"token"`
	Symbol           string                        `json:"symbol,omitempty"`
	Name             string                        `json:"name,omitempty"`
	TriggerSignature string                        `json:"trigger_signature"`
	TriggerAccount   string                        `json:"trigger_account"`
	TriggerTimestamp int64                         `json:"trigger_timestamp"`
	DetectedAt       int64                         `json:"detected_at"`
	PriceUSD         string                        `json:"price_usd,omitempty"`
	MarketCap        string                        `json:"market_cap,omitempty"`
	TotalSupply      string                        `json:"total_supply,omitempty"`
	SupplyIsFallback bool                          `json:"supply_is_fallback"`
	Positions        []analytics.FormattedPosition `json:"positions"`
}

// NewSignalMessage converts s for publishing.
func NewSignalMessage(s *domain.CohortSignal, now int64) SignalMessage {
	m := SignalMessage{
		ID:               idhash.ComputeSignalID(s.Token, s.TriggerSignature),
		Token:            s.Token,
		TriggerSignature: s.TriggerSignature,
		TriggerAccount:   s.TriggerAccount,
		TriggerTimestamp: s.TriggerTimestamp,
		DetectedAt:       s.DetectedAt,
		Positions:        []analytics.FormattedPosition{},
	}
	if s.Info != nil {
		m.Symbol = s.Info.Symbol
		m.Name = s.Info.Name
		m.PriceUSD = s.Info.PriceUSD.String()
		m.MarketCap = s.Info.MarketCap.String()
	}
	if s.Analysis != nil {
		m.TotalSupply = s.Analysis.TotalSupply.String()
		m.SupplyIsFallback = s.Analysis.SupplyIsFallback
		m.Positions = analytics.FormatAnalysis(s.Analysis, now)
	}
	return m
}

// NATSSink publishes signals on <prefix>.cohort.
type NATSSink struct {
	pub     Publisher
	subject string
	now     func() time.Time
}

var _ Sink = (*NATSSink)(nil)

// NewNATSSink creates a NATSSink.
func NewNATSSink(pub Publisher, subjectPrefix string) *NATSSink {
	if subjectPrefix == "" {
		subjectPrefix = "wallets"
	}
	return &NATSSink{pub: pub, subject: subjectPrefix + ".cohort", now: time.Now}
}

// Name implements Sink.
func (n *NATSSink) Name() string { return "nats" }

// Subject returns the publish subject.
func (n *NATSSink) Subject() string { return n.subject }

// Deliver implements Sink.
func (n *NATSSink) Deliver(_ context.Context, s *domain.CohortSignal) (Receipt, error) {
	msg := NewSignalMessage(s, n.now().Unix())
	data, err := json.Marshal(msg)
	if err != nil {
		return Receipt{}, fmt.Errorf("marshal signal: %w", err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return Receipt{}, fmt.Errorf("publish %s: %w", n.subject, err)
	}
	return Receipt{Sink: n.Name(), MessageID: msg.ID}, nil
}
