// Package ingestion routes upstream records to a normalizer and persists
// the canonical result.
package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/helius"
	"solana-wallet-monitor/internal/normalizer"
	"solana-wallet-monitor/internal/observability"
	"solana-wallet-monitor/internal/storage"
)

// SignatureNormalizer resolves a bare signature to a normalized result.
type SignatureNormalizer interface {
	Normalize(ctx context.Context, signature string) normalizer.Result
}

// Pipeline ingests one upstream record at a time. It holds no mutable
// state, so concurrent Ingest calls are safe.
type Pipeline struct {
	txs          storage.TransactionStore
	raw          storage.RawRecordStore
	pull         SignatureNormalizer
	storeTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// PipelineOptions contains configuration for creating a Pipeline.
type PipelineOptions struct {
	Transactions storage.TransactionStore
	RawRecords   storage.RawRecordStore
	Pull         SignatureNormalizer
	StoreTimeout time.Duration // Default: 5s
	Logger       *zap.Logger
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	storeTimeout := opts.StoreTimeout
	if storeTimeout == 0 {
		storeTimeout = 5 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		txs:          opts.Transactions,
		raw:          opts.RawRecords,
		pull:         opts.Pull,
		storeTimeout: storeTimeout,
		logger:       logger.Named("ingestion"),
		now:          time.Now,
	}
}

// IngestBatch ingests a delivery body holding either a JSON array of
// records or a single record. Elements are ingested independently.
func (p *Pipeline) IngestBatch(ctx context.Context, body []byte) []Outcome {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return []Outcome{p.finish(Outcome{Status: StatusSkipped, Reason: ReasonUndecodable}, time.Now())}
		}
		outcomes := make([]Outcome, 0, len(items))
		for _, item := range items {
			outcomes = append(outcomes, p.Ingest(ctx, item))
		}
		return outcomes
	}
	return []Outcome{p.Ingest(ctx, trimmed)}
}

// Ingest routes one record. A record carrying a swap event goes to the push
// normalizer; one carrying only a signature goes to the pull normalizer;
// anything else is skipped without a write.
func (p *Pipeline) Ingest(ctx context.Context, raw json.RawMessage) Outcome {
	start := time.Now()

	var env helius.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return p.finish(Outcome{Status: StatusSkipped, Reason: ReasonNoSwapData}, start)
	}

	switch {
	case env.HasSwapEvent():
		var et helius.EnhancedTransaction
		if err := json.Unmarshal(raw, &et); err != nil {
			return p.finish(Outcome{
				Status:    StatusSkipped,
				Reason:    ReasonParseFailed,
				Signature: env.Signature,
				Parser:    domain.SourceHelius,
			}, start)
		}
		return p.finish(p.persist(ctx, normalizer.NormalizePush(&et)), start)

	case env.Signature != "" && p.pull != nil:
		return p.finish(p.persist(ctx, p.pull.Normalize(ctx, env.Signature)), start)

	default:
		return p.finish(Outcome{Status: StatusSkipped, Reason: ReasonNoSwapData, Signature: env.Signature}, start)
	}
}

// persist stores a normalizer result.
func (p *Pipeline) persist(ctx context.Context, res normalizer.Result) Outcome {
	out := Outcome{Signature: res.Signature, Parser: res.Source}

	switch res.Kind {
	case normalizer.KindSwap:
		err := p.withStoreTimeout(ctx, func(ctx context.Context) error {
			return p.txs.Insert(ctx, res.Transaction)
		})
		return p.classifyStoreError(out, err)

	case normalizer.KindNotASwap:
		// push events with a one-sided swap are rejected; pulled bodies are kept
		if res.Source == domain.SourceHelius || len(res.Raw) == 0 || p.raw == nil {
			out.Status = StatusSkipped
			out.Reason = ReasonIncompleteSwap
			return out
		}
		record := &domain.RawRecord{
			Signature:  res.Signature,
			Source:     res.Source,
			Body:       res.Raw,
			ReceivedAt: p.now().Unix(),
		}
		err := p.withStoreTimeout(ctx, func(ctx context.Context) error {
			return p.raw.Insert(ctx, record)
		})
		out = p.classifyStoreError(out, err)
		if out.Status == StatusStored && err == nil {
			out.Reason = ReasonRawStored
			observability.RecordRawRecordSaved()
		}
		return out

	default:
		out.Status = StatusSkipped
		out.Reason = ReasonParseFailed
		p.logger.Debug("record not parsed",
			zap.String("signature", res.Signature),
			zap.String("source", string(res.Source)),
			zap.String("detail", res.Reason))
		return out
	}
}

func (p *Pipeline) classifyStoreError(out Outcome, err error) Outcome {
	switch {
	case err == nil:
		out.Status = StatusStored
	case errors.Is(err, storage.ErrDuplicateKey):
		out.Status = StatusStored
		out.Reason = ReasonDuplicate
	case errors.Is(err, storage.ErrInvalidInput):
		out.Status = StatusSkipped
		out.Reason = ReasonIncompleteSwap
	default:
		out.Status = StatusFailed
		out.Err = fmt.Errorf("persist %s: %w", out.Signature, err)
	}
	return out
}

func (p *Pipeline) withStoreTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()
	return fn(ctx)
}

// finish records metrics and logs the outcome.
func (p *Pipeline) finish(out Outcome, start time.Time) Outcome {
	parser := string(out.Parser)
	if parser == "" {
		parser = "none"
	}
	observability.RecordIngest(string(out.Status), parser, out.Reason, time.Since(start).Seconds())

	fields := []zap.Field{
		zap.String("status", string(out.Status)),
		zap.String("signature", out.Signature),
		zap.String("parser", parser),
	}
	if out.Reason != "" {
		fields = append(fields, zap.String("reason", out.Reason))
	}

	switch out.Status {
	case StatusFailed:
		p.logger.Error("ingest failed", append(fields, zap.Error(out.Err))...)
	case StatusStored:
		observability.MarkIngestion(p.now().Unix())
		p.logger.Info("ingested", fields...)
	default:
		p.logger.Info("ingest skipped", fields...)
	}
	return out
}
