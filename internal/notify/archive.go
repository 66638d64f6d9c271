package notify

import (
	"context"
	"fmt"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/storage"
)

// ArchiveSink appends signals to a SignalArchive.
type ArchiveSink struct {
	archive storage.SignalArchive
}

var _ Sink = (*ArchiveSink)(nil)

// NewArchiveSink creates an ArchiveSink.
func NewArchiveSink(archive storage.SignalArchive) *ArchiveSink {
	return &ArchiveSink{archive: archive}
}

// Name implements Sink.
func (a *ArchiveSink) Name() string { return "archive" }

// Deliver implements Sink.
func (a *ArchiveSink) Deliver(ctx context.Context, s *domain.CohortSignal) (Receipt, error) {
	if err := a.archive.Append(ctx, s); err != nil {
		return Receipt{}, fmt.Errorf("archive signal: %w", err)
	}
	return Receipt{Sink: a.Name(), MessageID: s.TriggerSignature}, nil
}
