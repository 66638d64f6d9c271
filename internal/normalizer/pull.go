package normalizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/shyft"
	"solana-wallet-monitor/internal/solana"
)

// TransactionFetcher fetches a parsed transaction by signature.
type TransactionFetcher interface {
	GetParsedTransaction(ctx context.Context, signature string) (*shyft.Fetched, error)
}

// PullNormalizer resolves a bare signature through an upstream parser.
type PullNormalizer struct {
	fetcher TransactionFetcher
}

// NewPullNormalizer creates a PullNormalizer.
func NewPullNormalizer(fetcher TransactionFetcher) *PullNormalizer {
	return &PullNormalizer{fetcher: fetcher}
}

// Normalize fetches signature once and interprets the first swap action.
//
// Fetch failures, not-found and success=false responses are unparsable.
// A successful response without a complete swap action is not a swap and
// carries the fetched body for opaque storage.
func (n *PullNormalizer) Normalize(ctx context.Context, signature string) Result {
	if signature == "" {
		return unparsable(domain.SourceShyft, "", "empty signature")
	}

	fetched, err := n.fetcher.GetParsedTransaction(ctx, signature)
	if err != nil {
		if errors.Is(err, shyft.ErrNotFound) {
			return unparsable(domain.SourceShyft, signature, "transaction not found")
		}
		return unparsable(domain.SourceShyft, signature, fmt.Sprintf("fetch: %v", err))
	}
	if fetched == nil || fetched.Response == nil {
		return unparsable(domain.SourceShyft, signature, "empty response")
	}

	resp := fetched.Response
	if !resp.Success || resp.Result == nil {
		return unparsable(domain.SourceShyft, signature, fmt.Sprintf("upstream failure: %s", resp.Message))
	}

	action := resp.Result.SwapAction()
	if action == nil {
		return notASwap(domain.SourceShyft, signature, fetched.Raw, "no swap action")
	}

	ts := action.Info.TokensSwapped
	if ts.In == nil || ts.Out == nil || ts.In.TokenAddress == "" || ts.Out.TokenAddress == "" {
		return notASwap(domain.SourceShyft, signature, fetched.Raw, "incomplete swap")
	}
	if err := solana.ValidateAddress(action.Info.Swapper); err != nil {
		return unparsable(domain.SourceShyft, signature, fmt.Sprintf("swapper: %v", err))
	}
	if ts.In.Amount.IsNegative() || ts.Out.Amount.IsNegative() {
		return unparsable(domain.SourceShyft, signature, "negative amount")
	}

	blockTime, err := time.Parse(time.RFC3339, resp.Result.Timestamp)
	if err != nil {
		return unparsable(domain.SourceShyft, signature, fmt.Sprintf("timestamp: %v", err))
	}

	tx := &domain.Transaction{
		Signature:       signature,
		Account:         action.Info.Swapper,
		TokenInAddress:  ts.In.TokenAddress,
		TokenInAmount:   canonical(ts.In.Amount),
		TokenOutAddress: ts.Out.TokenAddress,
		TokenOutAmount:  canonical(ts.Out.Amount),
		Timestamp:       blockTime.Unix(),
	}
	if err := tx.Validate(); err != nil {
		return unparsable(domain.SourceShyft, signature, err.Error())
	}
	return swap(domain.SourceShyft, tx)
}
