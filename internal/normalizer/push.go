package normalizer

import (
	"errors"
	"fmt"

	"solana-wallet-monitor/internal/domain"
	"solana-wallet-monitor/internal/helius"
	"solana-wallet-monitor/internal/solana"
)

var errMissingLeg = errors.New("missing leg")

// NormalizePush converts a Helius enhanced transaction with a swap event.
// It performs no I/O.
//
// Each side prefers the native leg over the first token leg. A token leg
// without decimals, or any amount that is not a non-negative number, makes
// the whole record unparsable. A swap event with only one side present is
// not a swap.
func NormalizePush(et *helius.EnhancedTransaction) Result {
	if et == nil {
		return unparsable(domain.SourceHelius, "", "empty payload")
	}
	sig := et.Signature
	if et.Events == nil || et.Events.Swap == nil {
		return notASwap(domain.SourceHelius, sig, nil, "no swap event")
	}
	if et.FeePayer == "" {
		return unparsable(domain.SourceHelius, sig, "missing fee payer")
	}
	if err := solana.ValidateAddress(et.FeePayer); err != nil {
		return unparsable(domain.SourceHelius, sig, fmt.Sprintf("fee payer: %v", err))
	}

	ev := et.Events.Swap

	inAddr, inAmt, err := pushLeg(ev.NativeInput, ev.TokenInputs)
	inMissing := errors.Is(err, errMissingLeg)
	if err != nil && !inMissing {
		return unparsable(domain.SourceHelius, sig, fmt.Sprintf("input: %v", err))
	}

	outAddr, outAmt, err := pushLeg(ev.NativeOutput, ev.TokenOutputs)
	outMissing := errors.Is(err, errMissingLeg)
	if err != nil && !outMissing {
		return unparsable(domain.SourceHelius, sig, fmt.Sprintf("output: %v", err))
	}

	if inMissing || outMissing {
		return notASwap(domain.SourceHelius, sig, nil, "incomplete swap")
	}

	tx := &domain.Transaction{
		Signature:       sig,
		Account:         et.FeePayer,
		TokenInAddress:  inAddr,
		TokenInAmount:   inAmt,
		TokenOutAddress: outAddr,
		TokenOutAmount:  outAmt,
		Timestamp:       et.Timestamp,
		Description:     et.Description,
	}
	if err := tx.Validate(); err != nil {
		return unparsable(domain.SourceHelius, sig, err.Error())
	}
	return swap(domain.SourceHelius, tx)
}

// pushLeg resolves one side of a swap event to (mint, human amount).
func pushLeg(native *helius.NativeAmount, tokens []helius.TokenBalance) (string, string, error) {
	if native != nil && native.Amount != "" {
		amt, err := ScaleAmount(native.Amount.String(), domain.NativeDecimals)
		if err != nil {
			return "", "", fmt.Errorf("native amount: %w", err)
		}
		return domain.NativeMint, canonical(amt), nil
	}

	if len(tokens) == 0 {
		return "", "", errMissingLeg
	}

	leg := tokens[0]
	if err := solana.ValidateAddress(leg.Mint); err != nil {
		return "", "", fmt.Errorf("mint: %w", err)
	}
	if leg.RawTokenAmount == nil {
		return "", "", fmt.Errorf("mint %s: missing raw token amount", leg.Mint)
	}
	if leg.RawTokenAmount.Decimals == nil {
		return "", "", fmt.Errorf("mint %s: missing decimals", leg.Mint)
	}

	amt, err := ScaleAmount(leg.RawTokenAmount.TokenAmount.String(), *leg.RawTokenAmount.Decimals)
	if err != nil {
		return "", "", fmt.Errorf("mint %s: %w", leg.Mint, err)
	}
	return leg.Mint, canonical(amt), nil
}
