package normalizer

import (
	"encoding/json"
	"fmt"

	"solana-wallet-monitor/internal/domain"
)

// Kind tags the outcome of normalizing one upstream record.
type Kind int

const (
	// KindSwap carries a complete canonical Transaction.
	KindSwap Kind = iota + 1
	// KindNotASwap carries the upstream body when it described something else.
	KindNotASwap
	// KindUnparsable means the record could not be interpreted at all.
	KindUnparsable
)

func (k Kind) String() string {
	switch k {
	case KindSwap:
		return "swap"
	case KindNotASwap:
		return "not_a_swap"
	case KindUnparsable:
		return "unparsable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the tagged outcome of a normalizer. Exactly one of Transaction
// (KindSwap) or Raw (KindNotASwap, optional) is set; Reason explains the
// non-swap kinds.
type Result struct {
	Kind        Kind
	Source      domain.Source
	Signature   string
	Transaction *domain.Transaction
	Raw         json.RawMessage
	Reason      string
}

func swap(src domain.Source, tx *domain.Transaction) Result {
	return Result{Kind: KindSwap, Source: src, Signature: tx.Signature, Transaction: tx}
}

func notASwap(src domain.Source, sig string, raw json.RawMessage, reason string) Result {
	return Result{Kind: KindNotASwap, Source: src, Signature: sig, Raw: raw, Reason: reason}
}

func unparsable(src domain.Source, sig, reason string) Result {
	return Result{Kind: KindUnparsable, Source: src, Signature: sig, Reason: reason}
}
