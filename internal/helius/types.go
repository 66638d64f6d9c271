package helius

import "encoding/json"

// EnhancedTransaction is one element of a Helius enhanced webhook delivery.
// Only the fields used for swap normalization are decoded.
type EnhancedTransaction struct {
	Signature   string  `json:"signature"`
	FeePayer    string  `json:"feePayer"`
	Timestamp   int64   `json:"timestamp"` // unix seconds
	Description *string `json:"description"`
	Type        string  `json:"type"`
	Source      string  `json:"source"`
	Events      *Events `json:"events,omitempty"`
}

// Events groups typed events; only swap is used.
type Events struct {
	Swap *SwapEvent `json:"swap,omitempty"`
}

// SwapEvent describes both sides of a swap.
// Native legs are lamport amounts; token legs carry raw amounts and decimals.
type SwapEvent struct {
	NativeInput  *NativeAmount  `json:"nativeInput,omitempty"`
	NativeOutput *NativeAmount  `json:"nativeOutput,omitempty"`
	TokenInputs  []TokenBalance `json:"tokenInputs"`
	TokenOutputs []TokenBalance `json:"tokenOutputs"`
}

// NativeAmount is a SOL leg in lamports.
type NativeAmount struct {
	Account string      `json:"account"`
	Amount  json.Number `json:"amount"`
}

// TokenBalance is an SPL token leg.
type TokenBalance struct {
	UserAccount    string          `json:"userAccount"`
	TokenAccount   string          `json:"tokenAccount"`
	Mint           string          `json:"mint"`
	RawTokenAmount *RawTokenAmount `json:"rawTokenAmount,omitempty"`
}

// RawTokenAmount is an integer amount with its decimal exponent.
// Decimals is a pointer so a missing exponent is distinguishable from zero.
type RawTokenAmount struct {
	TokenAmount json.Number `json:"tokenAmount"`
	Decimals    *int32      `json:"decimals"`
}

// Envelope is the minimal view used to route a delivery to a normalizer.
type Envelope struct {
	Signature string `json:"signature"`
	Events    *struct {
		Swap json.RawMessage `json:"swap"`
	} `json:"events"`
}

// HasSwapEvent reports whether the delivery carries a non-null events.swap.
func (p *Envelope) HasSwapEvent() bool {
	if p.Events == nil || len(p.Events.Swap) == 0 {
		return false
	}
	return string(p.Events.Swap) != "null"
}
