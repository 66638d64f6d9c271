package shyft

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Response is the envelope of GET /transaction/parsed.
type Response struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Result  *ParsedTransaction `json:"result"`
}

// ParsedTransaction is Shyft's parsed view of one transaction.
type ParsedTransaction struct {
	Timestamp  string   `json:"timestamp"` // RFC3339
	Fee        float64  `json:"fee"`
	FeePayer   string   `json:"fee_payer"`
	Signers    []string `json:"signers"`
	Signatures []string `json:"signatures"`
	Type       string   `json:"type"`
	Status     string   `json:"status"`
	Actions    []Action `json:"actions"`
}

// Action is one parsed instruction-level action.
type Action struct {
	Type           string     `json:"type"`
	SourceProtocol *Protocol  `json:"source_protocol,omitempty"`
	Info           ActionInfo `json:"info"`
}

// Protocol identifies the program that produced an action.
type Protocol struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// ActionInfo holds the fields used for swaps. Other action kinds leave them empty.
type ActionInfo struct {
	Swapper       string         `json:"swapper"`
	TokensSwapped *TokensSwapped `json:"tokens_swapped,omitempty"`
}

// TokensSwapped describes both legs of a swap, already human-scaled.
type TokensSwapped struct {
	In  *SwapLeg `json:"in"`
	Out *SwapLeg `json:"out"`
}

// SwapLeg is one side of a swap.
type SwapLeg struct {
	TokenAddress string          `json:"token_address"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	Amount       decimal.Decimal `json:"amount"`
	AmountRaw    json.Number     `json:"amount_raw"`
}

// Fetched pairs the decoded response with the verbatim body.
type Fetched struct {
	Response *Response
	Raw      json.RawMessage
}

// SwapAction returns the first action carrying tokens_swapped, or nil.
func (p *ParsedTransaction) SwapAction() *Action {
	if p == nil {
		return nil
	}
	for i := range p.Actions {
		if p.Actions[i].Info.TokensSwapped != nil {
			return &p.Actions[i]
		}
	}
	return nil
}
