package domain

import "encoding/json"

// RawRecord is a fetched transaction body that did not describe a swap.
// It is stored as-is, tagged by signature, and never read by analytics.
// Corresponds to raw_txs table in PostgreSQL.
type RawRecord struct {
	Signature  string          // transaction signature
	Source     Source          // provider the body came from
	Body       json.RawMessage // upstream body, verbatim
	ReceivedAt int64           // unix seconds
}
