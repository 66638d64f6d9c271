package ingestion

import (
	"net/http"

	"solana-wallet-monitor/internal/domain"
)

// Status is the disposition of one ingested record.
type Status string

const (
	StatusStored  Status = "stored"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Skip reasons.
const (
	ReasonNoSwapData     = "no swap data"
	ReasonParseFailed    = "parse failed"
	ReasonIncompleteSwap = "incomplete swap"
	ReasonDuplicate      = "duplicate"
	ReasonRawStored      = "stored as raw record"
	ReasonUndecodable    = "undecodable payload"
)

// Outcome reports what happened to one record.
type Outcome struct {
	Status    Status
	Reason    string
	Signature string
	Parser    domain.Source // empty when no normalizer was selected
	Err       error         // set for StatusFailed
}

// HTTPStatus maps the outcome to a response code.
// Skips are acknowledged so the upstream does not redeliver them.
func (o Outcome) HTTPStatus() int {
	if o.Status == StatusFailed {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

// Worst returns the most severe outcome: failed over skipped over stored.
// An empty slice yields a skipped "no swap data" outcome.
func Worst(outcomes []Outcome) Outcome {
	if len(outcomes) == 0 {
		return Outcome{Status: StatusSkipped, Reason: ReasonNoSwapData}
	}
	worst := outcomes[0]
	for _, o := range outcomes[1:] {
		if severity(o.Status) > severity(worst.Status) {
			worst = o
		}
	}
	return worst
}

func severity(s Status) int {
	switch s {
	case StatusFailed:
		return 2
	case StatusSkipped:
		return 1
	default:
		return 0
	}
}
