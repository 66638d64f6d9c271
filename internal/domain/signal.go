package domain

// CohortSignal is emitted when a second distinct wallet buys a token inside
// the lookback window.
type CohortSignal struct {
	Token            string
	TriggerSignature string
	TriggerAccount   string
	TriggerTimestamp int64          // unix seconds
	DetectedAt       int64          // unix seconds
	Info             *TokenInfo     // nil when market data was unavailable
	Analysis         *TokenAnalysis // nil when analysis failed
}
