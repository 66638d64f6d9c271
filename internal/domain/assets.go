package domain

// Reference assets. A buy whose received token is one of these is never a
// cohort candidate.
const (
	NativeMint = "So11111111111111111111111111111111111111112"
	USDCMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	// NativeDecimals is the exponent applied to lamport amounts.
	NativeDecimals = 9
)

// IsReferenceAsset reports whether mint is SOL or USDC.
func IsReferenceAsset(mint string) bool {
	return mint == NativeMint || mint == USDCMint
}
