package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the byte length of a Solana address.
const PublicKeyLength = 32

// DecodeAddress decodes a base58 address and checks its length.
func DecodeAddress(addr string) ([]byte, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty address")
	}
	b, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", addr, err)
	}
	if len(b) != PublicKeyLength {
		return nil, fmt.Errorf("address %q: want %d bytes, got %d", addr, PublicKeyLength, len(b))
	}
	return b, nil
}

// ValidateAddress reports whether addr is a well-formed Solana address.
func ValidateAddress(addr string) error {
	_, err := DecodeAddress(addr)
	return err
}

// IsOnCurve reports whether addr is a point on the ed25519 curve.
// Wallets controlled by a keypair are on-curve; program derived addresses are not.
func IsOnCurve(addr string) bool {
	b, err := DecodeAddress(addr)
	if err != nil {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(b)
	return err == nil
}
