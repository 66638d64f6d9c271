package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignalID computes a deterministic signal_id using SHA256.
// Formula: SHA256(token|trigger_signature)
// Returns hex-encoded hash (64 characters).
//
// A trigger transaction produces at most one signal per token, so every
// sink that sees the same signal derives the same ID.
func ComputeSignalID(token, triggerSignature string) string {
	data := fmt.Sprintf("%s|%s", token, triggerSignature)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
