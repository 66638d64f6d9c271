package solana

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// TokenProgramID is the SPL Token program that owns classic mints.
const TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// Mint holds the fields of an SPL Token mint account needed for supply.
type Mint struct {
	Supply        uint64 // raw integer supply
	Decimals      uint8
	IsInitialized bool
}

// mintAccountLen is the fixed size of an SPL Token mint account.
const mintAccountLen = 82

// ParseMint decodes base64 SPL Token mint account data.
//
// Layout (82 bytes):
//   - mintAuthority: COption<Pubkey> (4 + 32)
//   - supply: u64 at offset 36
//   - decimals: u8 at offset 44
//   - isInitialized: bool at offset 45
//   - freezeAuthority: COption<Pubkey> (4 + 32)
//
// Token-2022 mints carry extensions after the base layout; only the base is read.
func ParseMint(data string) (*Mint, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode mint data: %w", err)
	}
	if len(decoded) < mintAccountLen {
		return nil, fmt.Errorf("mint data too short: %d", len(decoded))
	}

	return &Mint{
		Supply:        binary.LittleEndian.Uint64(decoded[36:44]),
		Decimals:      decoded[44],
		IsInitialized: decoded[45] == 1,
	}, nil
}
