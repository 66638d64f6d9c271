package domain

// UnknownWalletName is used when the registry has no name for an account.
const UnknownWalletName = "Unknown"

// Wallet is a watched wallet from the external registry.
// Corresponds to wallets table in PostgreSQL (read-only for this service).
type Wallet struct {
	Address string  // wallet public key
	Name    *string // display name (nullable)
}

// DisplayName returns the wallet name or UnknownWalletName.
func (w *Wallet) DisplayName() string {
	if w.Name == nil || *w.Name == "" {
		return UnknownWalletName
	}
	return *w.Name
}
