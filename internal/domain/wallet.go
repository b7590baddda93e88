package domain

import "context"

// Wallet holds the signing keys provisioned for one user. Key material is
// decrypted on read and never written back by this core.
type Wallet struct {
	ID             string
	TelegramUserID string
	EVMPrivateKey  string
	SolPrivateKey  string
}

// WalletStore is the read-only wallet collaborator. Lookup tries the
// Telegram user id first and falls back to the wallet id, matching how
// callers address users.
type WalletStore interface {
	LookupWallet(ctx context.Context, userID string) (Wallet, error)
}
