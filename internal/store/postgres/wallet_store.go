package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"snipebot/internal/crypto"
	"snipebot/internal/domain"
)

// WalletStore implements domain.WalletStore using PostgreSQL. Stored key
// material is sealed with the master password; rows predating encryption may
// still hold plaintext keys and are returned as-is.
type WalletStore struct {
	pool           *pgxpool.Pool
	masterPassword string
}

// NewWalletStore creates a WalletStore backed by the given connection pool.
// masterPassword may be empty when keys are stored unencrypted.
func NewWalletStore(pool *pgxpool.Pool, masterPassword string) *WalletStore {
	return &WalletStore{pool: pool, masterPassword: masterPassword}
}

const walletSelectCols = `id, COALESCE(telegram_user_id, ''), evm_private_key, sol_private_key`

// LookupWallet finds the wallet for a user, trying the Telegram user id
// first and falling back to the wallet id. Returns domain.ErrNotFound when
// neither matches.
func (s *WalletStore) LookupWallet(ctx context.Context, userID string) (domain.Wallet, error) {
	w, err := s.queryOne(ctx,
		"SELECT "+walletSelectCols+" FROM user_wallets WHERE telegram_user_id = $1", userID)
	if errors.Is(err, pgx.ErrNoRows) {
		w, err = s.queryOne(ctx,
			"SELECT "+walletSelectCols+" FROM user_wallets WHERE id = $1", userID)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Wallet{}, fmt.Errorf("postgres: wallet for %q: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Wallet{}, fmt.Errorf("postgres: lookup wallet: %w", err)
	}

	if w.EVMPrivateKey, err = s.openKey(w.EVMPrivateKey); err != nil {
		return domain.Wallet{}, fmt.Errorf("postgres: wallet %s evm key: %w", w.ID, err)
	}
	if w.SolPrivateKey, err = s.openKey(w.SolPrivateKey); err != nil {
		return domain.Wallet{}, fmt.Errorf("postgres: wallet %s sol key: %w", w.ID, err)
	}
	return w, nil
}

// UpsertWallet inserts or replaces a wallet row, sealing the keys when a
// master password is configured.
func (s *WalletStore) UpsertWallet(ctx context.Context, w domain.Wallet) error {
	evmKey, err := s.sealKey(w.EVMPrivateKey)
	if err != nil {
		return fmt.Errorf("postgres: seal evm key: %w", err)
	}
	solKey, err := s.sealKey(w.SolPrivateKey)
	if err != nil {
		return fmt.Errorf("postgres: seal sol key: %w", err)
	}

	const query = `
		INSERT INTO user_wallets (id, telegram_user_id, evm_private_key, sol_private_key)
		VALUES ($1, NULLIF($2, ''), $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			telegram_user_id = EXCLUDED.telegram_user_id,
			evm_private_key = EXCLUDED.evm_private_key,
			sol_private_key = EXCLUDED.sol_private_key,
			updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, query, w.ID, w.TelegramUserID, evmKey, solKey); err != nil {
		return fmt.Errorf("postgres: upsert wallet: %w", err)
	}
	return nil
}

func (s *WalletStore) queryOne(ctx context.Context, query, arg string) (domain.Wallet, error) {
	var w domain.Wallet
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&w.ID, &w.TelegramUserID, &w.EVMPrivateKey, &w.SolPrivateKey,
	)
	return w, err
}

func (s *WalletStore) openKey(stored string) (string, error) {
	if stored == "" || !crypto.IsSealed([]byte(stored)) {
		return stored, nil
	}
	if s.masterPassword == "" {
		return "", errors.New("sealed key but no master password configured")
	}
	return crypto.DecryptSecret([]byte(stored), s.masterPassword)
}

func (s *WalletStore) sealKey(key string) (string, error) {
	if key == "" || s.masterPassword == "" {
		return key, nil
	}
	sealed, err := crypto.EncryptSecret(key, s.masterPassword)
	if err != nil {
		return "", err
	}
	return string(sealed), nil
}
