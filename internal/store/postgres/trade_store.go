package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"snipebot/internal/domain"
)

// TradeStore persists the audit log of executed swaps.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Record inserts one executed trade. Re-inserting the same id is a no-op so
// delivery retries cannot duplicate rows.
func (s *TradeStore) Record(ctx context.Context, rec domain.TradeRecord) error {
	const query = `
		INSERT INTO snipe_trades (id, user_id, chain, contract_address, amount, tx_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.UserID, string(rec.Chain), rec.ContractAddress, rec.Amount, rec.Hash,
	)
	if err != nil {
		return fmt.Errorf("postgres: record trade: %w", err)
	}
	return nil
}

// ListByUser returns a user's executed trades, newest first.
func (s *TradeStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, user_id, chain, contract_address, amount, tx_hash, created_at
		FROM snipe_trades
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

func scanTradeRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var recs []domain.TradeRecord
	for rows.Next() {
		var (
			rec   domain.TradeRecord
			chain string
		)
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &chain, &rec.ContractAddress,
			&rec.Amount, &rec.Hash, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Chain = domain.Chain(chain)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
