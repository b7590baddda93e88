package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"snipebot/internal/domain"
)

// tokenTTL bounds how long a resolved mapping stays hot. The CSV file is the
// durable source; Redis only saves the remote round trip on repeat symbols.
const tokenTTL = 24 * time.Hour

// TokenCache stores resolved ticker mappings as Redis hashes keyed by
// uppercase symbol. It is a read-through accelerator in front of the mapping
// file, never a source of truth.
type TokenCache struct {
	rdb *redis.Client
}

// NewTokenCache creates a TokenCache backed by the given Client.
func NewTokenCache(c *Client) *TokenCache {
	return &TokenCache{rdb: c.Underlying()}
}

func tokenKey(symbol string) string {
	return "token:" + strings.ToUpper(symbol)
}

// Set stores a resolved mapping for the symbol.
func (tc *TokenCache) Set(ctx context.Context, m domain.TokenMapping) error {
	key := tokenKey(m.Symbol)
	fields := map[string]interface{}{
		"name":   m.Name,
		"symbol": m.Symbol,
		"ca":     m.ContractAddress,
		"chain":  string(m.Chain),
	}
	pipe := tc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, tokenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set token %s: %w", m.Symbol, err)
	}
	return nil
}

// Get retrieves a cached mapping. It returns domain.ErrNotFound when the
// symbol is not cached.
func (tc *TokenCache) Get(ctx context.Context, symbol string) (domain.TokenMapping, error) {
	vals, err := tc.rdb.HGetAll(ctx, tokenKey(symbol)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.TokenMapping{}, domain.ErrNotFound
		}
		return domain.TokenMapping{}, fmt.Errorf("redis: get token %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return domain.TokenMapping{}, domain.ErrNotFound
	}

	chain, ok := domain.NormalizeChain(vals["chain"])
	if !ok {
		return domain.TokenMapping{}, domain.ErrNotFound
	}
	return domain.TokenMapping{
		Name:            vals["name"],
		Symbol:          vals["symbol"],
		ContractAddress: vals["ca"],
		Chain:           chain,
	}, nil
}
