package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"snipebot/internal/domain"
	"snipebot/internal/platform/ave"
)

// Searcher is the remote token-search provider used when the local cache has
// no row for a symbol.
type Searcher interface {
	SearchTokens(ctx context.Context, keyword string, limit int) ([]ave.TokenInfo, error)
}

// HotCache is an optional read-through cache consulted before the mapping
// file. A nil HotCache is valid; misses and errors fall through silently.
type HotCache interface {
	Get(ctx context.Context, symbol string) (domain.TokenMapping, error)
	Set(ctx context.Context, m domain.TokenMapping) error
}

// Resolver maps ticker symbols to concrete tokens. Lookup order: hot cache,
// mapping file, remote search with limit=1. Remote hits whose chain label
// does not normalize to a supported chain resolve to nothing.
type Resolver struct {
	cache    *MappingCache
	searcher Searcher
	hot      HotCache
	logger   *slog.Logger
}

// NewResolver creates a Resolver. hot may be nil.
func NewResolver(cache *MappingCache, searcher Searcher, hot HotCache, logger *slog.Logger) *Resolver {
	return &Resolver{
		cache:    cache,
		searcher: searcher,
		hot:      hot,
		logger:   logger.With(slog.String("component", "token_resolver")),
	}
}

// Resolve returns the token a symbol maps to, or ok=false when the symbol is
// unknown everywhere. Only provider failures are returned as errors; "no
// such token" is a normal miss.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (domain.ResolvedToken, bool, error) {
	if r.hot != nil {
		m, err := r.hot.Get(ctx, symbol)
		if err == nil {
			return resolvedFromMapping(m, false), true, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.WarnContext(ctx, "hot cache lookup failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}

	if m, ok := r.cache.Lookup(symbol); ok {
		r.backfillHot(ctx, m)
		return resolvedFromMapping(m, false), true, nil
	}

	infos, err := r.searcher.SearchTokens(ctx, symbol, 1)
	if err != nil {
		return domain.ResolvedToken{}, false, fmt.Errorf("token: remote search %q: %w", symbol, err)
	}
	if len(infos) == 0 {
		return domain.ResolvedToken{}, false, nil
	}

	info := infos[0]
	chain, ok := domain.NormalizeChain(info.Chain)
	if !ok {
		r.logger.DebugContext(ctx, "remote token on unsupported chain",
			slog.String("symbol", symbol),
			slog.String("chain", info.Chain),
		)
		return domain.ResolvedToken{}, false, nil
	}

	resolved := domain.ResolvedToken{
		Name:            info.Name,
		Symbol:          symbol,
		ContractAddress: info.TokenID,
		Chain:           chain,
		ChainLabel:      info.Chain,
		Remote:          true,
	}
	r.backfillHot(ctx, domain.TokenMapping{
		Name:            resolved.Name,
		Symbol:          resolved.Symbol,
		ContractAddress: resolved.ContractAddress,
		Chain:           resolved.Chain,
	})
	return resolved, true, nil
}

// Persist appends a remote-resolved mapping to the cache file. The
// orchestrator calls it only after the mapping led to a successful trade.
func (r *Resolver) Persist(ctx context.Context, t domain.ResolvedToken) error {
	label := t.ChainLabel
	if label == "" {
		label = string(t.Chain)
	}
	if err := r.cache.Append(t.Name, t.Symbol, t.ContractAddress, label); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "token mapping persisted",
		slog.String("symbol", t.Symbol),
		slog.String("ca", t.ContractAddress),
		slog.String("chain", label),
	)
	return nil
}

// Vocabulary returns the cache's symbol set for the extractor.
func (r *Resolver) Vocabulary() map[string]bool {
	return r.cache.Symbols()
}

func (r *Resolver) backfillHot(ctx context.Context, m domain.TokenMapping) {
	if r.hot == nil {
		return
	}
	if err := r.hot.Set(ctx, m); err != nil {
		r.logger.WarnContext(ctx, "hot cache backfill failed",
			slog.String("symbol", m.Symbol),
			slog.String("error", err.Error()),
		)
	}
}

func resolvedFromMapping(m domain.TokenMapping, remote bool) domain.ResolvedToken {
	return domain.ResolvedToken{
		Name:            m.Name,
		Symbol:          m.Symbol,
		ContractAddress: m.ContractAddress,
		Chain:           m.Chain,
		ChainLabel:      string(m.Chain),
		Remote:          remote,
	}
}
