package token

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snipebot/internal/domain"
	"snipebot/internal/platform/ave"
)

type fakeSearcher struct {
	results map[string][]ave.TokenInfo
	err     error
	calls   int
}

func (f *fakeSearcher) SearchTokens(_ context.Context, keyword string, _ int) ([]ave.TokenInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results[keyword], nil
}

type fakeHot struct {
	entries map[string]domain.TokenMapping
	getErr  error
	sets    []domain.TokenMapping
}

func (f *fakeHot) Get(_ context.Context, symbol string) (domain.TokenMapping, error) {
	if f.getErr != nil {
		return domain.TokenMapping{}, f.getErr
	}
	m, ok := f.entries[symbol]
	if !ok {
		return domain.TokenMapping{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeHot) Set(_ context.Context, m domain.TokenMapping) error {
	f.sets = append(f.sets, m)
	return nil
}

func emptyCache(t *testing.T) *MappingCache {
	t.Helper()
	c, err := OpenMappingCache(filepath.Join(t.TempDir(), "mapping.csv"))
	require.NoError(t, err)
	return c
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolver_CacheHitSkipsRemote(t *testing.T) {
	cache := emptyCache(t)
	require.NoError(t, cache.Append("Pepe", "PEPE", "0x1111111111111111111111111111111111111111", "bsc"))
	searcher := &fakeSearcher{}
	r := NewResolver(cache, searcher, nil, discardLogger())

	resolved, ok, err := r.Resolve(context.Background(), "PEPE")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, resolved.Remote)
	assert.Equal(t, domain.ChainBSC, resolved.Chain)
	assert.Zero(t, searcher.calls)
}

func TestResolver_RemoteFallback(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]ave.TokenInfo{
		"BONK": {{Name: "Bonk", Symbol: "BONK", TokenID: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Chain: "solana"}},
	}}
	r := NewResolver(emptyCache(t), searcher, nil, discardLogger())

	resolved, ok, err := r.Resolve(context.Background(), "BONK")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, resolved.Remote)
	assert.Equal(t, domain.ChainSolana, resolved.Chain)
	assert.Equal(t, "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", resolved.ContractAddress)
}

func TestResolver_RemoteMissIsNotAnError(t *testing.T) {
	r := NewResolver(emptyCache(t), &fakeSearcher{}, nil, discardLogger())

	_, ok, err := r.Resolve(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_RemoteUnsupportedChainIsAMiss(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]ave.TokenInfo{
		"TRX": {{Name: "Tron Thing", TokenID: "T12345", Chain: "tron"}},
	}}
	r := NewResolver(emptyCache(t), searcher, nil, discardLogger())

	_, ok, err := r.Resolve(context.Background(), "TRX")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_RemoteFailureSurfaces(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("upstream 500")}
	r := NewResolver(emptyCache(t), searcher, nil, discardLogger())

	_, _, err := r.Resolve(context.Background(), "PEPE")
	assert.ErrorContains(t, err, "remote search")
}

func TestResolver_HotCacheShortCircuits(t *testing.T) {
	hot := &fakeHot{entries: map[string]domain.TokenMapping{
		"PEPE": {Name: "Pepe", Symbol: "PEPE", ContractAddress: "0x1111111111111111111111111111111111111111", Chain: domain.ChainBSC},
	}}
	searcher := &fakeSearcher{}
	r := NewResolver(emptyCache(t), searcher, hot, discardLogger())

	resolved, ok, err := r.Resolve(context.Background(), "PEPE")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, resolved.Remote)
	assert.Zero(t, searcher.calls)
}

func TestResolver_HotCacheErrorFallsThrough(t *testing.T) {
	cache := emptyCache(t)
	require.NoError(t, cache.Append("Pepe", "PEPE", "0x1111111111111111111111111111111111111111", "bsc"))
	hot := &fakeHot{getErr: errors.New("redis down")}
	r := NewResolver(cache, &fakeSearcher{}, hot, discardLogger())

	_, ok, err := r.Resolve(context.Background(), "PEPE")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolver_BackfillsHotCacheOnMiss(t *testing.T) {
	cache := emptyCache(t)
	require.NoError(t, cache.Append("Pepe", "PEPE", "0x1111111111111111111111111111111111111111", "bsc"))
	hot := &fakeHot{entries: map[string]domain.TokenMapping{}}
	r := NewResolver(cache, &fakeSearcher{}, hot, discardLogger())

	_, ok, err := r.Resolve(context.Background(), "PEPE")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, hot.sets, 1)
	assert.Equal(t, "PEPE", hot.sets[0].Symbol)
}

func TestResolver_PersistAppendsWithProviderLabel(t *testing.T) {
	cache := emptyCache(t)
	r := NewResolver(cache, &fakeSearcher{}, nil, discardLogger())

	require.NoError(t, r.Persist(context.Background(), domain.ResolvedToken{
		Name:            "Bonk",
		Symbol:          "BONK",
		ContractAddress: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
		Chain:           domain.ChainSolana,
		ChainLabel:      "sol",
		Remote:          true,
	}))

	m, found := cache.Lookup("BONK")
	require.True(t, found)
	assert.Equal(t, domain.ChainSolana, m.Chain)
	assert.True(t, r.Vocabulary()["BONK"])
}
