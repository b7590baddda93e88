package domain

// TokenMapping is one row of the token-mapping cache file: a ticker symbol
// resolved to a concrete tradable token. The file is append-only; nothing
// enforces symbol uniqueness, so lookups take the first row in file order.
type TokenMapping struct {
	Name            string
	Symbol          string
	ContractAddress string
	Chain           Chain
}

// ResolvedToken is the output of ticker resolution. Remote reports whether
// the mapping came from the remote search provider rather than the local
// cache; only remote-resolved tokens are persisted back to the cache, and
// only after a successful trade.
type ResolvedToken struct {
	Name            string
	Symbol          string
	ContractAddress string
	Chain           Chain
	ChainLabel      string // provider's raw label, kept for cache rows
	Remote          bool
}
