// Package domain defines the core types shared across the sniper bot:
// chains, extraction signals, token mappings, trade requests and results,
// and the closed failure-reason taxonomy.
package domain

import "strings"

// Chain identifies a supported blockchain.
type Chain string

const (
	ChainBSC    Chain = "bsc"
	ChainSolana Chain = "solana"
)

// NormalizeChain maps a provider-supplied chain label onto the closed Chain
// set. Labels outside the known aliases return ok=false; callers must treat
// that as "token not resolvable", not as an error.
func NormalizeChain(label string) (Chain, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "bsc", "binance-smart-chain":
		return ChainBSC, true
	case "sol", "solana":
		return ChainSolana, true
	default:
		return "", false
	}
}

// NativeSymbol returns the display symbol of the chain's native currency.
func (c Chain) NativeSymbol() string {
	if c == ChainBSC {
		return "BNB"
	}
	return "SOL"
}

// Label returns the human-readable chain name used in notifications.
func (c Chain) Label() string {
	if c == ChainBSC {
		return "BSC"
	}
	return "Solana"
}
