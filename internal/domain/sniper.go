package domain

// ChainOption restricts which chains a sniper configuration may trade on.
type ChainOption string

const (
	ChainOptionBSC    ChainOption = "bsc"
	ChainOptionSolana ChainOption = "solana"
	ChainOptionBoth   ChainOption = "both"
)

// Allows reports whether a trade on chain is permitted by the option.
func (o ChainOption) Allows(chain Chain) bool {
	if o == ChainOptionBoth {
		return true
	}
	return string(o) == string(chain)
}

// SniperType selects which signal kinds trigger trades.
type SniperType string

const (
	SniperTypeCA       SniperType = "ca"
	SniperTypeKeywords SniperType = "keywords"
	SniperTypeBoth     SniperType = "both"
)

// ChainAmounts holds per-chain trade amounts as decimal strings in the
// chain's native currency.
type ChainAmounts struct {
	BSC    string `json:"bsc,omitempty"`
	Solana string `json:"solana,omitempty"`
}

// SniperConfig is the caller-owned sniper configuration. The orchestrator
// treats it as read-only: it restricts chains and signal types, and supplies
// amount and slippage defaults.
type SniperConfig struct {
	Accounts      []string     `json:"accounts"`
	Chain         ChainOption  `json:"chain"`
	Type          SniperType   `json:"type"`
	Amount        string       `json:"amount,omitempty"`
	AmountByChain ChainAmounts `json:"amountByChain"`
	Slippage      string       `json:"slippage"` // percent, e.g. "1" = 1% = 100 bps
	GasFee        string       `json:"gasFee"`
	UpdatedAt     string       `json:"updatedAt"`
}
