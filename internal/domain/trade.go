package domain

import "time"

// TradeRequest carries everything a chain executor needs for one swap
// attempt. Amount is a decimal string in the chain's native currency.
// Requests are constructed per attempt and never persisted.
type TradeRequest struct {
	Chain           Chain
	ContractAddress string
	Amount          string
	SlippageBps     int
	PrivateKey      string
}

// TradeResult is the successful outcome of a swap: the transaction hash (or
// signature on Solana) and the chain it landed on.
type TradeResult struct {
	Hash  string `json:"hash"`
	Chain Chain  `json:"chain"`
}

// TradeRecord is one executed swap in the audit log.
type TradeRecord struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Chain           Chain     `json:"chain"`
	ContractAddress string    `json:"contractAddress"`
	Amount          string    `json:"amount"`
	Hash            string    `json:"hash"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Reason is the closed taxonomy of trade-failure reasons surfaced to the
// caller. When no trade in a request succeeds, exactly one Reason is
// reported: the first one encountered, not the most severe.
type Reason string

const (
	ReasonNoCA               Reason = "no_ca"
	ReasonCANotFound         Reason = "ca_not_found"
	ReasonInsufficientUSDC   Reason = "insufficient_usdc"
	ReasonInsufficientSolGas Reason = "insufficient_sol_gas"
	ReasonTradeFailed        Reason = "trade_failed"
)
