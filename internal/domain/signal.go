package domain

// CASignal is the result of contract-address detection over one input text.
// At most one address is captured: the first EVM-style match wins, and only
// when no EVM address exists does the first base58-like match count.
type CASignal struct {
	HasCA           bool
	ContractAddress string
	Chain           Chain // set only when HasCA is true
}

// TickerSignal is the result of the combined ticker + contract-address scan.
// Tickers are in first-appearance order, de-duplicated by uppercase form.
// The CA fields repeat the CASignal computed from the same pass so call
// sites need only one extraction.
type TickerSignal struct {
	HasTicker       bool
	Tickers         []string
	ContractAddress string
	Chain           Chain
}
