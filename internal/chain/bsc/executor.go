// Package bsc executes swaps on BNB Smart Chain: the swap transaction is
// built by the Ave aggregator, then signed locally and broadcast straight to
// a node RPC endpoint. The aggregator's own relay is not used; it has been
// unreliable at parsing signed transactions.
package bsc

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"snipebot/internal/domain"
	"snipebot/internal/platform/ave"
)

const (
	// ChainID is the BNB Smart Chain mainnet chain id.
	ChainID = 56

	// BNBPseudoAddress is the native-currency placeholder the Ave API expects
	// as the input token of a BNB -> token swap.
	BNBPseudoAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

	// DefaultRouterAddress is the known Ave router on BSC, used when the
	// create-tx response omits the target address (which it usually does).
	DefaultRouterAddress = "0x4eadd85e7a6bb368eb1e3fb22b56ecac79e9058f"

	// DefaultRPCURL is the public BSC data-seed endpoint.
	DefaultRPCURL = "https://bsc-dataseed.binance.org/"

	receiptPollInterval = 2 * time.Second
)

// minGasPrice is the 3 gwei floor. BSC nodes reject transactions below it
// even when fee estimation suggests less.
var minGasPrice = big.NewInt(3_000_000_000)

// balanceOfSelector is the 4-byte selector of ERC-20 balanceOf(address),
// used for informational token-balance deltas around a swap.
var balanceOfSelector = common.Hex2Bytes("70a08231")

// TxBuilder is the aggregator interface that assembles swap call data.
type TxBuilder interface {
	CreateEvmTx(ctx context.Context, in ave.CreateEvmTxRequest) (ave.CreateEvmTxData, error)
}

// Executor is the EVM chain executor for BSC.
type Executor struct {
	client  *ethclient.Client
	builder TxBuilder
	router  common.Address
	logger  *slog.Logger
}

// NewExecutor creates an Executor against the given node RPC endpoint.
// routerAddress may be empty to use the default Ave router.
func NewExecutor(rpcURL string, builder TxBuilder, routerAddress string, logger *slog.Logger) (*Executor, error) {
	if rpcURL == "" {
		rpcURL = DefaultRPCURL
	}
	if routerAddress == "" {
		routerAddress = DefaultRouterAddress
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("bsc: dial rpc %s: %w", rpcURL, err)
	}
	return &Executor{
		client:  client,
		builder: builder,
		router:  common.HexToAddress(routerAddress),
		logger:  logger.With(slog.String("component", "bsc_executor")),
	}, nil
}

// Close releases the underlying RPC connection.
func (e *Executor) Close() {
	e.client.Close()
}

// Chain returns the chain this executor trades on.
func (e *Executor) Chain() domain.Chain {
	return domain.ChainBSC
}

// Execute swaps req.Amount BNB for the token at req.ContractAddress and
// returns the mined transaction hash. Signing happens locally; the private
// key never leaves this method.
func (e *Executor) Execute(ctx context.Context, req domain.TradeRequest) (domain.TradeResult, error) {
	if req.PrivateKey == "" {
		return domain.TradeResult{}, fmt.Errorf("bsc: private key is required")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(req.PrivateKey, "0x"))
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("bsc: invalid private key: %w", err)
	}
	sender := crypto.PubkeyToAddress(key.PublicKey)
	tokenAddr := common.HexToAddress(req.ContractAddress)

	amountWei, err := parseBNB(req.Amount)
	if err != nil {
		return domain.TradeResult{}, err
	}

	balanceBefore, err := e.client.BalanceAt(ctx, sender, nil)
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("bsc: fetch balance: %w", err)
	}
	if balanceBefore.Cmp(amountWei) < 0 {
		return domain.TradeResult{}, fmt.Errorf(
			"bsc: insufficient funds: balance %s wei, required %s BNB",
			balanceBefore.String(), req.Amount,
		)
	}
	tokenBefore := e.tokenBalance(ctx, tokenAddr, sender)

	e.logger.InfoContext(ctx, "initiating swap",
		slog.String("sender", sender.Hex()),
		slog.String("token", tokenAddr.Hex()),
		slog.String("amount_bnb", req.Amount),
		slog.Int("slippage_bps", req.SlippageBps),
	)

	txData, err := e.builder.CreateEvmTx(ctx, ave.CreateEvmTxRequest{
		Chain:           string(domain.ChainBSC),
		CreatorAddress:  sender.Hex(),
		InAmount:        amountWei.String(),
		InTokenAddress:  BNBPseudoAddress,
		OutTokenAddress: req.ContractAddress,
		SwapType:        "buy",
		Slippage:        fmt.Sprintf("%d", req.SlippageBps),
	})
	if err != nil {
		return domain.TradeResult{}, err
	}

	callData, to, gasLimit, err := e.resolveTxMaterial(txData)
	if err != nil {
		return domain.TradeResult{}, err
	}

	nonce, err := e.client.PendingNonceAt(ctx, sender)
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("bsc: fetch nonce: %w", err)
	}
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("bsc: suggest gas price: %w", err)
	}
	gasPrice = floorGasPrice(gasPrice)

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    amountWei,
		Data:     callData,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(ChainID)), key)
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("bsc: %w: %v", domain.ErrSigningFailed, err)
	}

	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return domain.TradeResult{}, fmt.Errorf("bsc: broadcast transaction: %w", err)
	}
	hash := signed.Hash()

	e.logger.InfoContext(ctx, "trade sent, waiting for receipt",
		slog.String("hash", hash.Hex()),
		slog.Uint64("nonce", nonce),
		slog.String("gas_price", gasPrice.String()),
	)

	receipt, err := e.waitMined(ctx, hash)
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("bsc: await receipt %s: %w", hash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		e.logger.WarnContext(ctx, "transaction mined with failed status",
			slog.String("hash", hash.Hex()),
		)
	}

	e.logSwapDiagnostics(ctx, sender, tokenAddr, amountWei, balanceBefore, tokenBefore)

	return domain.TradeResult{Hash: hash.Hex(), Chain: domain.ChainBSC}, nil
}

// resolveTxMaterial normalizes the aggregator response quirks: call data may
// arrive under either field name, the router falls back to the hardcoded
// address, and a 0x prefix is ensured.
func (e *Executor) resolveTxMaterial(txData ave.CreateEvmTxData) ([]byte, common.Address, uint64, error) {
	content := txData.TxContent
	if content == "" {
		content = txData.TxContext
	}
	if content == "" {
		return nil, common.Address{}, 0, fmt.Errorf("bsc: create-tx response is missing transaction call data")
	}
	content = strings.TrimPrefix(content, "0x")
	callData := common.FromHex("0x" + content)

	toHex := txData.ToAddress
	if toHex == "" {
		toHex = txData.To
	}
	to := e.router
	if toHex != "" {
		to = common.HexToAddress(toHex)
	}

	gasLimit := new(big.Int)
	if _, ok := gasLimit.SetString(txData.GasLimit, 10); !ok {
		return nil, common.Address{}, 0, fmt.Errorf("bsc: invalid gas limit %q", txData.GasLimit)
	}
	return callData, to, gasLimit.Uint64(), nil
}

// waitMined polls for a receipt until the context expires.
func (e *Executor) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	for {
		receipt, err := e.client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if err != ethereum.NotFound {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(receiptPollInterval):
		}
	}
}

// logSwapDiagnostics computes the native-spend overhead and token delta after
// a swap. Purely informational; every failure here is swallowed.
func (e *Executor) logSwapDiagnostics(
	ctx context.Context,
	sender, tokenAddr common.Address,
	amountWei, balanceBefore, tokenBefore *big.Int,
) {
	balanceAfter, err := e.client.BalanceAt(ctx, sender, nil)
	if err != nil {
		return
	}
	spent := new(big.Int).Sub(balanceBefore, balanceAfter)
	overhead := new(big.Int).Sub(spent, amountWei)
	if overhead.Sign() < 0 {
		overhead.SetInt64(0)
	}

	fields := []any{
		slog.String("spent_wei", spent.String()),
		slog.String("overhead_wei", overhead.String()),
	}
	if tokenAfter := e.tokenBalance(ctx, tokenAddr, sender); tokenAfter != nil && tokenBefore != nil {
		gained := new(big.Int).Sub(tokenAfter, tokenBefore)
		fields = append(fields, slog.String("token_gained", gained.String()))
		if gained.Sign() <= 0 {
			e.logger.WarnContext(ctx, "token balance did not increase after swap", fields...)
			return
		}
	}
	e.logger.InfoContext(ctx, "swap verified", fields...)
}

// tokenBalance calls ERC-20 balanceOf. Returns nil on any failure.
func (e *Executor) tokenBalance(ctx context.Context, token, owner common.Address) *big.Int {
	data := make([]byte, 0, 36)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)

	out, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil || len(out) == 0 {
		return nil
	}
	return new(big.Int).SetBytes(out)
}

// floorGasPrice raises a suggested gas price to the 3 gwei network minimum.
func floorGasPrice(suggested *big.Int) *big.Int {
	if suggested.Cmp(minGasPrice) < 0 {
		return new(big.Int).Set(minGasPrice)
	}
	return suggested
}

// parseBNB converts a decimal BNB amount string to wei.
func parseBNB(amount string) (*big.Int, error) {
	rat, ok := new(big.Rat).SetString(amount)
	if !ok || rat.Sign() <= 0 {
		return nil, fmt.Errorf("bsc: invalid BNB amount %q", amount)
	}
	wei := new(big.Rat).Mul(rat, new(big.Rat).SetInt(big.NewInt(1e18)))
	if !wei.IsInt() {
		// Truncate sub-wei precision.
		return new(big.Int).Quo(wei.Num(), wei.Denom()), nil
	}
	return wei.Num(), nil
}
