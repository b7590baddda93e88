package solana

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math/big"

	"snipebot/internal/domain"
	"snipebot/internal/platform/jupiter"
)

// SOLMint is the wrapped-SOL mint used as the input of every SOL -> token
// swap.
const SOLMint = "So11111111111111111111111111111111111111112"

var lamportsPerSOL = big.NewInt(1_000_000_000)

// Executor is the Solana chain executor. With an API key configured it
// attempts the Jupiter Ultra flow first and falls back to the public
// quote/swap flow on any Ultra failure; without a key it goes straight to
// the public flow.
type Executor struct {
	jup    *jupiter.Client
	rpc    *RPCClient
	logger *slog.Logger
}

// NewExecutor creates a Solana executor.
func NewExecutor(jup *jupiter.Client, rpc *RPCClient, logger *slog.Logger) *Executor {
	return &Executor{
		jup:    jup,
		rpc:    rpc,
		logger: logger.With(slog.String("component", "solana_executor")),
	}
}

// Chain returns the chain this executor trades on.
func (e *Executor) Chain() domain.Chain {
	return domain.ChainSolana
}

// Execute swaps req.Amount SOL for the token mint at req.ContractAddress and
// returns the transaction signature. The unsigned transaction material from
// either provider flow is signed locally before anything is transmitted.
func (e *Executor) Execute(ctx context.Context, req domain.TradeRequest) (domain.TradeResult, error) {
	if req.PrivateKey == "" {
		return domain.TradeResult{}, fmt.Errorf("solana: private key is required")
	}
	kp, err := ParseKeypair(req.PrivateKey)
	if err != nil {
		return domain.TradeResult{}, err
	}

	lamports, err := parseSOL(req.Amount)
	if err != nil {
		return domain.TradeResult{}, err
	}

	balanceBefore, balErr := e.rpc.GetBalance(ctx, kp.PublicKey())
	if balErr != nil {
		e.logger.WarnContext(ctx, "balance lookup failed", slog.String("error", balErr.Error()))
	}

	e.logger.InfoContext(ctx, "initiating swap",
		slog.String("taker", kp.PublicKey()),
		slog.String("mint", req.ContractAddress),
		slog.String("amount_sol", req.Amount),
		slog.String("lamports", lamports),
		slog.Int("slippage_bps", req.SlippageBps),
	)

	var signature string
	if e.jup.HasAPIKey() {
		signature, err = e.tradeUltra(ctx, req.ContractAddress, lamports, req.SlippageBps, kp)
		if err != nil {
			// Any Ultra failure (auth, permission, transport) falls back to
			// the public flow rather than propagating.
			e.logger.WarnContext(ctx, "ultra flow failed, falling back to public quote",
				slog.String("error", err.Error()),
			)
			signature, err = e.tradePublic(ctx, req.ContractAddress, lamports, req.SlippageBps, kp)
		}
	} else {
		signature, err = e.tradePublic(ctx, req.ContractAddress, lamports, req.SlippageBps, kp)
	}
	if err != nil {
		return domain.TradeResult{}, err
	}

	e.logSwapDiagnostics(ctx, kp.PublicKey(), signature, balanceBefore, balErr == nil)

	return domain.TradeResult{Hash: signature, Chain: domain.ChainSolana}, nil
}

// tradeUltra runs the authenticated order -> sign -> execute flow.
func (e *Executor) tradeUltra(ctx context.Context, outputMint, lamports string, slippageBps int, kp Keypair) (string, error) {
	order, err := e.jup.CreateUltraOrder(ctx, SOLMint, outputMint, lamports, kp.PublicKey(), slippageBps)
	if err != nil {
		return "", err
	}

	signedTx, err := signBase64Tx(order.Transaction, kp)
	if err != nil {
		return "", err
	}

	result, err := e.jup.ExecuteUltraOrder(ctx, signedTx, order.RequestID)
	if err != nil {
		return "", err
	}
	sig := result.TxSignature()

	if err := e.rpc.ConfirmTransaction(ctx, sig); err != nil {
		return "", err
	}
	e.logger.InfoContext(ctx, "ultra trade executed", slog.String("signature", sig))
	return sig, nil
}

// tradePublic runs the public quote -> swap -> sign -> broadcast flow.
func (e *Executor) tradePublic(ctx context.Context, outputMint, lamports string, slippageBps int, kp Keypair) (string, error) {
	quote, err := e.jup.GetQuote(ctx, SOLMint, outputMint, lamports, slippageBps)
	if err != nil {
		return "", err
	}

	unsignedTx, err := e.jup.BuildSwapTx(ctx, quote, kp.PublicKey())
	if err != nil {
		return "", err
	}

	signedTx, err := signBase64Tx(unsignedTx, kp)
	if err != nil {
		return "", err
	}

	sig, err := e.rpc.SendRawTransaction(ctx, signedTx)
	if err != nil {
		return "", err
	}
	e.logger.InfoContext(ctx, "trade sent, awaiting confirmation", slog.String("signature", sig))

	if err := e.rpc.ConfirmTransaction(ctx, sig); err != nil {
		return "", err
	}
	return sig, nil
}

// signBase64Tx deserializes a base64 transaction, signs it locally, and
// re-serializes it.
func signBase64Tx(txBase64 string, kp Keypair) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", fmt.Errorf("solana: decode transaction: %w", err)
	}
	signed, err := signTransaction(raw, kp)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(signed), nil
}

// logSwapDiagnostics reports the fee and native spend after a confirmed
// swap. Informational only; failures are swallowed.
func (e *Executor) logSwapDiagnostics(ctx context.Context, pubkey, signature string, balanceBefore uint64, haveBefore bool) {
	fields := []any{slog.String("signature", signature)}

	if fee, err := e.rpc.GetTransactionFee(ctx, signature); err == nil {
		fields = append(fields, slog.Uint64("fee_lamports", fee))
	}
	if haveBefore {
		if balanceAfter, err := e.rpc.GetBalance(ctx, pubkey); err == nil && balanceBefore >= balanceAfter {
			fields = append(fields, slog.Uint64("spent_lamports", balanceBefore-balanceAfter))
		}
	}
	e.logger.InfoContext(ctx, "swap confirmed", fields...)
}

// parseSOL converts a decimal SOL amount string to a lamport string.
func parseSOL(amount string) (string, error) {
	rat, ok := new(big.Rat).SetString(amount)
	if !ok || rat.Sign() <= 0 {
		return "", fmt.Errorf("solana: invalid SOL amount %q", amount)
	}
	lamports := new(big.Rat).Mul(rat, new(big.Rat).SetInt(lamportsPerSOL))
	return new(big.Int).Quo(lamports.Num(), lamports.Denom()).String(), nil
}
