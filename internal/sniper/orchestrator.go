// Package sniper contains the trade orchestrator: the entry point that
// turns one piece of social text into zero or more executed swaps. It
// sequences extraction, ticker resolution, chain selection, execution, and
// the success notification, and folds all per-ticker failures into a single
// first-encountered reason.
package sniper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"snipebot/internal/domain"
	"snipebot/internal/extract"
)

// defaultAmount is the fallback trade size when neither the request nor the
// configuration supplies a positive amount.
const defaultAmount = "0.001"

// ChainExecutor executes one swap attempt on its chain.
type ChainExecutor interface {
	Chain() domain.Chain
	Execute(ctx context.Context, req domain.TradeRequest) (domain.TradeResult, error)
}

// TokenResolver maps ticker symbols to tradable tokens and persists
// remote-resolved mappings after they prove tradable.
type TokenResolver interface {
	Resolve(ctx context.Context, symbol string) (domain.ResolvedToken, bool, error)
	Persist(ctx context.Context, t domain.ResolvedToken) error
	Vocabulary() map[string]bool
}

// TradeNotification describes one successful trade for the messaging
// collaborator.
type TradeNotification struct {
	UserID          string
	ContractAddress string
	Amount          string
	Hash            string
	Chain           domain.Chain
}

// TradeNotifier delivers trade-success messages. Delivery is best-effort;
// the orchestrator never lets a notifier failure affect a trade result.
type TradeNotifier interface {
	NotifyTrade(ctx context.Context, n TradeNotification) error
}

// Request is the inbound trade-trigger contract.
type Request struct {
	Text    string               `json:"text"`
	Amounts *domain.ChainAmounts `json:"amounts,omitempty"`
	Config  *domain.SniperConfig `json:"config"`
	UserID  string               `json:"userId"`
}

// Response is the aggregate outcome. Reason is set if and only if Trades is
// empty.
type Response struct {
	Trades          []domain.TradeResult `json:"trades"`
	Reason          domain.Reason        `json:"reason,omitempty"`
	DetectedCA      string               `json:"detectedCa,omitempty"`
	DetectedTickers []string             `json:"detectedTickers"`
}

// Orchestrator wires the extractor, resolver, chain executors, wallet store,
// and notifier into the snipe state machine.
type Orchestrator struct {
	resolver  TokenResolver
	executors map[domain.Chain]ChainExecutor
	wallets   domain.WalletStore
	notifier  TradeNotifier
	logger    *slog.Logger

	notifyRetries int
	notifyBackoff time.Duration
	notifyWG      sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator. notifier may be nil to disable
// notifications.
func NewOrchestrator(
	resolver TokenResolver,
	executors []ChainExecutor,
	wallets domain.WalletStore,
	notifier TradeNotifier,
	logger *slog.Logger,
) *Orchestrator {
	byChain := make(map[domain.Chain]ChainExecutor, len(executors))
	for _, ex := range executors {
		byChain[ex.Chain()] = ex
	}
	return &Orchestrator{
		resolver:      resolver,
		executors:     byChain,
		wallets:       wallets,
		notifier:      notifier,
		logger:        logger.With(slog.String("component", "orchestrator")),
		notifyRetries: 3,
		notifyBackoff: 2 * time.Second,
	}
}

// Snipe runs the full pipeline for one piece of text. Validation failures
// (missing fields, unknown wallet) return an error and short-circuit before
// any extraction or chain interaction; everything downstream is folded into
// the Response.
func (o *Orchestrator) Snipe(ctx context.Context, req Request) (Response, error) {
	// Validating.
	if strings.TrimSpace(req.Text) == "" || req.Config == nil || req.UserID == "" {
		return Response{}, fmt.Errorf("sniper: %w: text, config and userId are required", domain.ErrInvalidRequest)
	}
	wallet, err := o.wallets.LookupWallet(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Response{}, fmt.Errorf("sniper: %w: no wallet for user %s", domain.ErrUnauthorized, req.UserID)
		}
		return Response{}, fmt.Errorf("sniper: wallet lookup: %w", err)
	}

	logger := o.logger.With(slog.String("request_id", uuid.New().String()))

	// Extracting.
	cfg := req.Config
	slippageBps := parseSlippageBps(cfg.Slippage)
	amounts := effectiveAmounts(req.Amounts, cfg)

	signal := extract.Tickers(req.Text, o.resolver.Vocabulary())

	logger.InfoContext(ctx, "snipe request",
		slog.String("user_id", req.UserID),
		slog.String("chain_option", string(cfg.Chain)),
		slog.String("type", string(cfg.Type)),
		slog.Int("slippage_bps", slippageBps),
		slog.Bool("has_ca", signal.ContractAddress != ""),
		slog.Int("ticker_count", len(signal.Tickers)),
	)

	run := &snipeRun{
		orch:        o,
		logger:      logger,
		wallet:      wallet,
		userID:      req.UserID,
		config:      cfg,
		amounts:     amounts,
		slippageBps: slippageBps,
	}

	var resp Response
	if signal.ContractAddress != "" {
		resp = run.directCA(ctx, signal)
	} else {
		resp = run.tickerSweep(ctx, signal)
	}

	// Notifying: decoupled from the response path, with retry.
	o.dispatchNotifications(ctx, run.notifications)

	return resp, nil
}

// snipeRun carries the per-invocation state across the orchestration steps.
type snipeRun struct {
	orch        *Orchestrator
	logger      *slog.Logger
	wallet      domain.Wallet
	userID      string
	config      *domain.SniperConfig
	amounts     domain.ChainAmounts
	slippageBps int

	trades        []domain.TradeResult
	reason        domain.Reason
	notifications []TradeNotification
}

// recordReason keeps the first encountered failure reason. Later, possibly
// more specific classifications never override it.
func (r *snipeRun) recordReason(reason domain.Reason) {
	if r.reason == "" {
		r.reason = reason
	}
}

// directCA handles text containing a contract address: exactly one trade
// attempt, on the extractor's chain or the chain inferred from the address
// shape. Detected tickers still ride along in the response for the caller.
func (r *snipeRun) directCA(ctx context.Context, signal domain.TickerSignal) Response {
	if r.config.Type != domain.SniperTypeKeywords {
		chain := signal.Chain
		if chain == "" {
			if strings.HasPrefix(signal.ContractAddress, "0x") {
				chain = domain.ChainBSC
			} else {
				chain = domain.ChainSolana
			}
		}
		if ok, reason := r.attempt(ctx, chain, signal.ContractAddress); !ok {
			r.recordReason(reason)
		}
	}

	resp := Response{
		Trades:          r.tradesOrEmpty(),
		DetectedCA:      signal.ContractAddress,
		DetectedTickers: signal.Tickers,
	}
	if len(r.trades) == 0 {
		resp.Reason = r.reason
		if resp.Reason == "" {
			resp.Reason = domain.ReasonTradeFailed
		}
	}
	return resp
}

// tickerSweep iterates detected tickers strictly sequentially. Trades on the
// same chain share one signing key; in-order execution avoids nonce races. A
// failure for one ticker never aborts the sweep.
func (r *snipeRun) tickerSweep(ctx context.Context, signal domain.TickerSignal) Response {
	if !signal.HasTicker || len(signal.Tickers) == 0 || r.config.Type == domain.SniperTypeCA {
		return Response{
			Trades:          r.tradesOrEmpty(),
			Reason:          domain.ReasonNoCA,
			DetectedTickers: signal.Tickers,
		}
	}

	for _, symbol := range signal.Tickers {
		resolved, ok, err := r.orch.resolver.Resolve(ctx, symbol)
		if err != nil {
			r.logger.WarnContext(ctx, "ticker resolution failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
			r.recordReason(ClassifyTradeError(err))
			continue
		}
		if !ok {
			r.recordReason(domain.ReasonCANotFound)
			continue
		}

		ok, reason := r.attempt(ctx, resolved.Chain, resolved.ContractAddress)
		if !ok {
			r.recordReason(reason)
			continue
		}
		// Only remote-resolved mappings are new knowledge worth persisting,
		// and only now that the token proved tradable.
		if resolved.Remote {
			if err := r.orch.resolver.Persist(ctx, resolved); err != nil {
				r.logger.WarnContext(ctx, "persist token mapping failed",
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	resp := Response{
		Trades:          r.tradesOrEmpty(),
		DetectedTickers: signal.Tickers,
	}
	if len(r.trades) == 0 {
		resp.Reason = r.reason
		if resp.Reason == "" {
			resp.Reason = domain.ReasonCANotFound
		}
	}
	return resp
}

// attempt executes one trade on chain, honoring the configuration's chain
// restriction. On success the trade is appended and a notification queued;
// on failure the classified reason is returned for the caller to record.
func (r *snipeRun) attempt(ctx context.Context, chain domain.Chain, ca string) (bool, domain.Reason) {
	if !r.config.Chain.Allows(chain) {
		r.logger.DebugContext(ctx, "chain disallowed by configuration",
			slog.String("chain", string(chain)),
			slog.String("ca", ca),
		)
		return false, domain.ReasonTradeFailed
	}
	executor, ok := r.orch.executors[chain]
	if !ok {
		return false, domain.ReasonTradeFailed
	}

	amount := r.amountFor(chain)
	r.logger.InfoContext(ctx, "executing trade",
		slog.String("chain", string(chain)),
		slog.String("ca", ca),
		slog.String("amount", amount),
	)

	result, err := executor.Execute(ctx, domain.TradeRequest{
		Chain:           chain,
		ContractAddress: ca,
		Amount:          amount,
		SlippageBps:     r.slippageBps,
		PrivateKey:      r.keyFor(chain),
	})
	if err != nil {
		r.logger.WarnContext(ctx, "trade failed",
			slog.String("chain", string(chain)),
			slog.String("ca", ca),
			slog.String("error", err.Error()),
		)
		return false, ClassifyTradeError(err)
	}

	r.logger.InfoContext(ctx, "trade succeeded",
		slog.String("chain", string(chain)),
		slog.String("hash", result.Hash),
	)
	r.trades = append(r.trades, result)
	r.notifications = append(r.notifications, TradeNotification{
		UserID:          r.userID,
		ContractAddress: ca,
		Amount:          amount,
		Hash:            result.Hash,
		Chain:           chain,
	})
	return true, ""
}

func (r *snipeRun) amountFor(chain domain.Chain) string {
	if chain == domain.ChainBSC {
		return r.amounts.BSC
	}
	return r.amounts.Solana
}

func (r *snipeRun) keyFor(chain domain.Chain) string {
	if chain == domain.ChainBSC {
		return r.wallet.EVMPrivateKey
	}
	return r.wallet.SolPrivateKey
}

func (r *snipeRun) tradesOrEmpty() []domain.TradeResult {
	if r.trades == nil {
		return []domain.TradeResult{}
	}
	return r.trades
}

// dispatchNotifications delivers queued trade notifications on a detached
// context so a notifier outage can never block or fail the caller-visible
// response. Each delivery retries with a flat backoff.
func (o *Orchestrator) dispatchNotifications(ctx context.Context, notifications []TradeNotification) {
	if o.notifier == nil || len(notifications) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	o.notifyWG.Add(1)
	go func() {
		defer o.notifyWG.Done()
		for _, n := range notifications {
			var err error
			for attempt := 0; attempt < o.notifyRetries; attempt++ {
				if attempt > 0 {
					time.Sleep(o.notifyBackoff)
				}
				if err = o.notifier.NotifyTrade(detached, n); err == nil {
					break
				}
			}
			if err != nil {
				o.logger.Warn("trade notification failed",
					slog.String("user_id", n.UserID),
					slog.String("hash", n.Hash),
					slog.String("error", err.Error()),
				)
			}
		}
	}()
}

// Flush blocks until all queued notification deliveries have finished.
// Short-lived callers (the oneshot mode) use it so the process does not exit
// while confirmations are still in flight; the HTTP server never needs it.
func (o *Orchestrator) Flush() {
	o.notifyWG.Wait()
}

// parseSlippageBps converts a percentage string to basis points: default 100
// when unparseable, floor of 1.
func parseSlippageBps(value string) int {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 100
	}
	bps := int(math.Round(parsed * 100))
	if bps < 1 {
		return 1
	}
	return bps
}

// normalizeAmount returns value if it parses to a positive number, otherwise
// the default amount.
func normalizeAmount(value string) string {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed <= 0 {
		return defaultAmount
	}
	return value
}

// effectiveAmounts resolves the per-chain trade amounts: request overrides
// win over the configuration's per-chain amounts, which win over the legacy
// single amount field.
func effectiveAmounts(override *domain.ChainAmounts, cfg *domain.SniperConfig) domain.ChainAmounts {
	pick := func(fromReq, fromChain string) string {
		v := fromReq
		if v == "" {
			v = fromChain
		}
		if v == "" {
			v = cfg.Amount
		}
		return normalizeAmount(v)
	}
	var reqBSC, reqSol string
	if override != nil {
		reqBSC, reqSol = override.BSC, override.Solana
	}
	return domain.ChainAmounts{
		BSC:    pick(reqBSC, cfg.AmountByChain.BSC),
		Solana: pick(reqSol, cfg.AmountByChain.Solana),
	}
}
