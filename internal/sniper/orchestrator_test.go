package sniper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snipebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type resolveOutcome struct {
	token domain.ResolvedToken
	ok    bool
	err   error
}

type fakeResolver struct {
	outcomes  map[string]resolveOutcome
	persisted []domain.ResolvedToken
	vocab     map[string]bool
}

func (f *fakeResolver) Resolve(_ context.Context, symbol string) (domain.ResolvedToken, bool, error) {
	out := f.outcomes[symbol]
	return out.token, out.ok, out.err
}

func (f *fakeResolver) Persist(_ context.Context, t domain.ResolvedToken) error {
	f.persisted = append(f.persisted, t)
	return nil
}

func (f *fakeResolver) Vocabulary() map[string]bool {
	return f.vocab
}

type fakeExecutor struct {
	chain    domain.Chain
	err      error
	hash     string
	executed []domain.TradeRequest
}

func (f *fakeExecutor) Chain() domain.Chain { return f.chain }

func (f *fakeExecutor) Execute(_ context.Context, req domain.TradeRequest) (domain.TradeResult, error) {
	f.executed = append(f.executed, req)
	if f.err != nil {
		return domain.TradeResult{}, f.err
	}
	return domain.TradeResult{Hash: f.hash, Chain: f.chain}, nil
}

type fakeWallets struct {
	wallet domain.Wallet
	err    error
}

func (f fakeWallets) LookupWallet(context.Context, string) (domain.Wallet, error) {
	if f.err != nil {
		return domain.Wallet{}, f.err
	}
	return f.wallet, nil
}

type fakeNotifier struct {
	ch chan TradeNotification
}

func (f *fakeNotifier) NotifyTrade(_ context.Context, n TradeNotification) error {
	f.ch <- n
	return nil
}

func testWallet() domain.Wallet {
	return domain.Wallet{
		ID:            "w1",
		EVMPrivateKey: "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
		SolPrivateKey: "0x112233445566778899aabbccddeeff00112233445566778899aabbccddeeff00",
	}
}

func testConfig() *domain.SniperConfig {
	return &domain.SniperConfig{
		Chain:    domain.ChainOptionBoth,
		Type:     domain.SniperTypeBoth,
		Amount:   "0.5",
		Slippage: "1",
	}
}

func newTestOrchestrator(resolver TokenResolver, executors []ChainExecutor, wallets domain.WalletStore, notifier TradeNotifier) *Orchestrator {
	o := NewOrchestrator(resolver, executors, wallets, notifier, testLogger())
	o.notifyBackoff = time.Millisecond
	return o
}

const testEVMAddr = "0x7130d2a12b9bcbfae4f2634d864a1ee1ce3ead9c"

func TestSnipe_RejectsIncompleteRequest(t *testing.T) {
	o := newTestOrchestrator(&fakeResolver{}, nil, fakeWallets{wallet: testWallet()}, nil)

	for _, req := range []Request{
		{Config: testConfig(), UserID: "u1"},                  // no text
		{Text: "$PEPE", UserID: "u1"},                         // no config
		{Text: "$PEPE", Config: testConfig()},                 // no user
		{Text: "   ", Config: testConfig(), UserID: "u1"},     // blank text
	} {
		_, err := o.Snipe(context.Background(), req)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	}
}

func TestSnipe_UnknownWalletIsUnauthorized(t *testing.T) {
	o := newTestOrchestrator(&fakeResolver{}, nil, fakeWallets{err: domain.ErrNotFound}, nil)

	_, err := o.Snipe(context.Background(), Request{
		Text: "$PEPE", Config: testConfig(), UserID: "ghost",
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSnipe_CAOnlyTypeWithNoCAReportsNoCA(t *testing.T) {
	cfg := testConfig()
	cfg.Type = domain.SniperTypeCA
	o := newTestOrchestrator(&fakeResolver{}, nil, fakeWallets{wallet: testWallet()}, nil)

	resp, err := o.Snipe(context.Background(), Request{
		Text: "$PEPE and $DOGE look strong", Config: cfg, UserID: "u1",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Trades)
	assert.Equal(t, domain.ReasonNoCA, resp.Reason)
	assert.Equal(t, []string{"PEPE", "DOGE"}, resp.DetectedTickers)
}

func TestSnipe_DirectCAExecutesOnce(t *testing.T) {
	bscExec := &fakeExecutor{chain: domain.ChainBSC, hash: "0xabc"}
	o := newTestOrchestrator(&fakeResolver{}, []ChainExecutor{bscExec}, fakeWallets{wallet: testWallet()}, nil)

	resp, err := o.Snipe(context.Background(), Request{
		Text: "ape " + testEVMAddr, Config: testConfig(), UserID: "u1",
	})
	require.NoError(t, err)
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, "0xabc", resp.Trades[0].Hash)
	assert.Empty(t, resp.Reason)
	assert.Equal(t, testEVMAddr, resp.DetectedCA)

	require.Len(t, bscExec.executed, 1)
	req := bscExec.executed[0]
	assert.Equal(t, testEVMAddr, req.ContractAddress)
	assert.Equal(t, "0.5", req.Amount)
	assert.Equal(t, 100, req.SlippageBps)
	assert.Equal(t, testWallet().EVMPrivateKey, req.PrivateKey)
}

func TestSnipe_KeywordsTypeSkipsDirectCA(t *testing.T) {
	cfg := testConfig()
	cfg.Type = domain.SniperTypeKeywords
	bscExec := &fakeExecutor{chain: domain.ChainBSC, hash: "0xabc"}
	o := newTestOrchestrator(&fakeResolver{}, []ChainExecutor{bscExec}, fakeWallets{wallet: testWallet()}, nil)

	resp, err := o.Snipe(context.Background(), Request{
		Text: "ape " + testEVMAddr, Config: cfg, UserID: "u1",
	})
	require.NoError(t, err)
	assert.Empty(t, bscExec.executed)
	assert.Empty(t, resp.Trades)
	assert.Equal(t, domain.ReasonTradeFailed, resp.Reason)
}

func TestSnipe_SuccessSuppressesEarlierFailureReasons(t *testing.T) {
	resolver := &fakeResolver{outcomes: map[string]resolveOutcome{
		"AAA": {ok: false}, // unknown everywhere -> ca_not_found
		"BBB": {ok: true, token: domain.ResolvedToken{
			Symbol: "BBB", ContractAddress: testEVMAddr, Chain: domain.ChainBSC,
		}},
		"CCC": {ok: true, token: domain.ResolvedToken{
			Symbol: "CCC", ContractAddress: "0x9f8a3b1c1d2e3f4a5b6c7d8e9f0a1b2c3d4e5f6a", Chain: domain.ChainBSC,
		}},
	}}
	execErrs := map[string]error{
		testEVMAddr: errors.New("insufficient usdc balance"),
	}
	bscExec := &selectiveExecutor{chain: domain.ChainBSC, errs: execErrs, hash: "0xccc"}
	o := newTestOrchestrator(resolver, []ChainExecutor{bscExec}, fakeWallets{wallet: testWallet()}, nil)

	resp, err := o.Snipe(context.Background(), Request{
		Text: "$AAA then $BBB then $CCC", Config: testConfig(), UserID: "u1",
	})
	require.NoError(t, err)
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, "0xccc", resp.Trades[0].Hash)
	assert.Empty(t, resp.Reason)
}

func TestSnipe_FirstFailureReasonWins(t *testing.T) {
	resolver := &fakeResolver{outcomes: map[string]resolveOutcome{
		"AAA": {ok: false},
		"BBB": {ok: true, token: domain.ResolvedToken{
			Symbol: "BBB", ContractAddress: testEVMAddr, Chain: domain.ChainBSC,
		}},
	}}
	bscExec := &fakeExecutor{chain: domain.ChainBSC, err: errors.New("insufficient usdc balance")}
	o := newTestOrchestrator(resolver, []ChainExecutor{bscExec}, fakeWallets{wallet: testWallet()}, nil)

	resp, err := o.Snipe(context.Background(), Request{
		Text: "$AAA then $BBB", Config: testConfig(), UserID: "u1",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Trades)
	// ca_not_found was recorded first; the later insufficient_usdc must not
	// override it.
	assert.Equal(t, domain.ReasonCANotFound, resp.Reason)
}

func TestSnipe_PersistOnlyRemoteResolvedAfterSuccess(t *testing.T) {
	resolver := &fakeResolver{outcomes: map[string]resolveOutcome{
		"AAA": {ok: true, token: domain.ResolvedToken{
			Symbol: "AAA", ContractAddress: testEVMAddr, Chain: domain.ChainBSC, Remote: true,
		}},
		"BBB": {ok: true, token: domain.ResolvedToken{
			Symbol: "BBB", ContractAddress: "0x9f8a3b1c1d2e3f4a5b6c7d8e9f0a1b2c3d4e5f6a", Chain: domain.ChainBSC,
		}},
	}}
	bscExec := &fakeExecutor{chain: domain.ChainBSC, hash: "0xok"}
	o := newTestOrchestrator(resolver, []ChainExecutor{bscExec}, fakeWallets{wallet: testWallet()}, nil)

	resp, err := o.Snipe(context.Background(), Request{
		Text: "$AAA and $BBB", Config: testConfig(), UserID: "u1",
	})
	require.NoError(t, err)
	assert.Len(t, resp.Trades, 2)
	require.Len(t, resolver.persisted, 1)
	assert.Equal(t, "AAA", resolver.persisted[0].Symbol)
}

func TestSnipe_NoPersistWhenTradeFails(t *testing.T) {
	resolver := &fakeResolver{outcomes: map[string]resolveOutcome{
		"AAA": {ok: true, token: domain.ResolvedToken{
			Symbol: "AAA", ContractAddress: testEVMAddr, Chain: domain.ChainBSC, Remote: true,
		}},
	}}
	bscExec := &fakeExecutor{chain: domain.ChainBSC, err: errors.New("timeout")}
	o := newTestOrchestrator(resolver, []ChainExecutor{bscExec}, fakeWallets{wallet: testWallet()}, nil)

	resp, err := o.Snipe(context.Background(), Request{
		Text: "$AAA", Config: testConfig(), UserID: "u1",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Trades)
	assert.Equal(t, domain.ReasonTradeFailed, resp.Reason)
	assert.Empty(t, resolver.persisted)
}

func TestSnipe_ChainRestrictionBlocksTrade(t *testing.T) {
	cfg := testConfig()
	cfg.Chain = domain.ChainOptionBSC
	resolver := &fakeResolver{outcomes: map[string]resolveOutcome{
		"AAA": {ok: true, token: domain.ResolvedToken{
			Symbol: "AAA", ContractAddress: "SoMint1111111111111111111111111111111111111", Chain: domain.ChainSolana,
		}},
	}}
	solExec := &fakeExecutor{chain: domain.ChainSolana, hash: "sig"}
	o := newTestOrchestrator(resolver, []ChainExecutor{solExec}, fakeWallets{wallet: testWallet()}, nil)

	resp, err := o.Snipe(context.Background(), Request{
		Text: "$AAA", Config: cfg, UserID: "u1",
	})
	require.NoError(t, err)
	assert.Empty(t, solExec.executed)
	assert.Empty(t, resp.Trades)
	assert.Equal(t, domain.ReasonTradeFailed, resp.Reason)
}

func TestSnipe_NotifiesAfterSuccess(t *testing.T) {
	notifier := &fakeNotifier{ch: make(chan TradeNotification, 1)}
	bscExec := &fakeExecutor{chain: domain.ChainBSC, hash: "0xabc"}
	o := newTestOrchestrator(&fakeResolver{}, []ChainExecutor{bscExec}, fakeWallets{wallet: testWallet()}, notifier)

	_, err := o.Snipe(context.Background(), Request{
		Text: "ape " + testEVMAddr, Config: testConfig(), UserID: "u1",
	})
	require.NoError(t, err)

	select {
	case n := <-notifier.ch:
		assert.Equal(t, "u1", n.UserID)
		assert.Equal(t, testEVMAddr, n.ContractAddress)
		assert.Equal(t, "0xabc", n.Hash)
		assert.Equal(t, domain.ChainBSC, n.Chain)
	case <-time.After(time.Second):
		t.Fatal("notification never delivered")
	}
}

func TestFlush_WaitsForNotificationDelivery(t *testing.T) {
	notifier := &slowNotifier{delay: 20 * time.Millisecond}
	bscExec := &fakeExecutor{chain: domain.ChainBSC, hash: "0xabc"}
	o := newTestOrchestrator(&fakeResolver{}, []ChainExecutor{bscExec}, fakeWallets{wallet: testWallet()}, notifier)

	_, err := o.Snipe(context.Background(), Request{
		Text: "ape " + testEVMAddr, Config: testConfig(), UserID: "u1",
	})
	require.NoError(t, err)

	// Without synchronization the delivery would still be in flight here.
	o.Flush()
	assert.Equal(t, 1, notifier.deliveredCount())
}

// slowNotifier simulates a delivery that outlives the Snipe call.
type slowNotifier struct {
	delay time.Duration

	mu        sync.Mutex
	delivered []TradeNotification
}

func (s *slowNotifier) NotifyTrade(_ context.Context, n TradeNotification) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, n)
	return nil
}

func (s *slowNotifier) deliveredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

func TestSnipe_AmountPrecedence(t *testing.T) {
	cfg := testConfig()
	cfg.Amount = "0.1"
	cfg.AmountByChain = domain.ChainAmounts{BSC: "0.2"}
	bscExec := &fakeExecutor{chain: domain.ChainBSC, hash: "0xabc"}
	o := newTestOrchestrator(&fakeResolver{}, []ChainExecutor{bscExec}, fakeWallets{wallet: testWallet()}, nil)

	// Request-level amount beats both config tiers.
	_, err := o.Snipe(context.Background(), Request{
		Text:    "ape " + testEVMAddr,
		Amounts: &domain.ChainAmounts{BSC: "0.3"},
		Config:  cfg,
		UserID:  "u1",
	})
	require.NoError(t, err)
	require.Len(t, bscExec.executed, 1)
	assert.Equal(t, "0.3", bscExec.executed[0].Amount)

	// Without an override, the per-chain config amount wins over the legacy one.
	_, err = o.Snipe(context.Background(), Request{
		Text: "ape " + testEVMAddr, Config: cfg, UserID: "u1",
	})
	require.NoError(t, err)
	require.Len(t, bscExec.executed, 2)
	assert.Equal(t, "0.2", bscExec.executed[1].Amount)
}

// selectiveExecutor fails only for the addresses in errs.
type selectiveExecutor struct {
	chain domain.Chain
	errs  map[string]error
	hash  string
}

func (s *selectiveExecutor) Chain() domain.Chain { return s.chain }

func (s *selectiveExecutor) Execute(_ context.Context, req domain.TradeRequest) (domain.TradeResult, error) {
	if err := s.errs[req.ContractAddress]; err != nil {
		return domain.TradeResult{}, err
	}
	return domain.TradeResult{Hash: s.hash, Chain: s.chain}, nil
}

func TestParseSlippageBps(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1", 100},
		{"0.5", 50},
		{"2.5", 250},
		{"", 100},        // unparseable -> default
		{"garbage", 100}, // unparseable -> default
		{"0", 1},         // floor
		{"-3", 1},        // floor
		{"0.001", 1},     // rounds to zero -> floor
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseSlippageBps(tt.in), "slippage %q", tt.in)
	}
}

func TestEffectiveAmounts(t *testing.T) {
	cfg := &domain.SniperConfig{
		Amount:        "0.1",
		AmountByChain: domain.ChainAmounts{Solana: "0.7"},
	}

	got := effectiveAmounts(nil, cfg)
	assert.Equal(t, "0.1", got.BSC)
	assert.Equal(t, "0.7", got.Solana)

	got = effectiveAmounts(&domain.ChainAmounts{BSC: "0.9"}, cfg)
	assert.Equal(t, "0.9", got.BSC)
	assert.Equal(t, "0.7", got.Solana)

	// Invalid values fall back to the built-in default.
	got = effectiveAmounts(&domain.ChainAmounts{BSC: "-1"}, &domain.SniperConfig{})
	assert.Equal(t, defaultAmount, got.BSC)
	assert.Equal(t, defaultAmount, got.Solana)
}
