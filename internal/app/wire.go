package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"snipebot/internal/cache/redis"
	"snipebot/internal/chain/bsc"
	"snipebot/internal/chain/solana"
	"snipebot/internal/config"
	"snipebot/internal/domain"
	"snipebot/internal/notify"
	"snipebot/internal/platform/ave"
	"snipebot/internal/platform/jupiter"
	"snipebot/internal/sniper"
	"snipebot/internal/store/postgres"
	"snipebot/internal/token"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	Resolver     *token.Resolver
	Orchestrator *sniper.Orchestrator

	// SniperDefaults is the sniper config used by the oneshot mode, which has
	// no caller to supply one. The HTTP API requires the caller's config.
	SniperDefaults domain.SniperConfig

	// TradeStore is nil when the database is disabled.
	TradeStore *postgres.TradeStore

	// RateLimiter is nil when Redis is disabled.
	RateLimiter domain.RateLimiter

	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		SniperDefaults: sniperDefaults(cfg.Sniper),
	}

	// --- Token mapping (CSV file) ---
	mappingCache, err := token.OpenMappingCache(cfg.Sniper.MappingPath)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: mapping cache: %w", err)
	}

	// --- Redis (optional hot cache + rate limiting) ---
	var hot token.HotCache
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		hot = redis.NewTokenCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- Platform clients ---
	aveClient := ave.NewClient(cfg.Ave.SearchBase, cfg.Ave.BotBase, cfg.Ave.AccessKey)
	jupClient := jupiter.NewClient(cfg.Jupiter.UltraBase, cfg.Jupiter.QuoteBase, cfg.Jupiter.APIKey)

	deps.Resolver = token.NewResolver(mappingCache, aveClient, hot, logger)

	// --- Chain executors ---
	bscExec, err := bsc.NewExecutor(cfg.BSC.RPCURL, aveClient, cfg.BSC.RouterAddress, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: bsc executor: %w", err)
	}
	closers = append(closers, bscExec.Close)

	solRPC := solana.NewRPCClient(cfg.Solana.RPCURL)
	solExec := solana.NewExecutor(jupClient, solRPC, logger)

	// --- PostgreSQL (wallets + trade audit log) ---
	var wallets domain.WalletStore
	if cfg.Database.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		wallets = postgres.NewWalletStore(pool, cfg.Wallets.MasterPassword)
		deps.TradeStore = postgres.NewTradeStore(pool)
	} else {
		wallets = staticWalletStore{wallet: domain.Wallet{
			ID:            "default",
			EVMPrivateKey: cfg.Wallets.DefaultEVMKey,
			SolPrivateKey: cfg.Wallets.DefaultSolKey,
		}}
	}

	// --- Notifications ---
	var senders []notify.Sender
	var telegram *notify.TelegramSender
	if cfg.Notify.TelegramToken != "" {
		telegram = notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if cfg.Notify.TelegramChatID != "" {
			senders = append(senders, telegram)
		}
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	var fanout sniper.MultiNotifier
	if telegram != nil || len(senders) > 0 {
		fanout = append(fanout, notify.NewTradeMessenger(telegram, deps.Notifier, logger))
	}
	if deps.TradeStore != nil {
		fanout = append(fanout, tradeRecorder{store: deps.TradeStore})
	}
	var notifier sniper.TradeNotifier
	if len(fanout) > 0 {
		notifier = fanout
	}

	// --- Orchestrator ---
	deps.Orchestrator = sniper.NewOrchestrator(
		deps.Resolver,
		[]sniper.ChainExecutor{bscExec, solExec},
		wallets,
		notifier,
		logger,
	)

	return deps, cleanup, nil
}

// sniperDefaults maps the config file's sniper section onto the caller-facing
// config shape.
func sniperDefaults(cfg config.SniperConfig) domain.SniperConfig {
	return domain.SniperConfig{
		Chain:    chainOptionFromLabel(cfg.Chain),
		Type:     domain.SniperType(strings.ToLower(cfg.Type)),
		Amount:   cfg.Amount,
		Slippage: cfg.Slippage,
		AmountByChain: domain.ChainAmounts{
			BSC:    cfg.AmountBSC,
			Solana: cfg.AmountSolana,
		},
	}
}

// chainOptionFromLabel accepts "all" as a synonym for "both".
func chainOptionFromLabel(label string) domain.ChainOption {
	switch strings.ToLower(label) {
	case "bsc":
		return domain.ChainOptionBSC
	case "solana":
		return domain.ChainOptionSolana
	default:
		return domain.ChainOptionBoth
	}
}

// staticWalletStore serves one fixed wallet for every user when the database
// is disabled (single-operator deployments).
type staticWalletStore struct {
	wallet domain.Wallet
}

func (s staticWalletStore) LookupWallet(_ context.Context, userID string) (domain.Wallet, error) {
	w := s.wallet
	if w.TelegramUserID == "" {
		w.TelegramUserID = userID
	}
	return w, nil
}

// tradeRecorder adapts the postgres trade store into the notification fanout
// so every confirmed swap lands in the audit log.
type tradeRecorder struct {
	store *postgres.TradeStore
}

func (t tradeRecorder) NotifyTrade(ctx context.Context, n sniper.TradeNotification) error {
	// Deterministic id keyed on the tx hash keeps delivery retries idempotent.
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(string(n.Chain)+":"+n.Hash))
	return t.store.Record(ctx, domain.TradeRecord{
		ID:              id.String(),
		UserID:          n.UserID,
		Chain:           n.Chain,
		ContractAddress: n.ContractAddress,
		Amount:          n.Amount,
		Hash:            n.Hash,
	})
}
