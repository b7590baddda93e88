package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SNIPEBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SNIPEBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Sniper ──
	setStr(&cfg.Sniper.Type, "SNIPEBOT_SNIPER_TYPE")
	setStr(&cfg.Sniper.Chain, "SNIPEBOT_SNIPER_CHAIN")
	setStr(&cfg.Sniper.Amount, "SNIPEBOT_SNIPER_AMOUNT")
	setStr(&cfg.Sniper.AmountBSC, "SNIPEBOT_SNIPER_AMOUNT_BSC")
	setStr(&cfg.Sniper.AmountSolana, "SNIPEBOT_SNIPER_AMOUNT_SOLANA")
	setStr(&cfg.Sniper.Slippage, "SNIPEBOT_SNIPER_SLIPPAGE")
	setStr(&cfg.Sniper.MappingPath, "SNIPEBOT_SNIPER_MAPPING_PATH")

	// ── BSC ──
	setStr(&cfg.BSC.RPCURL, "SNIPEBOT_BSC_RPC_URL")
	setStr(&cfg.BSC.RouterAddress, "SNIPEBOT_BSC_ROUTER_ADDRESS")

	// ── Solana ──
	setStr(&cfg.Solana.RPCURL, "SNIPEBOT_SOLANA_RPC_URL")

	// ── Ave ──
	setStr(&cfg.Ave.SearchBase, "SNIPEBOT_AVE_SEARCH_BASE")
	setStr(&cfg.Ave.BotBase, "SNIPEBOT_AVE_BOT_BASE")
	setStr(&cfg.Ave.AccessKey, "SNIPEBOT_AVE_ACCESS_KEY")

	// ── Jupiter ──
	setStr(&cfg.Jupiter.UltraBase, "SNIPEBOT_JUPITER_ULTRA_BASE")
	setStr(&cfg.Jupiter.QuoteBase, "SNIPEBOT_JUPITER_QUOTE_BASE")
	setStr(&cfg.Jupiter.APIKey, "SNIPEBOT_JUPITER_API_KEY")

	// ── Wallets ──
	setStr(&cfg.Wallets.MasterPassword, "SNIPEBOT_WALLETS_MASTER_PASSWORD")
	setStr(&cfg.Wallets.DefaultEVMKey, "SNIPEBOT_WALLETS_DEFAULT_EVM_KEY")
	setStr(&cfg.Wallets.DefaultSolKey, "SNIPEBOT_WALLETS_DEFAULT_SOL_KEY")

	// ── Database ──
	setBool(&cfg.Database.Enabled, "SNIPEBOT_DATABASE_ENABLED")
	setStr(&cfg.Database.DSN, "SNIPEBOT_DATABASE_DSN")
	setStr(&cfg.Database.Host, "SNIPEBOT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SNIPEBOT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SNIPEBOT_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "SNIPEBOT_DATABASE_USER")
	setStr(&cfg.Database.Password, "SNIPEBOT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SNIPEBOT_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "SNIPEBOT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SNIPEBOT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SNIPEBOT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SNIPEBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SNIPEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SNIPEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SNIPEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SNIPEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SNIPEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SNIPEBOT_REDIS_TLS_ENABLED")

	// ── Server ──
	setInt(&cfg.Server.Port, "SNIPEBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SNIPEBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIToken, "SNIPEBOT_SERVER_API_TOKEN")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SNIPEBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SNIPEBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SNIPEBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SNIPEBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SNIPEBOT_MODE")
	setStr(&cfg.LogLevel, "SNIPEBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
