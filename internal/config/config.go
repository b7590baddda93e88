// Package config defines the top-level configuration for the sniper bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SNIPEBOT_* environment variables.
type Config struct {
	Sniper   SniperConfig   `toml:"sniper"`
	BSC      BSCConfig      `toml:"bsc"`
	Solana   SolanaConfig   `toml:"solana"`
	Ave      AveConfig      `toml:"ave"`
	Jupiter  JupiterConfig  `toml:"jupiter"`
	Wallets  WalletsConfig  `toml:"wallets"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// SniperConfig holds the default trade parameters applied when a trigger
// request omits them.
type SniperConfig struct {
	// Type selects which trigger kinds run: "ca", "keywords", or "both".
	Type string `toml:"type"`
	// Chain restricts trading to one chain: "all", "bsc", or "solana".
	Chain string `toml:"chain"`
	// Amount is the legacy single default trade size in native currency.
	Amount string `toml:"amount"`
	// AmountBSC / AmountSolana are per-chain default trade sizes; they take
	// precedence over Amount.
	AmountBSC    string `toml:"amount_bsc"`
	AmountSolana string `toml:"amount_solana"`
	// Slippage is the tolerance in percent (e.g. "1" = 1% = 100 bps).
	Slippage string `toml:"slippage"`
	// MappingPath is the token-mapping CSV file.
	MappingPath string `toml:"mapping_path"`
}

// BSCConfig holds BNB Smart Chain node and router parameters.
type BSCConfig struct {
	RPCURL        string `toml:"rpc_url"`
	RouterAddress string `toml:"router_address"`
}

// SolanaConfig holds Solana RPC parameters.
type SolanaConfig struct {
	RPCURL string `toml:"rpc_url"`
}

// AveConfig holds Ave API endpoints and credentials.
type AveConfig struct {
	SearchBase string `toml:"search_base"`
	BotBase    string `toml:"bot_base"`
	AccessKey  string `toml:"access_key"`
}

// JupiterConfig holds Jupiter API endpoints and credentials. An empty APIKey
// disables the Ultra flow; swaps then go through the public quote API.
type JupiterConfig struct {
	UltraBase string `toml:"ultra_base"`
	QuoteBase string `toml:"quote_base"`
	APIKey    string `toml:"api_key"`
}

// WalletsConfig holds wallet-store parameters. When the database is disabled
// the default keys serve every request.
type WalletsConfig struct {
	// MasterPassword unseals encrypted key material in the wallet table.
	MasterPassword string `toml:"master_password"`
	// DefaultEVMKey / DefaultSolKey are fallback signing keys used when no
	// wallet row matches the requesting user.
	DefaultEVMKey string `toml:"default_evm_key"`
	DefaultSolKey string `toml:"default_sol_key"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the hot token cache.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIToken, when set, is required as a Bearer token on trade endpoints.
	APIToken string `toml:"api_token"`
}

// NotifyConfig holds notification channel credentials. TelegramChatID is the
// operator channel; per-user confirmations go to the chat matching the
// requesting user's Telegram id.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Sniper: SniperConfig{
			Type:        "both",
			Chain:       "all",
			Amount:      "0.001",
			Slippage:    "1",
			MappingPath: "token_mapping.csv",
		},
		BSC: BSCConfig{
			RPCURL:        "https://bsc-dataseed.binance.org",
			RouterAddress: "0x4eadd85e7a6bb368eb1e3fb22b56ecac79e9058f",
		},
		Solana: SolanaConfig{
			RPCURL: "https://api.mainnet-beta.solana.com",
		},
		Ave: AveConfig{
			SearchBase: "https://prod.ave-api.com/v2",
			BotBase:    "https://bot-api.ave.ai",
		},
		Jupiter: JupiterConfig{
			UltraBase: "https://lite-api.jup.ag/ultra/v1",
			QuoteBase: "https://public.jupiterapi.com",
		},
		Database: DatabaseConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "snipebot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Notify: NotifyConfig{
			Events: []string{"trade", "error"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"oneshot": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validSniperTypes enumerates the accepted values for SniperConfig.Type.
var validSniperTypes = map[string]bool{
	"ca":       true,
	"keywords": true,
	"both":     true,
}

// validSniperChains enumerates the accepted values for SniperConfig.Chain.
// "all" and "both" are synonyms.
var validSniperChains = map[string]bool{
	"all":    true,
	"both":   true,
	"bsc":    true,
	"solana": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, oneshot)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if !validSniperTypes[strings.ToLower(c.Sniper.Type)] {
		errs = append(errs, fmt.Sprintf("sniper: unknown type %q (valid: ca, keywords, both)", c.Sniper.Type))
	}
	if !validSniperChains[strings.ToLower(c.Sniper.Chain)] {
		errs = append(errs, fmt.Sprintf("sniper: unknown chain %q (valid: all, bsc, solana)", c.Sniper.Chain))
	}
	if c.Sniper.MappingPath == "" {
		errs = append(errs, "sniper: mapping_path must not be empty")
	}

	if c.BSC.RPCURL == "" {
		errs = append(errs, "bsc: rpc_url must not be empty")
	}
	if c.Solana.RPCURL == "" {
		errs = append(errs, "solana: rpc_url must not be empty")
	}
	if c.Ave.SearchBase == "" {
		errs = append(errs, "ave: search_base must not be empty")
	}
	if c.Ave.BotBase == "" {
		errs = append(errs, "ave: bot_base must not be empty")
	}
	if c.Jupiter.QuoteBase == "" {
		errs = append(errs, "jupiter: quote_base must not be empty")
	}

	// Without a database, default keys are the only signing material.
	if !c.Database.Enabled {
		if c.Wallets.DefaultEVMKey == "" && c.Wallets.DefaultSolKey == "" {
			errs = append(errs, "wallets: default_evm_key or default_sol_key must be set when the database is disabled")
		}
	}

	if c.Database.Enabled && strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.Enabled {
		if c.Database.PoolMaxConns < 1 {
			errs = append(errs, "database: pool_max_conns must be >= 1")
		}
		if c.Database.PoolMinConns < 0 {
			errs = append(errs, "database: pool_min_conns must be >= 0")
		}
		if c.Database.PoolMinConns > c.Database.PoolMaxConns {
			errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Mode == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
