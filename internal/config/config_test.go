package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Wallets.DefaultEVMKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	return cfg
}

func TestValidate_DefaultsWithKeyPass(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_NoSigningMaterial(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_evm_key or default_sol_key")

	// Enabling the database lifts the default-key requirement.
	cfg.Database.Enabled = true
	assert.NoError(t, cfg.Validate())
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "daemon"
	cfg.Sniper.Type = "everything"
	cfg.Sniper.Chain = "tron"
	cfg.BSC.RPCURL = ""

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "daemon"`)
	assert.Contains(t, msg, `unknown type "everything"`)
	assert.Contains(t, msg, `unknown chain "tron"`)
	assert.Contains(t, msg, "bsc: rpc_url must not be empty")
}

func TestValidate_ChainSynonyms(t *testing.T) {
	for _, chain := range []string{"all", "both", "bsc", "solana", "BSC"} {
		cfg := validConfig()
		cfg.Sniper.Chain = chain
		assert.NoError(t, cfg.Validate(), "chain %q", chain)
	}
}

func TestValidate_DatabaseFields(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Enabled = true
	cfg.Database.Host = ""
	cfg.Database.Port = 0
	cfg.Database.PoolMinConns = 20 // exceeds max of 10

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "database: host must not be empty")
	assert.Contains(t, msg, "database: port must be 1-65535")
	assert.Contains(t, msg, "pool_min_conns must not exceed pool_max_conns")

	// A DSN replaces the discrete host fields entirely.
	cfg.Database.DSN = "postgres://user:pass@db:5432/snipebot"
	cfg.Database.PoolMinConns = 2
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ServerPortOnlyInServerMode(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg.Mode = "oneshot"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		`mode = "oneshot"`,
		``,
		`[sniper]`,
		`chain = "bsc"`,
		`slippage = "0.5"`,
		``,
		`[wallets]`,
		`default_evm_key = "aa"`,
	}, "\n")), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "oneshot", cfg.Mode)
	assert.Equal(t, "bsc", cfg.Sniper.Chain)
	assert.Equal(t, "0.5", cfg.Sniper.Slippage)
	// Untouched fields keep their defaults.
	assert.Equal(t, "both", cfg.Sniper.Type)
	assert.Equal(t, "https://bsc-dataseed.binance.org", cfg.BSC.RPCURL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SNIPEBOT_SNIPER_CHAIN", "solana")
	t.Setenv("SNIPEBOT_SERVER_PORT", "9000")
	t.Setenv("SNIPEBOT_REDIS_ENABLED", "true")
	t.Setenv("SNIPEBOT_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[sniper]\nchain = \"bsc\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "solana", cfg.Sniper.Chain)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_MissingPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Ave.AccessKey = "ave-secret"
	cfg.Wallets.MasterPassword = "hunter2"
	cfg.Database.Password = "dbpass"
	cfg.Notify.TelegramToken = "123:abc"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Ave.AccessKey)
	assert.Equal(t, "***", out.Wallets.MasterPassword)
	assert.Equal(t, "***", out.Wallets.DefaultEVMKey)
	assert.Equal(t, "***", out.Database.Password)
	assert.Equal(t, "***", out.Notify.TelegramToken)

	// Empty secrets stay empty rather than becoming placeholders.
	assert.Empty(t, out.Jupiter.APIKey)

	// Non-secret fields pass through, and the original is untouched.
	assert.Equal(t, cfg.BSC.RPCURL, out.BSC.RPCURL)
	assert.Equal(t, "ave-secret", cfg.Ave.AccessKey)

	// Mutating the copied slices must not leak back.
	out.Server.CORSOrigins[0] = "mutated"
	assert.Equal(t, "http://localhost:3000", cfg.Server.CORSOrigins[0])
}
