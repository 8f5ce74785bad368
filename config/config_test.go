package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pointflow/config"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pointflow.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", env(nil))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, int64(1250), cfg.Session.InitialBalance)
	assert.Equal(t, 2*time.Second, cfg.Session.RedeemDelay.Std())
}

func TestLoad_File(t *testing.T) {
	// GIVEN: A file overriding a few keys
	// WHEN: Loaded
	// THEN: Those keys change, the rest keep their defaults

	path := writeConfig(t, `
[server]
port = 9090

[session]
initial_balance = 500
redeem_delay = "500ms"

[chain]
enabled = true
`)

	cfg, err := config.Load(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(500), cfg.Session.InitialBalance)
	assert.Equal(t, 500*time.Millisecond, cfg.Session.RedeemDelay.Std())
	assert.True(t, cfg.Chain.Enabled)
	assert.Equal(t, time.Second, cfg.Session.ConnectDelay.Std())
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, "[server]\nprot = 9090\n")

	_, err := config.Load(path, env(nil))
	assert.ErrorContains(t, err, "unknown keys")
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, "[session]\nconnect_delay = \"soon\"\n")

	_, err := config.Load(path, env(nil))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[server]\nport = 9090\n")

	cfg, err := config.Load(path, env(map[string]string{
		"POINTFLOW_PORT":            "7070",
		"POINTFLOW_ALLOWED_ORIGINS": "https://a.example, https://b.example",
		"POINTFLOW_DB_PATH":         "/tmp/pf.db",
		"POINTFLOW_SEED_HISTORY":    "false",
		"POINTFLOW_CONNECT_DELAY":   "0s",
		"POINTFLOW_LOG_LEVEL":       "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/tmp/pf.db", cfg.Database.Path)
	assert.False(t, cfg.Session.SeedHistory)
	assert.Zero(t, cfg.Session.ConnectDelay.Std())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvInvalid(t *testing.T) {
	_, err := config.Load("", env(map[string]string{"POINTFLOW_INITIAL_BALANCE": "lots"}))
	assert.ErrorContains(t, err, "POINTFLOW_INITIAL_BALANCE")
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Session.InitialBalance = -1
	cfg.RateLimit.Burst = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "initial_balance")
	assert.Contains(t, err.Error(), "rate_limit")
}
