/*
Package config loads the service configuration.

PURPOSE:
  Settings are layered, later layers win:
  1. Defaults (Default())
  2. Optional TOML file (--config)
  3. POINTFLOW_* environment variables
  4. Command-line flags (applied by cmd/pointflow)

FILE FORMAT:
  [server]
  port = 8080
  allowed_origins = ["http://localhost:5173"]

  [database]
  path = ":memory:"

  [session]
  initial_balance = 1250
  seed_history = true
  connect_delay = "1s"
  redeem_delay = "2s"
  idle_timeout = "30m"
  reap_interval = "1m"

  [rate_limit]
  requests_per_minute = 120
  burst = 20

  [chain]
  enabled = false
  genesis_balance = 1250
  confirm_timeout = "30s"
  poll_interval = "1s"

  [log]
  level = "info"

  [rewards]
  catalog_path = ""

SEE ALSO:
  - env.go: Environment overrides
  - cmd/pointflow/serve.go: Flag overrides
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Session   SessionConfig   `toml:"session"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Chain     ChainConfig     `toml:"chain"`
	Log       LogConfig       `toml:"log"`
	Rewards   RewardsConfig   `toml:"rewards"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type DatabaseConfig struct {
	// Path is a SQLite file, ":memory:", or "" for the in-process map store.
	Path string `toml:"path"`
}

type SessionConfig struct {
	InitialBalance int64    `toml:"initial_balance"`
	SeedHistory    bool     `toml:"seed_history"`
	ConnectDelay   Duration `toml:"connect_delay"`
	RedeemDelay    Duration `toml:"redeem_delay"`
	IdleTimeout    Duration `toml:"idle_timeout"`
	ReapInterval   Duration `toml:"reap_interval"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `toml:"requests_per_minute"`
	Burst             int `toml:"burst"`
}

type ChainConfig struct {
	Enabled        bool     `toml:"enabled"`
	GenesisBalance int64    `toml:"genesis_balance"`
	ConfirmTimeout Duration `toml:"confirm_timeout"`
	PollInterval   Duration `toml:"poll_interval"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type RewardsConfig struct {
	CatalogPath string `toml:"catalog_path"`
}

// Default returns the demo configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Database: DatabaseConfig{Path: ":memory:"},
		Session: SessionConfig{
			InitialBalance: 1250,
			SeedHistory:    true,
			ConnectDelay:   Duration(time.Second),
			RedeemDelay:    Duration(2 * time.Second),
			IdleTimeout:    Duration(30 * time.Minute),
			ReapInterval:   Duration(time.Minute),
		},
		RateLimit: RateLimitConfig{RequestsPerMinute: 120, Burst: 20},
		Chain: ChainConfig{
			GenesisBalance: 1250,
			ConfirmTimeout: Duration(30 * time.Second),
			PollInterval:   Duration(time.Second),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load applies the file at path (if any) and the environment on top of
// the defaults.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
		}
	}
	if err := ApplyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Session.InitialBalance < 0 {
		errs = append(errs, errors.New("session.initial_balance must not be negative"))
	}
	if c.Session.ConnectDelay < 0 || c.Session.RedeemDelay < 0 {
		errs = append(errs, errors.New("session delays must not be negative"))
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate_limit values must not be negative"))
	}
	if c.Chain.Enabled && c.Chain.GenesisBalance < 0 {
		errs = append(errs, errors.New("chain.genesis_balance must not be negative"))
	}
	return errors.Join(errs...)
}

// =============================================================================
// DURATION
// =============================================================================

// Duration is a time.Duration written as "2s" or "30m" in TOML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(parsed)
	return nil
}
