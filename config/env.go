package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "POINTFLOW_"

// ApplyEnv overrides cfg from environment variables. Unset or empty
// variables leave the current value alone.
//
//	POINTFLOW_PORT, POINTFLOW_ALLOWED_ORIGINS (comma separated),
//	POINTFLOW_DB_PATH, POINTFLOW_INITIAL_BALANCE, POINTFLOW_SEED_HISTORY,
//	POINTFLOW_CONNECT_DELAY, POINTFLOW_REDEEM_DELAY, POINTFLOW_IDLE_TIMEOUT,
//	POINTFLOW_RATE_LIMIT_RPM, POINTFLOW_RATE_LIMIT_BURST,
//	POINTFLOW_CHAIN_ENABLED, POINTFLOW_LOG_LEVEL, POINTFLOW_CATALOG_PATH
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	get := func(name string) string {
		return strings.TrimSpace(getenv(EnvPrefix + name))
	}

	if v := get("PORT"); len(v) != 0 {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", EnvPrefix, err)
		}
		cfg.Server.Port = port
	}

	if v := get("ALLOWED_ORIGINS"); len(v) != 0 {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}

	if v := get("DB_PATH"); len(v) != 0 {
		cfg.Database.Path = v
	}

	if v := get("INITIAL_BALANCE"); len(v) != 0 {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sINITIAL_BALANCE: %w", EnvPrefix, err)
		}
		cfg.Session.InitialBalance = n
	}

	if v := get("SEED_HISTORY"); len(v) != 0 {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSEED_HISTORY: %w", EnvPrefix, err)
		}
		cfg.Session.SeedHistory = b
	}

	durations := []struct {
		name string
		dst  *Duration
	}{
		{"CONNECT_DELAY", &cfg.Session.ConnectDelay},
		{"REDEEM_DELAY", &cfg.Session.RedeemDelay},
		{"IDLE_TIMEOUT", &cfg.Session.IdleTimeout},
	}
	for _, d := range durations {
		if v := get(d.name); len(v) != 0 {
			if err := d.dst.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, d.name, err)
			}
		}
	}

	if v := get("RATE_LIMIT_RPM"); len(v) != 0 {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sRATE_LIMIT_RPM: %w", EnvPrefix, err)
		}
		cfg.RateLimit.RequestsPerMinute = n
	}

	if v := get("RATE_LIMIT_BURST"); len(v) != 0 {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sRATE_LIMIT_BURST: %w", EnvPrefix, err)
		}
		cfg.RateLimit.Burst = n
	}

	if v := get("CHAIN_ENABLED"); len(v) != 0 {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sCHAIN_ENABLED: %w", EnvPrefix, err)
		}
		cfg.Chain.Enabled = b
	}

	if v := get("LOG_LEVEL"); len(v) != 0 {
		cfg.Log.Level = v
	}

	if v := get("CATALOG_PATH"); len(v) != 0 {
		cfg.Rewards.CatalogPath = v
	}

	return nil
}
