package config

import (
	"os"
	"strconv"
	"time"
)

// Environment overrides, all under the GATEWAY_ prefix. They exist so
// deployments can tweak a shared config file per instance without
// editing it.
const envPrefix = "GATEWAY_"

func (c *Config) applyEnv() {
	envString(&c.Env, "ENV")
	envString(&c.Server.Addr, "ADDR")
	envString(&c.MetricsAddr, "METRICS_ADDR")
	envString(&c.TierServerAddr, "TIER_SERVER_ADDR")
	envString(&c.LogLevel, "LOG_LEVEL")
	envInt(&c.RateLimitRPS, "RATE_LIMIT_RPS")
	envInt(&c.Cache.AsyncWriters, "CACHE_ASYNC_WRITERS")
	envDuration(&c.Cache.DefaultTTL, "CACHE_DEFAULT_TTL")
	envDuration(&c.Cache.SweepInterval, "CACHE_SWEEP_INTERVAL")
	envBool(&c.TracingEnabled, "TRACING_ENABLED")
}

func envString(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(dst *Duration, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v == "true" || v == "yes" || v == "1"
	}
}
