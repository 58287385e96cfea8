// Package config loads gateway configuration from an optional JSON
// file, then applies environment overrides. Configuration is read once
// at startup; the gateway does not reconfigure at runtime.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Duration wraps time.Duration so JSON configs can say "30s".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case float64:
		*d = Duration(time.Duration(v))
		return nil
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: bad duration %q: %w", v, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("config: bad duration value %v", v)
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Tier kinds accepted in TierSpec.Kind.
const (
	TierKindMemory = "memory"
	TierKindRemote = "remote"
)

// TierSpec describes one cache tier. Order in the config is probe
// order, fastest first.
type TierSpec struct {
	Name string `json:"name"`
	Kind string `json:"kind"`

	// Memory tier sizing.
	Shards   int `json:"shards,omitempty"`
	Capacity int `json:"capacity,omitempty"`

	// Remote tier endpoint, e.g. "http://cache-0:7070".
	BaseURL string `json:"base_url,omitempty"`

	// MaxTTL caps entry lifetime in this tier; zero keeps the entry's
	// own TTL.
	MaxTTL Duration `json:"max_ttl,omitempty"`
}

// CacheConfig configures the tier chain and its maintenance loops.
type CacheConfig struct {
	Tiers         []TierSpec `json:"tiers"`
	DefaultTTL    Duration   `json:"default_ttl"`
	SweepInterval Duration   `json:"sweep_interval"`
	AsyncWriters  int        `json:"async_writers"`
}

// ServerConfig configures the public listener.
type ServerConfig struct {
	Addr         string   `json:"addr"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
	IdleTimeout  Duration `json:"idle_timeout"`
}

// Config holds all application configuration.
type Config struct {
	Env    string       `json:"env"`
	Server ServerConfig `json:"server"`

	// MetricsAddr serves /metrics and /stats; empty disables it.
	MetricsAddr string `json:"metrics_addr"`

	// TierServerAddr exposes this instance's fastest tier to peers over
	// the shared-tier protocol; empty disables it.
	TierServerAddr string `json:"tier_server_addr"`

	Cache CacheConfig `json:"cache"`

	// RateLimitRPS enables the rate-limit stage; zero disables it.
	RateLimitRPS int `json:"rate_limit_rps"`

	LogLevel string `json:"log_level"`

	// TracingEnabled turns on per-request dispatch spans.
	TracingEnabled bool `json:"tracing_enabled"`
}

// Default returns the configuration used when no file and no overrides
// are present: one in-process memory tier, no peers.
func Default() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
			IdleTimeout:  Duration(120 * time.Second),
		},
		MetricsAddr: ":9090",
		Cache: CacheConfig{
			Tiers: []TierSpec{{
				Name:     "memory",
				Kind:     TierKindMemory,
				Shards:   64,
				Capacity: 65536,
				MaxTTL:   Duration(5 * time.Minute),
			}},
			DefaultTTL:    Duration(time.Minute),
			SweepInterval: Duration(30 * time.Second),
			AsyncWriters:  4,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration: defaults, then the JSON file at path
// (skipped when path is empty), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the gateway cannot start with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr is required")
	}
	if len(c.Cache.Tiers) == 0 {
		return fmt.Errorf("config: at least one cache tier is required")
	}
	for i, t := range c.Cache.Tiers {
		switch t.Kind {
		case TierKindMemory:
			if t.Shards <= 0 || t.Capacity <= 0 {
				return fmt.Errorf("config: tier %d (%s): shards and capacity must be positive", i, t.Name)
			}
		case TierKindRemote:
			if t.BaseURL == "" {
				return fmt.Errorf("config: tier %d (%s): base_url is required for remote tiers", i, t.Name)
			}
		default:
			return fmt.Errorf("config: tier %d (%s): unknown kind %q", i, t.Name, t.Kind)
		}
		if t.Name == "" {
			return fmt.Errorf("config: tier %d: name is required", i)
		}
	}
	if c.Cache.AsyncWriters < 0 {
		return fmt.Errorf("config: cache.async_writers must not be negative")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("config: rate_limit_rps must not be negative")
	}
	return nil
}
