// Package config loads engine configuration from a TOML file, fills
// defaults, and validates before anything starts serving.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"mini-twirp/message"
)

// Config is the full engine configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Client ClientConfig `toml:"client"`
	Etcd   EtcdConfig   `toml:"etcd"`
	Log    LogConfig    `toml:"log"`
}

type ServerConfig struct {
	Addr           string          `toml:"addr"`
	StrictDecoding bool            `toml:"strict_decoding"`
	HandlerTimeout duration        `toml:"handler_timeout"` // zero disables the timeout middleware
	RateLimit      RateLimitConfig `toml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `toml:"rps"` // zero disables the rate limit middleware
	Burst int     `toml:"burst"`
}

type ClientConfig struct {
	BaseURL        string   `toml:"base_url"`
	Format         string   `toml:"format"` // "binary" or "json"
	StrictDecoding bool     `toml:"strict_decoding"`
	MaxRetries     int      `toml:"max_retries"`
	RetryBase      duration `toml:"retry_base"`
	Service        string   `toml:"service"` // discovery key; empty = fixed base URL
}

type EtcdConfig struct {
	Endpoints []string `toml:"endpoints"`
}

type LogConfig struct {
	Level       string `toml:"level"` // debug, info, warn, error
	Development bool   `toml:"development"`
}

// duration parses TOML strings like "500ms" or "2s".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

func (d duration) Std() time.Duration { return time.Duration(d) }

// Load reads, defaults, and validates a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes config from raw TOML.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Client.Format == "" {
		cfg.Client.Format = "binary"
	}
	if cfg.Client.RetryBase == 0 {
		cfg.Client.RetryBase = duration(100 * time.Millisecond)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate rejects configurations that would only fail later at call time.
func Validate(cfg Config) error {
	if _, err := ParseFormat(cfg.Client.Format); err != nil {
		return err
	}
	if cfg.Client.MaxRetries < 0 {
		return fmt.Errorf("config: client.max_retries must not be negative")
	}
	if cfg.Server.RateLimit.RPS < 0 {
		return fmt.Errorf("config: server.rate_limit.rps must not be negative")
	}
	if cfg.Server.RateLimit.RPS > 0 && cfg.Server.RateLimit.Burst <= 0 {
		return fmt.Errorf("config: server.rate_limit.burst must be positive when rps is set")
	}
	if cfg.Client.Service != "" && len(cfg.Etcd.Endpoints) == 0 {
		return fmt.Errorf("config: client.service requires etcd.endpoints for discovery")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", cfg.Log.Level)
	}
	return nil
}

// ParseFormat maps the config string to a message format.
func ParseFormat(s string) (message.Format, error) {
	switch s {
	case "binary":
		return message.Binary, nil
	case "json":
		return message.JSON, nil
	default:
		return 0, fmt.Errorf("config: unknown format %q (want \"binary\" or \"json\")", s)
	}
}
