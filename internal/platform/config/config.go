// Package config loads service configuration from an optional YAML file with
// environment variable overrides, so main stays lean and containers can
// configure everything through the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`

	// Admins is the startup allowlist of admin public keys (hex ed25519).
	// Between one and five entries; this is the only way admins are granted.
	Admins []string `yaml:"admins"`

	// Faucet enables the development credit endpoint. Never in production.
	Faucet bool `yaml:"faucet"`

	LogLevel string `yaml:"log_level"`
	Tracing  bool   `yaml:"tracing"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Postgres configures the ledger database. Empty URL selects the in-memory
// ledger (development only).
type Postgres struct {
	URL string `yaml:"url"`
	// AuditURL selects a separate database for the audit trail; defaults to
	// the ledger database when empty.
	AuditURL string `yaml:"audit_url"`
}

// Redis configures the replay guard. Empty URL selects the in-process guard.
type Redis struct {
	URL string `yaml:"url"`
}

// Kafka configures the audit event stream. Empty brokers disables it.
type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Load reads the YAML file at path (if non-empty), applies environment
// overrides, and fills defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// FromEnv builds a Config from environment variables alone.
func FromEnv() Config {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "LANDLOCK_ADDR")
	setString(&c.Postgres.URL, "LANDLOCK_POSTGRES_URL")
	setString(&c.Postgres.AuditURL, "LANDLOCK_AUDIT_POSTGRES_URL")
	setString(&c.Redis.URL, "LANDLOCK_REDIS_URL")
	setString(&c.Kafka.Topic, "LANDLOCK_KAFKA_TOPIC")
	setString(&c.LogLevel, "LANDLOCK_LOG_LEVEL")

	if v := os.Getenv("LANDLOCK_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitAndTrim(v)
	}
	if v := os.Getenv("LANDLOCK_ADMINS"); v != "" {
		c.Admins = splitAndTrim(v)
	}
	if v := os.Getenv("LANDLOCK_FAUCET"); v != "" {
		c.Faucet = v == "true" || v == "1"
	}
	if v := os.Getenv("LANDLOCK_TRACING"); v != "" {
		c.Tracing = v == "true" || v == "1"
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Postgres.AuditURL == "" {
		c.Postgres.AuditURL = c.Postgres.URL
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "landlock.audit"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
