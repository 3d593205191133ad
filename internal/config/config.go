// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

// Package config loads server configuration from an optional YAML file,
// command-line flags, and the environment. Flags override file values;
// DATABASE_URL always comes from the environment so credentials stay out
// of config files.
package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Session store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Default configuration values.
const (
	DefaultListenAddr  = "127.0.0.1:8080"
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultCookieName  = "cloakroom_session"
	DefaultLogFormat   = "json"
)

// Config holds the server configuration.
type Config struct {
	// ListenAddr is the API listen address.
	ListenAddr string `koanf:"listen-addr"`

	// MetricsAddr is the metrics/health listen address. Empty disables the
	// observability server.
	MetricsAddr string `koanf:"metrics-addr"`

	// SessionStore selects the session backend: "postgres" (durable) or
	// "memory" (development only; sessions die with the process).
	SessionStore string `koanf:"session-store"`

	// CookieName is the session cookie name.
	CookieName string `koanf:"cookie-name"`

	// CookieSecure marks the session cookie HTTPS-only.
	CookieSecure bool `koanf:"cookie-secure"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log-format"`

	// DatabaseURL comes from the DATABASE_URL environment variable only.
	DatabaseURL string `koanf:"-"`
}

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		ListenAddr:   DefaultListenAddr,
		MetricsAddr:  DefaultMetricsAddr,
		SessionStore: StorePostgres,
		CookieName:   DefaultCookieName,
		LogFormat:    DefaultLogFormat,
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then flag overrides, then DATABASE_URL from the
// environment.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "merge flags").
				Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").
			With("operation", "unmarshal config").
			Wrap(err)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is coherent. It does not require
// DatabaseURL; callers that need the database check it themselves so the
// memory backend works without one.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen-addr is required")
	}
	if c.SessionStore != StorePostgres && c.SessionStore != StoreMemory {
		return oops.Code("CONFIG_INVALID").
			Errorf("session-store must be %q or %q, got %q", StorePostgres, StoreMemory, c.SessionStore)
	}
	if c.CookieName == "" {
		return oops.Code("CONFIG_INVALID").Errorf("cookie-name is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	return nil
}
