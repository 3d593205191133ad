// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloakroom/cloakroom/internal/config"
	"github.com/cloakroom/cloakroom/pkg/errutil"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cloakroom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

// serveFlags mirrors the flag set the serve command registers.
func serveFlags() *pflag.FlagSet {
	defaults := config.Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("listen-addr", defaults.ListenAddr, "")
	fs.String("metrics-addr", defaults.MetricsAddr, "")
	fs.String("session-store", defaults.SessionStore, "")
	fs.String("cookie-name", defaults.CookieName, "")
	fs.Bool("cookie-secure", false, "")
	fs.String("log-format", defaults.LogFormat, "")
	return fs
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, config.DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, config.DefaultMetricsAddr, cfg.MetricsAddr)
	assert.Equal(t, config.StorePostgres, cfg.SessionStore)
	assert.Equal(t, config.DefaultCookieName, cfg.CookieName)
	assert.Equal(t, config.DefaultLogFormat, cfg.LogFormat)
	assert.False(t, cfg.CookieSecure)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("no file and no flags yields defaults", func(t *testing.T) {
		cfg, err := config.Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, config.Default().ListenAddr, cfg.ListenAddr)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
listen-addr: "0.0.0.0:9999"
log-format: text
cookie-secure: true
`)

		cfg, err := config.Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:9999", cfg.ListenAddr)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.True(t, cfg.CookieSecure)
		assert.Equal(t, config.StorePostgres, cfg.SessionStore, "untouched keys keep defaults")
	})

	t.Run("changed flags override file values", func(t *testing.T) {
		path := writeConfigFile(t, `
listen-addr: "0.0.0.0:9999"
session-store: postgres
`)

		fs := serveFlags()
		require.NoError(t, fs.Set("session-store", config.StoreMemory))

		cfg, err := config.Load(path, fs)
		require.NoError(t, err)
		assert.Equal(t, config.StoreMemory, cfg.SessionStore)
		assert.Equal(t, "0.0.0.0:9999", cfg.ListenAddr, "unchanged flags do not shadow the file")
	})

	t.Run("database URL comes from the environment", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://cloakroom@localhost:5432/cloakroom")

		cfg, err := config.Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, "postgres://cloakroom@localhost:5432/cloakroom", cfg.DatabaseURL)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
	})

	t.Run("invalid merged config is rejected", func(t *testing.T) {
		path := writeConfigFile(t, `session-store: redis`)

		_, err := config.Load(path, nil)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*config.Config) {}, wantErr: false},
		{name: "memory store is valid", mutate: func(c *config.Config) { c.SessionStore = config.StoreMemory }, wantErr: false},
		{name: "empty metrics addr is valid", mutate: func(c *config.Config) { c.MetricsAddr = "" }, wantErr: false},
		{name: "text log format is valid", mutate: func(c *config.Config) { c.LogFormat = "text" }, wantErr: false},
		{name: "empty listen addr", mutate: func(c *config.Config) { c.ListenAddr = "" }, wantErr: true},
		{name: "unknown session store", mutate: func(c *config.Config) { c.SessionStore = "redis" }, wantErr: true},
		{name: "empty cookie name", mutate: func(c *config.Config) { c.CookieName = "" }, wantErr: true},
		{name: "unknown log format", mutate: func(c *config.Config) { c.LogFormat = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
