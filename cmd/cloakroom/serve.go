// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/cloakroom/cloakroom/internal/auth"
	authmemory "github.com/cloakroom/cloakroom/internal/auth/memory"
	authpg "github.com/cloakroom/cloakroom/internal/auth/postgres"
	"github.com/cloakroom/cloakroom/internal/config"
	"github.com/cloakroom/cloakroom/internal/httpapi"
	"github.com/cloakroom/cloakroom/internal/logging"
	"github.com/cloakroom/cloakroom/internal/observability"
	"github.com/cloakroom/cloakroom/internal/store"
)

const (
	shutdownTimeout = 5 * time.Second
	sweepInterval   = time.Hour
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication API server",
		Long: `Start the authentication API server. Startup is sequential and
fail-fast: configuration validation, then schema sync, then listen; any
failure aborts the process.`,
		RunE: runServe,
	}

	flags := cmd.Flags()
	flags.String("listen-addr", config.DefaultListenAddr, "API listen address")
	flags.String("metrics-addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	flags.String("session-store", config.StorePostgres, "session backend (postgres or memory)")
	flags.String("cookie-name", config.DefaultCookieName, "session cookie name")
	flags.Bool("cookie-secure", false, "mark the session cookie HTTPS-only")
	flags.String("log-format", config.DefaultLogFormat, "log format (json or text)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("cloakroom", version, cfg.LogFormat)

	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	slog.Info("starting cloakroom",
		"listen_addr", cfg.ListenAddr,
		"session_store", cfg.SessionStore,
		"log_format", cfg.LogFormat,
	)

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	slog.Info("connected to database")

	// Schema sync before serving. Fail-fast: a dirty or unreachable schema
	// aborts startup rather than serving against an unknown layout.
	migrator, err := store.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close() //nolint:errcheck // migration error takes precedence
		return err
	}
	if err := migrator.Close(); err != nil {
		slog.Warn("error closing migrator", "error", err)
	}

	slog.Info("schema up to date")

	var sessions auth.SessionStore
	switch cfg.SessionStore {
	case config.StoreMemory:
		slog.Warn("using in-memory session store; sessions will not survive restarts")
		sessions = authmemory.NewSessionStore()
	default:
		sessions = authpg.NewSessionStore(pool)
	}

	svc, err := auth.NewServiceWithLogger(
		authpg.NewUserRepository(pool),
		sessions,
		auth.NewArgon2idHasher(),
		slog.Default(),
	)
	if err != nil {
		return err
	}

	apiServer, err := httpapi.NewServer(cfg.ListenAddr, svc, httpapi.CookieConfig{
		Name:   cfg.CookieName,
		Secure: cfg.CookieSecure,
	}, slog.Default())
	if err != nil {
		return err
	}

	apiErrChan, err := apiServer.Start()
	if err != nil {
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			return pool.Ping(ctx) == nil
		})
		obsErrChan, obsErr := obsServer.Start()
		if obsErr != nil {
			stopServer(apiServer.Stop, "api")
			return oops.With("operation", "start observability server").Wrap(obsErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	// Periodic expired-session sweep keeps the store from accumulating
	// rows for sessions nobody will present again.
	go runSessionSweeper(ctx, svc)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	slog.Info("cloakroom ready", "addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	stopServer(apiServer.Stop, "api")
	if obsServer != nil {
		stopServer(obsServer.Stop, "observability")
	}

	slog.Info("shutdown complete")
	return nil
}

// stopServer stops a server with the shutdown deadline, logging failures.
func stopServer(stop func(context.Context) error, name string) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := stop(shutdownCtx); err != nil {
		slog.Warn("error stopping server", "server", name, "error", err)
	}
}

// runSessionSweeper periodically removes expired sessions until the
// context is cancelled.
func runSessionSweeper(ctx context.Context, svc *auth.Service) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := svc.SweepExpiredSessions(ctx)
			if err != nil {
				slog.Warn("session sweep failed", "error", err)
				continue
			}
			observability.RecordSessionsSwept(deleted)
		}
	}
}

// monitorServerErrors monitors a server's error channel and cancels the
// context on error so a failed listener triggers full shutdown.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
