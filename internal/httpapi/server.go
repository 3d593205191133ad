// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

// Package httpapi exposes the authentication service over HTTP: login,
// current-user lookup, and logout, with session continuity carried by an
// HTTP-only cookie.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"
)

// DefaultCookieName is the session cookie name unless configured otherwise.
const DefaultCookieName = "cloakroom_session"

// CookieConfig controls the session cookie handed to clients.
type CookieConfig struct {
	// Name is the cookie name. Defaults to DefaultCookieName when empty.
	Name string

	// Secure marks the cookie as HTTPS-only. Leave false only for local
	// development over plain HTTP.
	Secure bool
}

// Server serves the authentication HTTP API.
type Server struct {
	addr       string
	auth       AuthService
	cookie     CookieConfig
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a new API server.
// addr is a "host:port" listen address. Returns an error if auth or logger
// is nil.
func NewServer(addr string, svc AuthService, cookie CookieConfig, logger *slog.Logger) (*Server, error) {
	if svc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	if cookie.Name == "" {
		cookie.Name = DefaultCookieName
	}

	return &Server{
		addr:   addr,
		auth:   svc,
		cookie: cookie,
		logger: logger,
	}, nil
}

// Handler returns the fully wired HTTP handler, including the JSON 404
// catch-all and panic recovery. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/me", s.handleMe)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /{$}", s.handleHealth)

	// Everything else is an unmatched route.
	mux.HandleFunc("/", s.handleNotFound)

	return recoverMiddleware(s.logger, mux)
}

// Start begins serving the API. It returns an error channel that receives
// any error from the HTTP server after it starts; the channel is closed on
// graceful stop. Callers should monitor it to detect server failures.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		// Use local httpSrv to avoid race with subsequent Start() calls
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			// Restore running state on failure so the server can be stopped again
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
