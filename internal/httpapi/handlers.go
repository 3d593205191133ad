// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/cloakroom/cloakroom/internal/auth"
	"github.com/cloakroom/cloakroom/internal/observability"
)

// maxLoginBodyBytes bounds the login request body.
const maxLoginBodyBytes = 1 << 20

// AuthService defines the authentication operations needed by the HTTP
// boundary.
type AuthService interface {
	// Login verifies credentials and establishes a session.
	Login(ctx context.Context, username, password string) (*auth.Session, string, error)

	// CurrentUser resolves a session token to the user snapshot.
	CurrentUser(ctx context.Context, token string) (auth.UserInfo, error)

	// Logout destroys the session for the given token. Idempotent.
	Logout(ctx context.Context, token string) error
}

// loginRequest is the POST /auth/login body.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin processes POST /auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	body := io.LimitReader(r.Body, maxLoginBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		observability.RecordLogin("malformed")
		writeError(w, s.logger, oops.Code("AUTH_MALFORMED_INPUT").
			Errorf("request body must be JSON with username and password"))
		return
	}

	session, token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		observability.RecordLogin(loginOutcome(err))
		writeError(w, s.logger, err)
		return
	}

	observability.RecordLogin("success")
	http.SetCookie(w, s.sessionCookie(token, session))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"user":    session.User,
	})
}

// handleMe processes GET /auth/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.CurrentUser(r.Context(), s.cookieToken(r))
	if err != nil {
		observability.RecordSessionCheck("rejected")
		writeError(w, s.logger, err)
		return
	}

	observability.RecordSessionCheck("ok")
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// handleLogout processes POST /auth/logout. Always answers 200: the session
// cookie is cleared regardless, and a store failure only means the orphaned
// row lingers until the expiry sweep collects it.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), s.cookieToken(r)); err != nil {
		s.logError("logout failed", err)
	}

	http.SetCookie(w, s.expiredCookie())
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// handleHealth answers GET / with a health-check body.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

// handleNotFound is the JSON catch-all for unmatched routes.
func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

// cookieToken extracts the session token from the request cookie.
// Returns "" when the cookie is absent.
func (s *Server) cookieToken(r *http.Request) string {
	cookie, err := r.Cookie(s.cookie.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// sessionCookie builds the HTTP-only session cookie for a fresh login.
func (s *Server) sessionCookie(token string, session *auth.Session) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// expiredCookie clears the session cookie on the client.
func (s *Server) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// loginOutcome labels a login error for metrics without leaking which
// branch rejected it to the client.
func loginOutcome(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		switch oopsErr.Code() {
		case "AUTH_INVALID_CREDENTIALS":
			return "invalid_credentials"
		case "AUTH_MALFORMED_INPUT":
			return "malformed"
		}
	}
	return "error"
}

// logError logs a non-fatal handler error with oops context when present.
func (s *Server) logError(msg string, err error) {
	var attrs []any
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs = append(attrs, "code", oopsErr.Code())
	}
	if !errors.Is(err, context.Canceled) {
		s.logger.Warn(msg, append([]any{slog.Any("error", err)}, attrs...)...)
	}
}
