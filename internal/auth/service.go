// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Service provides authentication operations over a credential store and
// a session store.
type Service struct {
	users    UserRepository
	sessions SessionStore
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewService creates a new Service with a no-op logger.
// Returns an error if any required dependency is nil.
func NewService(users UserRepository, sessions SessionStore, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, sessions, hasher, slog.New(slog.DiscardHandler))
}

// NewServiceWithLogger creates a new Service with the provided logger.
// Returns an error if any required dependency is nil.
func NewServiceWithLogger(users UserRepository, sessions SessionStore, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
	}, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing
// attacks: password verification still runs so response time stays constant.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Login verifies credentials and establishes a session.
// Returns the session and the plaintext token for the client cookie.
//
// "User not found" and "wrong password" are deliberately indistinguishable
// in both the error returned and the time taken, to prevent username
// enumeration.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, string, error) {
	if username == "" || password == "" {
		return nil, "", oops.Code("AUTH_MALFORMED_INPUT").Errorf("username and password are required")
	}

	user, lookupErr := s.users.GetByUsername(ctx, username)

	// Pick the hash to verify against: real, or dummy for absent users.
	targetHash := dummyPasswordHash
	userExists := false

	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
		// Keep going with the dummy hash.
	default:
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by username").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, "", s.invalidCredentials(username)
		}
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return nil, "", s.invalidCredentials(username)
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(user.Info(), tokenHash, time.Now().Add(SessionTokenExpiry))
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	s.logger.Info("login succeeded",
		"username", user.Username,
		"session_id", session.ID.String(),
	)
	return session, token, nil
}

// invalidCredentials logs the failure and returns the single
// indistinguishable credential error.
func (s *Service) invalidCredentials(username string) error {
	s.logger.Warn("login failed", "username", username)
	return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
}

// CurrentUser resolves a session token to the user snapshot captured at
// login time. The snapshot is trusted until the session is destroyed or
// expires; it is not re-validated against the credential store.
func (s *Service) CurrentUser(ctx context.Context, token string) (UserInfo, error) {
	if token == "" {
		return UserInfo{}, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return UserInfo{}, oops.Code("SESSION_INVALID").Errorf("invalid session token")
		}
		return UserInfo{}, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		return UserInfo{}, oops.Code("SESSION_EXPIRED").Errorf("session has expired")
	}

	// Best effort; validation succeeds regardless.
	_ = s.sessions.UpdateLastSeen(ctx, session.ID, time.Now()) //nolint:errcheck

	return session.User, nil
}

// Logout destroys the session for the given token. It is idempotent:
// destroying an absent or already-destroyed session is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := s.sessions.DeleteByTokenHash(ctx, HashSessionToken(token)); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// CreateUser registers a new credential record. Account creation is an
// out-of-band operation (CLI), not exposed over the HTTP boundary.
func (s *Service) CreateUser(ctx context.Context, username, password, email string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, hash, email)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, oops.Code("USER_EXISTS").
				With("username", username).
				Wrap(err)
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}

	s.logger.Info("user created", "username", user.Username, "user_id", user.ID.String())
	return user, nil
}

// SweepExpiredSessions removes expired sessions from the store and returns
// the number removed. Intended to run periodically from the server process.
func (s *Service) SweepExpiredSessions(ctx context.Context) (int64, error) {
	deleted, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	if deleted > 0 {
		s.logger.Info("expired sessions removed", "count", deleted)
	}
	return deleted, nil
}
