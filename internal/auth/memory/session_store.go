// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

// Package memory provides an in-memory SessionStore for development and
// tests. Sessions do not survive a process restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/cloakroom/cloakroom/internal/auth"
)

// SessionStore implements auth.SessionStore with a mutex-guarded map
// keyed by token hash.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*auth.Session
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*auth.Session),
	}
}

// Create stores a new session.
func (s *SessionStore) Create(_ context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.TokenHash]; exists {
		return oops.Code("SESSION_CREATE_FAILED").Errorf("duplicate token hash")
	}

	copied := *session
	s.sessions[session.TokenHash] = &copied
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (s *SessionStore) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[tokenHash]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}

	copied := *session
	return &copied, nil
}

// UpdateLastSeen updates the LastSeenAt timestamp for a session.
func (s *SessionStore) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.sessions {
		if session.ID == id {
			session.LastSeenAt = lastSeen
			return nil
		}
	}
	return oops.Code("SESSION_NOT_FOUND").
		With("id", id.String()).
		Wrap(auth.ErrNotFound)
}

// DeleteByTokenHash removes the session with the given token hash.
// Deleting an absent session is not an error.
func (s *SessionStore) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, tokenHash)
	return nil
}

// DeleteExpired removes all expired sessions and returns the count.
func (s *SessionStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var deleted int64
	for hash, session := range s.sessions {
		if session.IsExpiredAt(now) {
			delete(s.sessions, hash)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored sessions. Test helper.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
