// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloakroom/cloakroom/internal/auth"
	"github.com/cloakroom/cloakroom/internal/auth/memory"
)

func newSession(t *testing.T, expiresAt time.Time) *auth.Session {
	t.Helper()

	_, tokenHash, err := auth.GenerateSessionToken()
	require.NoError(t, err)

	user := auth.UserInfo{ID: ulid.Make(), Username: "alice", Email: "alice@example.com"}
	session, err := auth.NewSession(user, tokenHash, expiresAt)
	require.NoError(t, err)
	return session
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	session := newSession(t, time.Now().Add(time.Hour))

	require.NoError(t, store.Create(ctx, session))

	got, err := store.GetByTokenHash(ctx, session.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.User, got.User)

	// Returned session is a copy; mutating it must not affect the store.
	got.User.Username = "mallory"
	again, err := store.GetByTokenHash(ctx, session.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, "alice", again.User.Username)
}

func TestSessionStore_Create_DuplicateTokenHash(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	session := newSession(t, time.Now().Add(time.Hour))

	require.NoError(t, store.Create(ctx, session))
	assert.Error(t, store.Create(ctx, session))
}

func TestSessionStore_GetByTokenHash_NotFound(t *testing.T) {
	store := memory.NewSessionStore()

	_, err := store.GetByTokenHash(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionStore_UpdateLastSeen(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	session := newSession(t, time.Now().Add(time.Hour))
	require.NoError(t, store.Create(ctx, session))

	seen := time.Now().Add(time.Minute)
	require.NoError(t, store.UpdateLastSeen(ctx, session.ID, seen))

	got, err := store.GetByTokenHash(ctx, session.TokenHash)
	require.NoError(t, err)
	assert.True(t, got.LastSeenAt.Equal(seen))

	err = store.UpdateLastSeen(ctx, ulid.Make(), seen)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionStore_DeleteByTokenHash_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	session := newSession(t, time.Now().Add(time.Hour))
	require.NoError(t, store.Create(ctx, session))

	require.NoError(t, store.DeleteByTokenHash(ctx, session.TokenHash))
	require.NoError(t, store.DeleteByTokenHash(ctx, session.TokenHash))
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()

	live := newSession(t, time.Now().Add(time.Hour))
	expired := newSession(t, time.Now().Add(-time.Hour))
	require.NoError(t, store.Create(ctx, live))
	require.NoError(t, store.Create(ctx, expired))

	deleted, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = store.GetByTokenHash(ctx, expired.TokenHash)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = store.GetByTokenHash(ctx, live.TokenHash)
	assert.NoError(t, err)
}
