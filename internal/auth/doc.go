// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

// Package auth implements the session-backed authentication boundary:
// credential verification, session issuance and validation, and logout.
//
// Passwords are hashed with argon2id. Session tokens are opaque random
// values handed to clients as a cookie; only their SHA-256 hash is ever
// persisted, so a leaked session store cannot be replayed.
package auth
