// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloakroom/cloakroom/pkg/errutil"
)

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "not a database url \x00")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}

func TestConnect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The pool itself is created lazily; the ping loop observes the
	// cancelled context and gives up without waiting out the backoff.
	_, err := Connect(ctx, "postgres://cloakroom@127.0.0.1:1/cloakroom")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
}
