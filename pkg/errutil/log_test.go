// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

package errutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func TestLogError_OopsError(t *testing.T) {
	logger, buf := captureLogger()

	err := oops.Code("SESSION_SWEEP_FAILED").
		With("operation", "delete expired sessions").
		Errorf("store unavailable")
	LogError(logger, "sweep failed", err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "sweep failed", record["msg"])
	assert.Equal(t, "SESSION_SWEEP_FAILED", record["code"])
	assert.Contains(t, record["error"], "store unavailable")

	ctx, ok := record["context"].(map[string]any)
	require.True(t, ok, "expected context map, got %v", record)
	assert.Equal(t, "delete expired sessions", ctx["operation"])
}

func TestLogError_OopsErrorWithoutCode(t *testing.T) {
	logger, buf := captureLogger()

	LogError(logger, "failed", oops.Errorf("plain oops"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "failed", record["msg"])
	assert.NotContains(t, record, "code")
}

func TestLogError_PlainError(t *testing.T) {
	logger, buf := captureLogger()

	LogError(logger, "failed", errors.New("boring error"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "failed", record["msg"])
	assert.Equal(t, "boring error", record["error"])
	assert.NotContains(t, record, "code")
}

func TestAssertErrorCode(t *testing.T) {
	AssertErrorCode(t, oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("nope"), "AUTH_INVALID_CREDENTIALS")
}

func TestAssertErrorContext(t *testing.T) {
	err := oops.With("username", "alice").Errorf("nope")
	AssertErrorContext(t, err, "username", "alice")
}
