// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloakroom/cloakroom/pkg/errutil"
)

// stubReadPassword replaces the terminal reader with queued responses.
func stubReadPassword(t *testing.T, responses []string, err error) {
	t.Helper()

	original := readPassword
	t.Cleanup(func() { readPassword = original })

	calls := 0
	readPassword = func(int) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		require.Less(t, calls, len(responses), "unexpected extra password prompt")
		response := responses[calls]
		calls++
		return []byte(response), nil
	}
}

func silentCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))
	return cmd
}

func TestPromptPassword(t *testing.T) {
	t.Run("matching entries", func(t *testing.T) {
		stubReadPassword(t, []string{"secret123", "secret123"}, nil)

		password, err := promptPassword(silentCommand())
		require.NoError(t, err)
		assert.Equal(t, "secret123", password)
	})

	t.Run("mismatch is rejected", func(t *testing.T) {
		stubReadPassword(t, []string{"secret123", "secret124"}, nil)

		_, err := promptPassword(silentCommand())
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "PASSWORD_MISMATCH")
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		stubReadPassword(t, []string{"", ""}, nil)

		_, err := promptPassword(silentCommand())
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})

	t.Run("terminal read failure", func(t *testing.T) {
		stubReadPassword(t, nil, errors.New("not a terminal"))

		_, err := promptPassword(silentCommand())
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "PASSWORD_READ_FAILED")
	})
}

func TestAddUserCommand_RequiresUsername(t *testing.T) {
	err := executeCommand(t, "adduser")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username")
}

func TestAddUserCommand_RejectsInvalidUsername(t *testing.T) {
	err := executeCommand(t, "adduser", "--username", "!bad!")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "USER_INVALID_USERNAME")
}

func TestAddUserCommand_NoDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	err := executeCommand(t, "adduser", "--username", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
