// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

package main

import (
	"context"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cloakroom/cloakroom/internal/auth"
	authpg "github.com/cloakroom/cloakroom/internal/auth/postgres"
	"github.com/cloakroom/cloakroom/internal/store"
)

// defaultAddUserTimeout bounds the adduser database operations.
const defaultAddUserTimeout = 30 * time.Second

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// addUserConfig holds configuration for the adduser command.
type addUserConfig struct {
	username string
	email    string
	timeout  time.Duration
}

// NewAddUserCmd creates the adduser subcommand. Account creation is an
// out-of-band operation; the HTTP API deliberately has no registration
// endpoint.
func NewAddUserCmd() *cobra.Command {
	cfg := &addUserConfig{}

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user account",
		Long:  `Create a user account. The password is prompted interactively and never echoed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAddUser(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.username, "username", "", "username for the new account (required)")
	cmd.Flags().StringVar(&cfg.email, "email", "", "email address for the new account")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultAddUserTimeout, "timeout for database operations")
	_ = cmd.MarkFlagRequired("username") //nolint:errcheck // flag is registered above

	return cmd
}

func runAddUser(cmd *cobra.Command, cfg *addUserConfig) error {
	if err := auth.ValidateUsername(cfg.username); err != nil {
		return err
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}

	password, err := promptPassword(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	svc, err := auth.NewService(
		authpg.NewUserRepository(pool),
		authpg.NewSessionStore(pool),
		auth.NewArgon2idHasher(),
	)
	if err != nil {
		return err
	}

	user, err := svc.CreateUser(ctx, cfg.username, password, cfg.email)
	if err != nil {
		return err
	}

	cmd.Printf("Created user %s (%s)\n", user.Username, user.ID.String())
	return nil
}

// promptPassword reads the password twice from the terminal without echo
// and requires both entries to match.
func promptPassword(cmd *cobra.Command) (string, error) {
	cmd.Print("Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}

	cmd.Print("Confirm password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}

	if string(first) != string(second) {
		return "", oops.Code("PASSWORD_MISMATCH").Errorf("passwords do not match")
	}
	if len(first) == 0 {
		return "", auth.ErrEmptyPassword
	}

	return string(first), nil
}
