// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Cloakroom CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cloakroom",
		Short: "Cloakroom - session-backed authentication service",
		Long: `Cloakroom is a minimal username/password authentication service.
Clients hold an opaque session cookie; sessions are verified against a
server-side store backed by PostgreSQL.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAddUserCmd())

	return cmd
}
