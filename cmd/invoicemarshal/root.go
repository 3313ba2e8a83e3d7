// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the InvoiceMarshal CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoicemarshal",
		Short: "InvoiceMarshal - authentication service",
		Long: `InvoiceMarshal's account service: signup, login, email verification,
abuse throttling, and the route gate, backed by PostgreSQL.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
