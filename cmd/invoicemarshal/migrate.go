// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Muggles200/InvoiceMarshal/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending database migrations against the PostgreSQL database.`,
		RunE:  runMigrateUp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE:  runMigrateDown,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE:  runMigrateStatus,
	})

	return cmd
}

func migrateDatabaseURL() (string, error) {
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		return databaseURL, nil
	}
	return "", oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	migrator, err := openMigrator(cmd)
	if err != nil {
		return err
	}
	defer closeMigrator(cmd, migrator)

	cmd.Println("Running migrations...")
	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	migrator, err := openMigrator(cmd)
	if err != nil {
		return err
	}
	defer closeMigrator(cmd, migrator)

	cmd.Println("Rolling back migrations...")
	if err := migrator.Down(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "roll back migrations").Wrap(err)
	}

	cmd.Println("Rollback completed successfully")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	migrator, err := openMigrator(cmd)
	if err != nil {
		return err
	}
	defer closeMigrator(cmd, migrator)

	version, dirty, err := migrator.Version()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "read migration version").Wrap(err)
	}

	if version == 0 {
		cmd.Println("No migrations applied")
		return nil
	}
	cmd.Printf("Migration version: %d (dirty: %v)\n", version, dirty)
	return nil
}

func openMigrator(cmd *cobra.Command) (*store.Migrator, error) {
	databaseURL, err := migrateDatabaseURL()
	if err != nil {
		return nil, err
	}

	cmd.Println("Connecting to database...")
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return migrator, nil
}

func closeMigrator(cmd *cobra.Command, migrator *store.Migrator) {
	if err := migrator.Close(); err != nil {
		cmd.PrintErrf("warning: error closing migrator: %v\n", err)
	}
}
