package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/billbook/config"
	"github.com/shashiranjanraj/billbook/database/seeders"
	"github.com/shashiranjanraj/billbook/pkg/database"
	"github.com/shashiranjanraj/billbook/pkg/migration"
)

// bootDB loads config and opens the database connection.
func bootDB() error {
	if err := config.Load(); err != nil {
		return err
	}
	return database.Connect()
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run all pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bootDB(); err != nil {
				return err
			}
			defer database.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Running migrations...")
			return migration.New(database.DB, cmd.OutOrStdout()).Run()
		},
	}
}

func migrateRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:rollback",
		Short: "Roll back the last batch of migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bootDB(); err != nil {
				return err
			}
			defer database.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Rolling back last batch...")
			return migration.New(database.DB, cmd.OutOrStdout()).Rollback()
		},
	}
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:status",
		Short: "Show the status of each migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bootDB(); err != nil {
				return err
			}
			defer database.Close()
			return migration.New(database.DB, cmd.OutOrStdout()).Status()
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo account and sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bootDB(); err != nil {
				return err
			}
			defer database.Close()
			return seeders.RunAll(database.DB, cmd.OutOrStdout())
		},
	}
}
