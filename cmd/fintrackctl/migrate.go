package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/backend"
	"fintrack/internal/storage"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the configured database schema up to date",
		Long: `Apply pending schema changes. SQLite uses the embedded migrations;
PostgreSQL applies its idempotent schema on connect. The memory backend has
nothing to migrate.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			switch backend.BackendType(a.cfg.Backend) {
			case backend.SQLiteBackend:
				if err := storage.RunMigrations(a.cfg.SQLiteDBPath); err != nil {
					return err
				}
				fmt.Fprintln(out, "sqlite schema is up to date:", a.cfg.SQLiteDBPath)
			case backend.PostgresBackend:
				if _, err := a.store.Get(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, "postgres schema is up to date")
			default:
				fmt.Fprintln(out, "nothing to migrate for backend", a.cfg.Backend)
			}
			return nil
		},
	}
}
