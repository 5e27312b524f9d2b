package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/treasury/internal/cli"
	"github.com/Veraticus/treasury/internal/common"
	"github.com/Veraticus/treasury/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the SQL schema to the latest version.

This creates the account tables and adds a balance column, with its ranking
index, for every configured currency that does not have one yet. The file
backend has no schema and needs no migration.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if appConfig == nil {
		return fmt.Errorf("%w: configuration not loaded", common.ErrMissingConfig)
	}
	opts := appConfig.StorageOptions()
	if opts.Backend == storage.BackendFile {
		fmt.Fprintln(out, cli.FormatInfo("The file backend has no schema to migrate"))
		return nil
	}

	currencies, err := appConfig.CurrencyModels()
	if err != nil {
		return err
	}

	slog.Info("Starting database migration",
		"backend", opts.Backend,
		"status_only", status)

	store, err := storage.NewSQLStorage(ctx, opts.Backend, opts.DSN, currencies, storage.SQLOptions{MaxOpenConns: opts.MaxOpenConns})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if !status {
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		if status {
			fmt.Fprintln(out, cli.FormatWarning("Database has not been migrated yet"))
			return nil
		}
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Schema version %d of %d", current, storage.ExpectedSchemaVersion)))
	if !status {
		fmt.Fprintln(out, cli.FormatSuccess("Database migrations completed successfully"))
	}
	return nil
}
