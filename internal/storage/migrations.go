package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 2

// Migration represents a versioned schema migration. Balance columns are not
// versioned; they follow the configured currency set (see ensureBalanceColumns).
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Create accounts table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS accounts (
					uid VARCHAR(60) NOT NULL PRIMARY KEY,
					job VARCHAR(50) NOT NULL DEFAULT 'unemployed',
					job_notifications BOOLEAN NOT NULL DEFAULT TRUE
				)
			`)
			return err
		},
	},
	{
		Version:     2,
		Description: "Create virtual accounts table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS virtual_accounts (
					uid VARCHAR(60) NOT NULL PRIMARY KEY
				)
			`)
			return err
		},
	},
}

// Migrate applies pending schema migrations and adds a balance column for every
// configured currency that does not have one yet. New columns are nullable so
// that existing rows are picked up by the next backfill.
func (s *SQLStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER NOT NULL PRIMARY KEY,
			description VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.ExecContext(ctx,
			s.q(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`),
			migration.Version, migration.Description); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	for _, table := range []string{accountsTable, virtualAccountsTable} {
		if err := s.ensureBalanceColumns(ctx, table); err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (s *SQLStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

func (s *SQLStorage) ensureBalanceColumns(ctx context.Context, table string) error {
	existing, err := s.tableColumns(ctx, table)
	if err != nil {
		return err
	}

	for _, column := range s.columns.columns() {
		if existing[column] {
			continue
		}

		// Identifiers come from the validated column set.
		alter := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, s.dialect.balanceType)
		if _, err := s.db.ExecContext(ctx, alter); err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
		}

		index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s DESC, uid)`, table, column, table, column)
		if _, err := s.db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to index column %s.%s: %w", table, column, err)
		}

		slog.Info("Added balance column", "table", table, "column", column)
	}
	return nil
}

func (s *SQLStorage) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, s.q(s.dialect.columnQuery), table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		columns[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	return columns, nil
}
