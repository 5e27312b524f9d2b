package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/treasury/internal/model"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

const (
	accountsTable        = "accounts"
	virtualAccountsTable = "virtual_accounts"
)

// SQLOptions tunes the relational connection pool.
type SQLOptions struct {
	MaxOpenConns int
}

// SQLStorage implements service.Backend on a relational database. Every
// operation is written through immediately; there is nothing to flush.
type SQLStorage struct {
	db      *sql.DB
	columns *columnSet
	dialect dialect
	dsn     string
}

// NewSQLStorage opens a relational backend for the given dialect. The currency
// set fixes the balance columns for the lifetime of the instance.
func NewSQLStorage(ctx context.Context, dialectName, dsn string, currencies []model.Currency, opts SQLOptions) (*SQLStorage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(dsn, "dsn"); err != nil {
		return nil, err
	}

	d, err := lookupDialect(dialectName)
	if err != nil {
		return nil, err
	}

	columns, err := newColumnSet(currencies)
	if err != nil {
		return nil, err
	}

	source := dsn
	if d.name == DialectSQLite {
		source, err = prepareSQLitePath(dsn)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(d.driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	if d.name == DialectSQLite {
		db.SetMaxOpenConns(1) // SQLite doesn't benefit from multiple connections
		db.SetMaxIdleConns(1)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}
	db.SetConnMaxLifetime(0)

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLStorage{
		db:      db,
		dsn:     dsn,
		dialect: d,
		columns: columns,
	}, nil
}

func prepareSQLitePath(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
		// Ensure directory exists
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	if strings.Contains(dsn, "?") {
		return dsn, nil
	}
	return dsn + "?_journal_mode=WAL&_busy_timeout=5000", nil
}

// Name identifies the backend in logs.
func (s *SQLStorage) Name() string {
	return s.dialect.name
}

// Ping checks the connection.
func (s *SQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func tableFor(kind model.AccountKind) (string, error) {
	switch kind {
	case model.KindUnique:
		return accountsTable, nil
	case model.KindVirtual:
		return virtualAccountsTable, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrInvalidKind, int(kind))
	}
}

func (s *SQLStorage) q(query string) string {
	return s.dialect.rebind(query)
}
