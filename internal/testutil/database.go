// Package testutil provides test utilities for the treasury project: ready
// backends for both storage technologies, shared currencies and recording
// doubles for the store's collaborators.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/treasury/internal/model"
	"github.com/Veraticus/treasury/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
)

// Currencies shared across tests.
var (
	Dollar = model.Currency{
		Name:            "Dollar",
		PluralName:      "Dollars",
		Symbol:          "$",
		StartingBalance: decimal.RequireFromString("10.00"),
		Default:         true,
	}
	Gem = model.Currency{
		Name:            "Gem",
		PluralName:      "Gems",
		Symbol:          "♦",
		StartingBalance: decimal.RequireFromString("2.50"),
	}
)

// DefaultCurrencies returns the currencies most tests run with.
func DefaultCurrencies() []model.Currency {
	return []model.Currency{Dollar, Gem}
}

// TestDB represents a migrated relational backend scoped to a single test.
type TestDB struct {
	Storage    *storage.SQLStorage
	Path       string
	Currencies []model.Currency
}

// SetupTestDB creates a migrated SQLite backend in a temp directory with the
// given currencies, or DefaultCurrencies when none are passed.
// It automatically handles migrations and cleanup.
func SetupTestDB(t *testing.T, currencies ...model.Currency) *TestDB {
	t.Helper()
	return SetupTestDBAt(t, filepath.Join(t.TempDir(), "accounts.db"), currencies...)
}

// SetupTestDBAt is SetupTestDB against an explicit database file, for tests
// that reopen the same database with a different currency set.
func SetupTestDBAt(t *testing.T, path string, currencies ...model.Currency) *TestDB {
	t.Helper()
	if len(currencies) == 0 {
		currencies = DefaultCurrencies()
	}

	ctx := context.Background()
	store, err := storage.NewSQLStorage(ctx, storage.DialectSQLite, path, currencies, storage.SQLOptions{})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage:    store,
		Path:       path,
		Currencies: currencies,
	}
}

// TestFile represents a file backend on an in-memory filesystem.
type TestFile struct {
	Storage *storage.FileStorage
	Fs      *CountingFs
	Path    string
}

// TestFilePath is where SetupTestFile places the accounts document.
const TestFilePath = "/data/accounts.toml"

// SetupTestFile creates a file backend over a counting in-memory filesystem.
func SetupTestFile(t *testing.T) *TestFile {
	t.Helper()
	return SetupTestFileOn(t, NewCountingFs(afero.NewMemMapFs()))
}

// SetupTestFileOn creates a file backend over fs, which may already hold a
// document at TestFilePath.
func SetupTestFileOn(t *testing.T, fs *CountingFs) *TestFile {
	t.Helper()

	store, err := storage.NewFileStorage(fs, TestFilePath)
	if err != nil {
		t.Fatalf("failed to create file storage: %v", err)
	}
	fs.Reset()

	return &TestFile{
		Storage: store,
		Fs:      fs,
		Path:    TestFilePath,
	}
}
