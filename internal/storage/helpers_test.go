package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/treasury/internal/model"
	"github.com/Veraticus/treasury/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var (
	dollar = model.Currency{Name: "Dollar", PluralName: "Dollars", Symbol: "$", StartingBalance: decimal.RequireFromString("10.00"), Default: true}
	gem    = model.Currency{Name: "Gem", PluralName: "Gems", Symbol: "♦", StartingBalance: decimal.RequireFromString("2.50")}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestSQLStorage opens a migrated SQLite backend in a temp directory.
func newTestSQLStorage(t *testing.T, currencies ...model.Currency) *SQLStorage {
	t.Helper()
	return openTestSQLStorage(t, filepath.Join(t.TempDir(), "accounts.db"), currencies...)
}

func openTestSQLStorage(t *testing.T, path string, currencies ...model.Currency) *SQLStorage {
	t.Helper()
	ctx := context.Background()

	store, err := NewSQLStorage(ctx, DialectSQLite, path, currencies, SQLOptions{})
	require.NoError(t, err, "failed to create storage")
	require.NoError(t, store.Migrate(ctx), "failed to migrate")

	t.Cleanup(func() { _ = store.Close() })
	return store
}

// newTestFileStorage opens a file backend on an in-memory filesystem.
func newTestFileStorage(t *testing.T) (*FileStorage, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewFileStorage(fs, "/data/accounts.toml")
	require.NoError(t, err)
	return store, fs
}

// forEachBackend runs fn against both backend implementations.
func forEachBackend(t *testing.T, fn func(t *testing.T, backend service.Backend)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newTestSQLStorage(t, dollar, gem))
	})
	t.Run("file", func(t *testing.T) {
		store, _ := newTestFileStorage(t)
		fn(t, store)
	})
}

func defaults(currencies ...model.Currency) model.AccountDefaults {
	return model.AccountDefaults{
		Currencies:       currencies,
		Job:              model.DefaultJob,
		JobNotifications: true,
	}
}
