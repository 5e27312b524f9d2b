package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/treasury/internal/common"
	"github.com/Veraticus/treasury/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewColumnSet(t *testing.T) {
	tests := []struct {
		wantErr    error
		name       string
		currencies []model.Currency
		want       []string
	}{
		{
			name:       "lowercases names",
			currencies: []model.Currency{{Name: "Dollar"}, {Name: "gold_coin"}},
			want:       []string{"dollar_balance", "gold_coin_balance"},
		},
		{
			name:       "rejects spaces",
			currencies: []model.Currency{{Name: "Gold Coin"}},
			wantErr:    ErrInvalidColumn,
		},
		{
			name:       "rejects injection",
			currencies: []model.Currency{{Name: "x; DROP TABLE accounts"}},
			wantErr:    ErrInvalidColumn,
		},
		{
			name:       "rejects leading digit",
			currencies: []model.Currency{{Name: "1up"}},
			wantErr:    ErrInvalidColumn,
		},
		{
			name:       "rejects case collisions",
			currencies: []model.Currency{{Name: "Dollar"}, {Name: "DOLLAR"}},
			wantErr:    ErrColumnCollision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := newColumnSet(tt.currencies)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cs.columns())
		})
	}
}

func TestColumnSet_UnknownCurrency(t *testing.T) {
	cs, err := newColumnSet([]model.Currency{dollar})
	require.NoError(t, err)

	column, err := cs.column(model.Currency{Name: "DOLLAR"})
	require.NoError(t, err)
	assert.Equal(t, "dollar_balance", column)

	_, err = cs.column(gem)
	assert.ErrorIs(t, err, common.ErrUnknownCurrency)
}

func TestDialect_Rebind(t *testing.T) {
	sqlite, err := lookupDialect("sqlite")
	require.NoError(t, err)
	postgres, err := lookupDialect("Postgres")
	require.NoError(t, err)

	query := `UPDATE accounts SET dollar_balance = ? WHERE uid = ? AND dollar_balance IS NULL`
	assert.Equal(t, query, sqlite.rebind(query))
	assert.Equal(t,
		`UPDATE accounts SET dollar_balance = $1 WHERE uid = $2 AND dollar_balance IS NULL`,
		postgres.rebind(query))

	_, err = lookupDialect("mysql")
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}

func TestSQLStorage_MigrateIsIdempotent(t *testing.T) {
	store := newTestSQLStorage(t, dollar, gem)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	for _, table := range []string{accountsTable, virtualAccountsTable} {
		columns, err := store.tableColumns(ctx, table)
		require.NoError(t, err)
		assert.True(t, columns["uid"], table)
		assert.True(t, columns["dollar_balance"], table)
		assert.True(t, columns["gem_balance"], table)
	}

	columns, err := store.tableColumns(ctx, accountsTable)
	require.NoError(t, err)
	assert.True(t, columns["job"])
	assert.True(t, columns["job_notifications"])

	var indexCount int
	err = store.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name='idx_accounts_dollar_balance'
	`).Scan(&indexCount)
	require.NoError(t, err)
	assert.Equal(t, 1, indexCount)
}

func TestSQLStorage_NewCurrencyAfterRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "accounts.db")
	ref := model.UniqueRef(uuid.New())

	first := openTestSQLStorage(t, path, dollar)
	require.NoError(t, first.CreateAccount(ctx, ref, defaults(dollar)))
	require.NoError(t, first.SetBalance(ctx, ref, dollar, dec("64.00")))
	require.NoError(t, first.Close())

	second := openTestSQLStorage(t, path, dollar, gem)

	has, err := second.HasBalance(ctx, ref, gem)
	require.NoError(t, err)
	assert.False(t, has, "migrated column starts NULL for existing rows")

	_, err = second.GetBalance(ctx, ref, gem)
	assert.ErrorIs(t, err, common.ErrNoBalance)

	require.NoError(t, second.BackfillBalances(ctx, ref, []model.Currency{dollar, gem}))

	balance, err := second.GetBalance(ctx, ref, gem)
	require.NoError(t, err)
	assert.Equal(t, "2.50", balance.StringFixed(2))

	balance, err = second.GetBalance(ctx, ref, dollar)
	require.NoError(t, err)
	assert.Equal(t, "64.00", balance.StringFixed(2))
}

func TestSQLStorage_BalancesKeepExactCents(t *testing.T) {
	store := newTestSQLStorage(t, dollar)
	ctx := context.Background()
	ref := model.UniqueRef(uuid.New())
	require.NoError(t, store.CreateAccount(ctx, ref, defaults(dollar)))

	amounts := []string{
		"0.10",
		"-0.01",
		"12345.67",
		"123456789012345.67",
		"9999999999999999.99",
		"92233720368547758.07",
		"-92233720368547758.08",
	}
	for _, amount := range amounts {
		t.Run(amount, func(t *testing.T) {
			require.NoError(t, store.SetBalance(ctx, ref, dollar, dec(amount)))

			balance, err := store.GetBalance(ctx, ref, dollar)
			require.NoError(t, err)
			assert.Equal(t, amount, balance.StringFixed(2))

			var storedType string
			require.NoError(t, store.db.QueryRowContext(ctx,
				`SELECT typeof(dollar_balance) FROM accounts WHERE uid = ?`, ref.ID).Scan(&storedType))
			assert.Equal(t, "integer", storedType)
		})
	}

	require.NoError(t, store.SetBalance(ctx, ref, dollar, dec("5.00")))
	err := store.SetBalance(ctx, ref, dollar, dec("99999999999999999.99"))
	require.ErrorIs(t, err, ErrBalanceOutOfRange)

	balance, err := store.GetBalance(ctx, ref, dollar)
	require.NoError(t, err)
	assert.Equal(t, "5.00", balance.StringFixed(2), "rejected write leaves the balance alone")
}

func TestSQLStorage_TopBalancesOrderLargeValuesExactly(t *testing.T) {
	store := newTestSQLStorage(t, dollar)
	ctx := context.Background()

	balances := map[string]string{
		"vault_a": "123456789012345.67",
		"vault_b": "123456789012345.66",
		"vault_c": "123456789012345.68",
	}
	for id, amount := range balances {
		ref := model.VirtualRef(id)
		require.NoError(t, store.CreateAccount(ctx, ref, defaults(dollar)))
		require.NoError(t, store.SetBalance(ctx, ref, dollar, dec(amount)))
	}

	entries, err := store.TopBalances(ctx, model.KindVirtual, dollar, 0, 5)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "vault_c", entries[0].ID)
	assert.Equal(t, "vault_a", entries[1].ID)
	assert.Equal(t, "vault_b", entries[2].ID)
	assert.Equal(t, "123456789012345.68", entries[0].Balance.StringFixed(2))
}

func TestDialect_BalanceArg(t *testing.T) {
	sqlite, err := lookupDialect(DialectSQLite)
	require.NoError(t, err)
	postgres, err := lookupDialect(DialectPostgres)
	require.NoError(t, err)

	value, err := sqlite.balanceArg(dec("12.345"))
	require.NoError(t, err)
	assert.Equal(t, int64(1235), value)
	assert.Equal(t, "12.35", sqlite.balanceValue(decimal.NewFromInt(1235)).StringFixed(2))

	value, err = postgres.balanceArg(dec("12.345"))
	require.NoError(t, err)
	assert.True(t, dec("12.35").Equal(value.(decimal.Decimal)))
	assert.Equal(t, "12.35", postgres.balanceValue(dec("12.35")).StringFixed(2))

	_, err = sqlite.balanceArg(dec("92233720368547758.08"))
	assert.ErrorIs(t, err, ErrBalanceOutOfRange)
}

func TestSQLStorage_UnregisteredCurrency(t *testing.T) {
	store := newTestSQLStorage(t, dollar)
	ctx := context.Background()
	ref := model.UniqueRef(uuid.New())

	// Currencies without a column are skipped rather than failing creation
	require.NoError(t, store.CreateAccount(ctx, ref, defaults(dollar, gem)))

	_, err := store.GetBalance(ctx, ref, gem)
	assert.ErrorIs(t, err, common.ErrUnknownCurrency)

	err = store.SetBalance(ctx, ref, gem, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, common.ErrUnknownCurrency)
}

func TestNewSQLStorage_Errors(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "accounts.db")

	_, err := NewSQLStorage(ctx, "oracle", path, []model.Currency{dollar}, SQLOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedDialect)

	_, err = NewSQLStorage(ctx, DialectSQLite, "", []model.Currency{dollar}, SQLOptions{})
	assert.ErrorIs(t, err, ErrEmptyString)

	_, err = NewSQLStorage(ctx, DialectSQLite, path, []model.Currency{{Name: "gold coin"}}, SQLOptions{})
	assert.ErrorIs(t, err, ErrInvalidColumn)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	backend, err := Open(ctx, Options{Backend: "SQLite", DSN: filepath.Join(t.TempDir(), "a.db")}, []model.Currency{dollar})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	assert.Equal(t, "sqlite", backend.Name())

	ref := model.VirtualRef("bank")
	require.NoError(t, backend.CreateAccount(ctx, ref, defaults(dollar)))

	fileBackend, err := Open(ctx, Options{Path: filepath.Join(t.TempDir(), "accounts.toml")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "file", fileBackend.Name())

	_, err = Open(ctx, Options{Backend: "redis"}, nil)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
