package accounts_test

import (
	"context"
	"testing"

	"github.com/Veraticus/treasury/internal/model"
	"github.com/Veraticus/treasury/internal/testutil"
	"github.com/Veraticus/treasury/internal/testutil/accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SeedsBalances(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	seeded, err := accounts.NewBuilder(t).
		WithPlayer("alice", accounts.Balance(testutil.Dollar, "42.00"), accounts.Balance(testutil.Gem, "3")).
		WithVirtual("server_bank", accounts.Balance(testutil.Dollar, "9000")).
		Build(ctx, db.Storage)
	require.NoError(t, err)
	require.Len(t, seeded, 2)

	alice := seeded.MustFind(t, "alice")
	assert.Equal(t, model.KindUnique, alice.Ref.Kind)

	balance, err := db.Storage.GetBalance(ctx, alice.Ref, testutil.Gem)
	require.NoError(t, err)
	assert.Equal(t, "3.00", balance.StringFixed(2))

	bank := seeded.MustFind(t, "server_bank")
	balance, err = db.Storage.GetBalance(ctx, bank.Ref, testutil.Dollar)
	require.NoError(t, err)
	assert.Equal(t, "9000.00", balance.StringFixed(2))
}

func TestBuilder_DeduplicatesAccounts(t *testing.T) {
	ctx := context.Background()
	file := testutil.SetupTestFile(t)

	seeded, err := accounts.NewBuilder(t).
		WithFixture(accounts.FixtureTied).
		WithPlayer("zed", accounts.Balance(testutil.Dollar, "1")).
		Build(ctx, file.Storage)
	require.NoError(t, err)
	assert.Len(t, seeded, 3)
	assert.Len(t, seeded.Names(), 3)
}

func TestPlayerID_Stable(t *testing.T) {
	assert.Equal(t, accounts.PlayerID("alice"), accounts.PlayerID("alice"))
	assert.NotEqual(t, accounts.PlayerID("alice"), accounts.PlayerID("bob"))
}
