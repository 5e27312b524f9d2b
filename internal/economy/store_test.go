package economy

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/treasury/internal/common"
	"github.com/Veraticus/treasury/internal/currency"
	"github.com/Veraticus/treasury/internal/model"
	"github.com/Veraticus/treasury/internal/service"
	"github.com/Veraticus/treasury/internal/storage"
	"github.com/Veraticus/treasury/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T, currencies ...model.Currency) *currency.Registry {
	t.Helper()
	if len(currencies) == 0 {
		currencies = testutil.DefaultCurrencies()
	}
	r, err := currency.NewRegistry(currencies)
	require.NoError(t, err)
	return r
}

func forEachBackend(t *testing.T, fn func(t *testing.T, backend service.Backend)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) {
		fn(t, testutil.SetupTestDB(t).Storage)
	})
	t.Run("file", func(t *testing.T) {
		fn(t, testutil.SetupTestFile(t).Storage)
	})
}

func TestStore_GetOrCreateAccount_StartingBalances(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend service.Backend) {
		ctx := context.Background()
		store := newStore(backend, newRegistry(t), nil, Options{JobNotificationsDefault: true})
		id := uuid.New()

		exists, err := store.HasAccount(ctx, id)
		require.NoError(t, err)
		assert.False(t, exists)

		account := store.GetOrCreateAccount(ctx, id)
		require.NotNil(t, account)
		assert.Equal(t, id.String(), account.ID())
		assert.Equal(t, model.KindUnique, account.Kind())

		exists, err = store.HasAccount(ctx, id)
		require.NoError(t, err)
		assert.True(t, exists)

		for _, c := range store.Currencies() {
			has, err := account.HasBalance(ctx, c)
			require.NoError(t, err)
			assert.True(t, has, c.Name)

			balance, err := account.Balance(ctx, c)
			require.NoError(t, err)
			assert.True(t, c.StartingBalance.Equal(balance), "%s: got %s", c.Name, balance)
			assert.True(t, account.DefaultBalance(c).Equal(c.StartingBalance))
		}

		job, err := account.Job(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.DefaultJob, job)

		enabled, err := account.JobNotifications(ctx)
		require.NoError(t, err)
		assert.True(t, enabled)
	})
}

func TestStore_GetOrCreateAccount_Idempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend service.Backend) {
		ctx := context.Background()
		store := newStore(backend, newRegistry(t), nil, Options{})
		id := uuid.New()

		account := store.GetOrCreateAccount(ctx, id)
		require.NoError(t, account.SetBalance(ctx, testutil.Dollar, decimal.RequireFromString("123.456")))

		again := store.GetOrCreateAccount(ctx, id)
		balance, err := again.Balance(ctx, testutil.Dollar)
		require.NoError(t, err)
		assert.Equal(t, "123.46", balance.StringFixed(2), "stored rounded to two places")

		gems, err := again.Balance(ctx, testutil.Gem)
		require.NoError(t, err)
		assert.Equal(t, "2.50", gems.StringFixed(2))
	})
}

func TestStore_GetOrCreateAccount_BackfillsNewCurrency(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend service.Backend) {
		ctx := context.Background()
		registry := newRegistry(t, testutil.Dollar)
		store := newStore(backend, registry, nil, Options{})
		id := uuid.New()

		account := store.GetOrCreateAccount(ctx, id)
		require.NoError(t, account.SetBalance(ctx, testutil.Dollar, decimal.NewFromInt(77)))

		has, err := account.HasBalance(ctx, testutil.Gem)
		require.NoError(t, err)
		assert.False(t, has)

		require.NoError(t, registry.Register(testutil.Gem))
		account = store.GetOrCreateAccount(ctx, id)

		has, err = account.HasBalance(ctx, testutil.Gem)
		require.NoError(t, err)
		assert.True(t, has)

		gems, err := account.Balance(ctx, testutil.Gem)
		require.NoError(t, err)
		assert.Equal(t, "2.50", gems.StringFixed(2))

		dollars, err := account.Balance(ctx, testutil.Dollar)
		require.NoError(t, err)
		assert.Equal(t, "77.00", dollars.StringFixed(2))
	})
}

func TestStore_VirtualAccounts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend service.Backend) {
		ctx := context.Background()
		store := newStore(backend, newRegistry(t), nil, Options{})

		bank := store.GetOrCreateVirtualAccount(ctx, "server_bank")
		assert.Equal(t, model.KindVirtual, bank.Kind())
		_, ok := bank.UniqueID()
		assert.False(t, ok)

		exists, err := store.HasVirtualAccount(ctx, "server_bank")
		require.NoError(t, err)
		assert.True(t, exists)

		_, err = bank.Job(ctx)
		assert.ErrorIs(t, err, ErrVirtualAccount)
		assert.ErrorIs(t, bank.SetJob(ctx, "banker"), ErrVirtualAccount)
		_, err = bank.JobNotifications(ctx)
		assert.ErrorIs(t, err, ErrVirtualAccount)
	})
}

func TestStore_SetJob(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend service.Backend) {
		ctx := context.Background()
		store := newStore(backend, newRegistry(t), nil, Options{})
		id := uuid.New()

		account := store.GetOrCreateAccount(ctx, id)
		uid, ok := account.UniqueID()
		require.True(t, ok)
		assert.Equal(t, id, uid)

		require.NoError(t, account.SetJob(ctx, "miner"))
		job, err := account.Job(ctx)
		require.NoError(t, err)
		assert.Equal(t, "miner", job)
	})
}

func TestStore_CreationFailureStillReturnsAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := newStore(db.Storage, newRegistry(t), nil, Options{})
	require.NoError(t, db.Storage.Close())

	var logs bytes.Buffer
	previous := slog.Default()
	require.NoError(t, common.SetupLoggerTo(&logs, "debug", "json"))
	t.Cleanup(func() { slog.SetDefault(previous) })

	id := uuid.New()
	account := store.GetOrCreateAccount(context.Background(), id)
	require.NotNil(t, account)
	assert.Equal(t, model.KindUnique, account.Kind())

	assert.Contains(t, logs.String(), `"level":"ERROR"`)
	assert.Contains(t, logs.String(), `"account":"`+model.UniqueRef(id).String()+`"`)
	assert.Contains(t, logs.String(), `"backend":"sqlite"`)
	assert.Contains(t, logs.String(), `"error":`)
}

func TestStore_WriteThroughBackendIgnoresSaves(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewStore(db.Storage, newRegistry(t), nil, Options{SaveInterval: time.Second})
	ctx := context.Background()

	require.NoError(t, store.RequestConfigurationSave(ctx))
	assert.False(t, store.Dirty())
	require.NoError(t, store.Flush(ctx))
	assert.ErrorIs(t, store.Reload(ctx), ErrReloadUnsupported)
	require.NoError(t, store.Close(ctx))
}

func TestStore_AutosaveCoalescesMutations(t *testing.T) {
	ctx := context.Background()
	file := testutil.SetupTestFile(t)
	store := newStore(file.Storage, newRegistry(t), nil, Options{SaveInterval: time.Hour})

	ticks := make(chan time.Time)
	store.autosave = startAutosave(ctx, store.save, ticks, func() {})

	account := store.GetOrCreateAccount(ctx, uuid.New())
	for i := 1; i <= 25; i++ {
		require.NoError(t, account.SetBalance(ctx, testutil.Dollar, decimal.NewFromInt(int64(i))))
	}
	assert.True(t, store.Dirty())
	assert.Equal(t, 0, file.Fs.Writes(), "nothing written before a tick")

	ticks <- time.Now()
	// The loop only receives the second tick once the first flush returned.
	ticks <- time.Now()
	assert.Equal(t, 1, file.Fs.Writes())
	assert.False(t, store.Dirty())

	// A tick with nothing pending is a no-op
	ticks <- time.Now()
	ticks <- time.Now()
	assert.Equal(t, 1, file.Fs.Writes())

	require.NoError(t, store.Close(ctx))
	assert.Equal(t, 1, file.Fs.Writes())
}

func TestStore_ImmediateSaveWithoutInterval(t *testing.T) {
	ctx := context.Background()
	file := testutil.SetupTestFile(t)
	store := NewStore(file.Storage, newRegistry(t), nil, Options{SaveInterval: 0})

	account := store.GetOrCreateAccount(ctx, uuid.New())
	assert.Equal(t, 1, file.Fs.Writes(), "creation is flushed")

	for i := 0; i < 3; i++ {
		require.NoError(t, account.SetBalance(ctx, testutil.Dollar, decimal.NewFromInt(int64(i))))
	}
	assert.Equal(t, 4, file.Fs.Writes())
	assert.False(t, store.Dirty())
}

func TestStore_FailedImmediateSaveStaysDirty(t *testing.T) {
	ctx := context.Background()
	file := testutil.SetupTestFile(t)
	store := NewStore(file.Storage, newRegistry(t), nil, Options{})
	account := store.GetOrCreateAccount(ctx, uuid.New())

	file.Fs.FailWrites(true)
	require.NoError(t, account.SetBalance(ctx, testutil.Dollar, decimal.NewFromInt(5)), "in-memory mutation succeeds")
	assert.True(t, store.Dirty())
	assert.Error(t, store.RequestConfigurationSave(ctx))

	file.Fs.FailWrites(false)
	require.NoError(t, store.RequestConfigurationSave(ctx))
	assert.False(t, store.Dirty())
}

func TestStore_CloseFlushesPending(t *testing.T) {
	ctx := context.Background()
	file := testutil.SetupTestFile(t)
	store := NewStore(file.Storage, newRegistry(t), nil, Options{SaveInterval: time.Hour})
	id := uuid.New()

	account := store.GetOrCreateAccount(ctx, id)
	require.NoError(t, account.SetBalance(ctx, testutil.Dollar, decimal.NewFromInt(314)))
	require.NoError(t, store.Close(ctx))
	assert.Equal(t, 1, file.Fs.Writes())

	reopened := testutil.SetupTestFileOn(t, file.Fs)
	balance, err := reopened.Storage.GetBalance(ctx, model.UniqueRef(id), testutil.Dollar)
	require.NoError(t, err)
	assert.Equal(t, "314.00", balance.StringFixed(2))
}

func TestStore_ReloadDiscardsPending(t *testing.T) {
	ctx := context.Background()
	file := testutil.SetupTestFile(t)
	store := NewStore(file.Storage, newRegistry(t), nil, Options{SaveInterval: time.Hour})
	t.Cleanup(func() { _ = store.Close(ctx) })

	account := store.GetOrCreateVirtualAccount(ctx, "shop")
	require.NoError(t, store.Flush(ctx))
	require.NoError(t, account.SetBalance(ctx, testutil.Dollar, decimal.NewFromInt(1000)))
	assert.True(t, store.Dirty())

	require.NoError(t, store.Reload(ctx))
	assert.False(t, store.Dirty())

	balance, err := account.Balance(ctx, testutil.Dollar)
	require.NoError(t, err)
	assert.Equal(t, "10.00", balance.StringFixed(2))
}

func TestStore_ConcurrentMutationsAndFlushes(t *testing.T) {
	ctx := context.Background()
	file := testutil.SetupTestFile(t)
	store := NewStore(file.Storage, newRegistry(t), nil, Options{SaveInterval: time.Millisecond})

	const players = 20
	ids := make([]uuid.UUID, players)
	for i := range ids {
		ids[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			account := store.GetOrCreateAccount(ctx, id)
			assert.NoError(t, account.SetBalance(ctx, testutil.Dollar, decimal.NewFromInt(int64(i))))
			assert.NoError(t, store.Flush(ctx))
		}(i, id)
	}
	wg.Wait()
	require.NoError(t, store.Close(ctx))

	reopened, err := storage.NewFileStorage(file.Fs, file.Path)
	require.NoError(t, err)
	for i, id := range ids {
		balance, err := reopened.GetBalance(ctx, model.UniqueRef(id), testutil.Dollar)
		require.NoError(t, err)
		assert.Equal(t, int64(i), balance.IntPart())
	}
}
