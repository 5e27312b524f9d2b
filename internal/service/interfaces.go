// Package service defines the interfaces between the account store, its
// storage backends and the collaborators it consumes.
package service

import (
	"context"

	"github.com/Veraticus/treasury/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Backend defines the contract every persistence technology implements.
// Read paths report missing accounts with errors wrapping common.ErrAccountNotFound
// and missing balance entries with common.ErrNoBalance.
type Backend interface {
	// Account lifecycle
	AccountExists(ctx context.Context, ref model.AccountRef) (bool, error)
	// CreateAccount is idempotent: an existing account keeps its balances and
	// only gains the currencies it is missing.
	CreateAccount(ctx context.Context, ref model.AccountRef, defaults model.AccountDefaults) error
	BackfillBalances(ctx context.Context, ref model.AccountRef, currencies []model.Currency) error

	// Balance operations
	HasBalance(ctx context.Context, ref model.AccountRef, currency model.Currency) (bool, error)
	GetBalance(ctx context.Context, ref model.AccountRef, currency model.Currency) (decimal.Decimal, error)
	SetBalance(ctx context.Context, ref model.AccountRef, currency model.Currency, amount decimal.Decimal) error

	// Job attributes, unique accounts only
	GetJob(ctx context.Context, id string) (string, error)
	SetJob(ctx context.Context, id, job string) error
	GetJobNotificationState(ctx context.Context, id string) (bool, error)
	SetJobNotificationState(ctx context.Context, id string, enabled bool) error

	// TopBalances returns accounts of the given kind holding a balance in currency,
	// ordered by balance descending then identifier ascending.
	TopBalances(ctx context.Context, kind model.AccountKind, currency model.Currency, offset, limit int) ([]model.BalanceEntry, error)

	// Name identifies the backend in logs.
	Name() string
	Close() error
}

// Flusher is implemented by backends whose mutations are held in memory until
// explicitly written to durable storage.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Reloader is implemented by backends that can re-read their durable state.
type Reloader interface {
	Reload(ctx context.Context) error
}

// NameResolver maps a player's unique id to a display name.
type NameResolver interface {
	ResolveDisplayName(ctx context.Context, id uuid.UUID) (string, bool)
}

// CurrencyRegistry exposes the currencies currently registered in the process.
type CurrencyRegistry interface {
	Currencies() []model.Currency
	DefaultCurrency() model.Currency
	LookupCurrency(name string) (model.Currency, bool)
}

// Messenger delivers a user-facing message, identified by key, to a player.
// Formatting and localization belong to the implementation.
type Messenger interface {
	Notify(ctx context.Context, recipient uuid.UUID, key string)
}
