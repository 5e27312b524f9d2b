package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/treasury/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrVirtualAccount is returned by job operations on a virtual account.
var ErrVirtualAccount = errors.New("virtual accounts have no job")

// Account is a handle on one account in the store's backend. It holds no
// state of its own: every read goes to the backend.
type Account struct {
	store *Store
	ref   model.AccountRef
}

// ID returns the account identifier.
func (a *Account) ID() string {
	return a.ref.ID
}

// Ref returns the backend reference.
func (a *Account) Ref() model.AccountRef {
	return a.ref
}

// Kind returns whether the account is unique or virtual.
func (a *Account) Kind() model.AccountKind {
	return a.ref.Kind
}

// UniqueID returns the player id of a unique account.
func (a *Account) UniqueID() (uuid.UUID, bool) {
	if a.ref.Kind != model.KindUnique {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(a.ref.ID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Balance returns the balance held in currency.
func (a *Account) Balance(ctx context.Context, currency model.Currency) (decimal.Decimal, error) {
	return a.store.backend.GetBalance(ctx, a.ref, currency)
}

// SetBalance stores amount rounded to two places and requests a save.
func (a *Account) SetBalance(ctx context.Context, currency model.Currency, amount decimal.Decimal) error {
	if err := a.store.backend.SetBalance(ctx, a.ref, currency, amount.Round(2)); err != nil {
		return fmt.Errorf("failed to set %s balance for %s: %w", currency.Name, a.ref, err)
	}
	a.store.requestSave(ctx)
	return nil
}

// HasBalance reports whether the account holds a balance entry for currency.
func (a *Account) HasBalance(ctx context.Context, currency model.Currency) (bool, error) {
	return a.store.backend.HasBalance(ctx, a.ref, currency)
}

// DefaultBalance returns the starting balance for currency.
func (a *Account) DefaultBalance(currency model.Currency) decimal.Decimal {
	return currency.StartingBalance
}

// Job returns the player's job.
func (a *Account) Job(ctx context.Context) (string, error) {
	if a.ref.Kind != model.KindUnique {
		return "", ErrVirtualAccount
	}
	return a.store.backend.GetJob(ctx, a.ref.ID)
}

// SetJob changes the player's job and requests a save.
func (a *Account) SetJob(ctx context.Context, job string) error {
	if a.ref.Kind != model.KindUnique {
		return ErrVirtualAccount
	}
	if err := a.store.backend.SetJob(ctx, a.ref.ID, job); err != nil {
		return fmt.Errorf("failed to set job for %s: %w", a.ref, err)
	}
	a.store.requestSave(ctx)
	return nil
}

// JobNotifications returns whether the player receives job notifications.
func (a *Account) JobNotifications(ctx context.Context) (bool, error) {
	if a.ref.Kind != model.KindUnique {
		return false, ErrVirtualAccount
	}
	return a.store.backend.GetJobNotificationState(ctx, a.ref.ID)
}
