// Package accounts seeds accounts into a backend for tests through a fluent
// builder.
//
// Example usage:
//
//	seeded, err := accounts.NewBuilder(t).
//		WithFixture(accounts.FixtureLeaderboard).
//		WithVirtual("server_bank", accounts.Balance(testutil.Dollar, "5000")).
//		Build(ctx, db.Storage)
package accounts

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/treasury/internal/model"
	"github.com/Veraticus/treasury/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Builder provides a fluent interface for seeding test accounts.
type Builder interface {
	// WithPlayer adds a unique account with the given balances.
	WithPlayer(name string, balances ...Holding) Builder

	// WithVirtual adds a virtual account with the given balances.
	WithVirtual(id string, balances ...Holding) Builder

	// WithFixture adds every account of a predefined fixture.
	WithFixture(fixture Fixture) Builder

	// Build creates the accounts in backend and returns them in insertion order.
	Build(ctx context.Context, backend service.Backend) (Accounts, error)
}

// Holding is one currency balance of a seeded account.
type Holding struct {
	Currency model.Currency
	Amount   decimal.Decimal
}

// Balance builds a Holding from a decimal string; it panics on malformed input.
func Balance(currency model.Currency, amount string) Holding {
	return Holding{Currency: currency, Amount: decimal.RequireFromString(amount)}
}

// Seeded is an account created by the builder.
type Seeded struct {
	Name     string
	Ref      model.AccountRef
	Holdings []Holding
}

// Accounts represents the accounts created by a builder.
type Accounts []Seeded

// Find returns the account with the given name, or nil if not found.
func (a Accounts) Find(name string) *Seeded {
	for i := range a {
		if a[i].Name == name {
			return &a[i]
		}
	}
	return nil
}

// MustFind returns the account with the given name, or fails the test.
func (a Accounts) MustFind(t *testing.T, name string) Seeded {
	t.Helper()
	acct := a.Find(name)
	if acct == nil {
		t.Fatalf("account %q not found in test data", name)
	}
	return *acct
}

// Names maps each unique account id to its seeded name, for use as a name
// resolver table.
func (a Accounts) Names() map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(a))
	for _, acct := range a {
		if acct.Ref.Kind != model.KindUnique {
			continue
		}
		if id, err := uuid.Parse(acct.Ref.ID); err == nil {
			names[id] = acct.Name
		}
	}
	return names
}

type accountBuilder struct {
	t        *testing.T
	accounts []Seeded
	seen     map[string]struct{}
}

// NewBuilder creates a new account builder for the given test.
func NewBuilder(t *testing.T) Builder {
	t.Helper()
	return &accountBuilder{
		t:    t,
		seen: make(map[string]struct{}),
	}
}

// PlayerID derives a stable unique id from a player name so fixtures produce
// the same identifiers in every run.
func PlayerID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("treasury-test:"+name))
}

func (b *accountBuilder) add(seed Seeded) Builder {
	if _, ok := b.seen[seed.Ref.String()]; ok {
		return b
	}
	b.seen[seed.Ref.String()] = struct{}{}
	b.accounts = append(b.accounts, seed)
	return b
}

func (b *accountBuilder) WithPlayer(name string, balances ...Holding) Builder {
	return b.add(Seeded{Name: name, Ref: model.UniqueRef(PlayerID(name)), Holdings: balances})
}

func (b *accountBuilder) WithVirtual(id string, balances ...Holding) Builder {
	return b.add(Seeded{Name: id, Ref: model.VirtualRef(id), Holdings: balances})
}

func (b *accountBuilder) WithFixture(fixture Fixture) Builder {
	for _, seed := range fixture.Accounts() {
		b.add(seed)
	}
	return b
}

func (b *accountBuilder) Build(ctx context.Context, backend service.Backend) (Accounts, error) {
	b.t.Helper()

	for _, acct := range b.accounts {
		currencies := make([]model.Currency, len(acct.Holdings))
		for i, h := range acct.Holdings {
			currencies[i] = h.Currency
		}
		defaults := model.AccountDefaults{
			Currencies:       currencies,
			Job:              model.DefaultJob,
			JobNotifications: true,
		}
		if err := backend.CreateAccount(ctx, acct.Ref, defaults); err != nil {
			return nil, fmt.Errorf("failed to seed account %q: %w", acct.Name, err)
		}
		for _, h := range acct.Holdings {
			if err := backend.SetBalance(ctx, acct.Ref, h.Currency, h.Amount); err != nil {
				return nil, fmt.Errorf("failed to seed %s balance for %q: %w", h.Currency.Name, acct.Name, err)
			}
		}
	}

	return append(Accounts(nil), b.accounts...), nil
}
