package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultJob is the job assigned to newly created unique accounts.
const DefaultJob = "unemployed"

// AccountKind separates player accounts from virtual ones.
type AccountKind int

// Account kinds.
const (
	KindUnique AccountKind = iota
	KindVirtual
)

func (k AccountKind) String() string {
	switch k {
	case KindUnique:
		return "unique"
	case KindVirtual:
		return "virtual"
	default:
		return fmt.Sprintf("AccountKind(%d)", int(k))
	}
}

// AccountRef identifies an account in whichever backend is active.
// Unique accounts use the canonical string form of their UUID as ID.
type AccountRef struct {
	ID   string
	Kind AccountKind
}

// UniqueRef builds a reference to a player account.
func UniqueRef(id uuid.UUID) AccountRef {
	return AccountRef{Kind: KindUnique, ID: id.String()}
}

// VirtualRef builds a reference to a virtual account.
func VirtualRef(identifier string) AccountRef {
	return AccountRef{Kind: KindVirtual, ID: identifier}
}

func (r AccountRef) String() string {
	return r.Kind.String() + ":" + r.ID
}

// AccountDefaults holds the values a freshly created account starts with.
// Job fields are ignored for virtual accounts.
type AccountDefaults struct {
	Job              string
	Currencies       []Currency
	JobNotifications bool
}

// BalanceEntry is a single (identifier, balance) pair returned by a backend ranking query.
type BalanceEntry struct {
	Balance decimal.Decimal
	ID      string
}
