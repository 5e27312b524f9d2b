package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BalanceEntries is a slice of BalanceEntry ordered for ranking.
type BalanceEntries []BalanceEntry

// Len implements sort.Interface.
func (e BalanceEntries) Len() int {
	return len(e)
}

// Less implements sort.Interface - higher balances come first.
func (e BalanceEntries) Less(i, j int) bool {
	if c := e[i].Balance.Cmp(e[j].Balance); c != 0 {
		return c > 0
	}
	// Equal balances fall back to identifier order so pages stay stable
	return e[i].ID < e[j].ID
}

// Swap implements sort.Interface.
func (e BalanceEntries) Swap(i, j int) {
	e[i], e[j] = e[j], e[i]
}

// Sort orders the entries by balance descending, identifier ascending.
func (e BalanceEntries) Sort() {
	sort.Sort(e)
}

// Window returns the [offset, offset+limit) slice of the entries, clamped to bounds.
func (e BalanceEntries) Window(offset, limit int) BalanceEntries {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(e) || limit <= 0 {
		return BalanceEntries{}
	}
	end := offset + limit
	if end > len(e) {
		end = len(e)
	}
	return e[offset:end]
}

// RankedBalance is one rendered leaderboard row.
type RankedBalance struct {
	Balance     decimal.Decimal
	ID          string
	DisplayName string
	Formatted   string
	Rank        int
}

// BalancePage is one page of a leaderboard query.
type BalancePage struct {
	Currency Currency
	Rows     []RankedBalance
	Kind     AccountKind
	Page     int
	PageSize int
	HasPrev  bool
	HasNext  bool
}
