// Package model defines the core data types shared by the account store,
// its storage backends and the balance ranking engine.
package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an externally defined unit of account. The store only relies on
// its name (as a storage key) and its starting balance.
type Currency struct {
	Name            string
	PluralName      string
	Symbol          string
	StartingBalance decimal.Decimal
	Default         bool
}

// Key returns the lowercase name that storage layouts derive field names from.
func (c Currency) Key() string {
	return strings.ToLower(strings.TrimSpace(c.Name))
}

// Validate ensures the currency can be used as a storage key.
func (c Currency) Validate() error {
	if c.Key() == "" {
		return fmt.Errorf("currency name is required")
	}
	if c.StartingBalance.IsNegative() {
		return fmt.Errorf("currency %q has a negative starting balance", c.Name)
	}
	return nil
}

func (c Currency) String() string {
	return c.Name
}
