package storage

import (
	"fmt"

	"github.com/Veraticus/treasury/internal/common"
	"github.com/Veraticus/treasury/internal/model"
)

const (
	balanceColumnSuffix = "_balance"
	balanceNodeSuffix   = "-balance"
)

// columnSet maps each currency key to its validated balance column. It is built
// once when a relational backend is opened and never concatenates raw input
// into SQL afterwards.
type columnSet struct {
	byKey map[string]string
	order []string
}

func newColumnSet(currencies []model.Currency) (*columnSet, error) {
	cs := &columnSet{byKey: make(map[string]string, len(currencies))}
	for _, currency := range currencies {
		key := currency.Key()
		if !common.IsIdentifier(key) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidColumn, currency.Name)
		}
		if _, exists := cs.byKey[key]; exists {
			return nil, fmt.Errorf("%w: %q", ErrColumnCollision, currency.Name)
		}
		column := key + balanceColumnSuffix
		cs.byKey[key] = column
		cs.order = append(cs.order, column)
	}
	return cs, nil
}

// column returns the balance column for currency.
func (cs *columnSet) column(currency model.Currency) (string, error) {
	column, ok := cs.byKey[currency.Key()]
	if !ok {
		return "", fmt.Errorf("%w: %q has no balance column", common.ErrUnknownCurrency, currency.Name)
	}
	return column, nil
}

// columns returns every balance column in registration order.
func (cs *columnSet) columns() []string {
	out := make([]string, len(cs.order))
	copy(out, cs.order)
	return out
}

// balanceNode returns the document key holding currency's balance.
func balanceNode(currency model.Currency) string {
	return currency.Key() + balanceNodeSuffix
}
