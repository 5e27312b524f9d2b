// Package currency holds the set of currencies registered in the process.
package currency

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Veraticus/treasury/internal/model"
)

// Registry errors.
var (
	ErrNoCurrencies      = errors.New("at least one currency is required")
	ErrDuplicateCurrency = errors.New("currency already registered")
	ErrMultipleDefaults  = errors.New("only one currency may be the default")
)

// Registry implements service.CurrencyRegistry. Currencies can be added after
// startup; existing accounts pick them up through backfill on next access.
type Registry struct {
	byName     map[string]int
	currencies []model.Currency
	defaultIdx int
	mu         sync.RWMutex
}

// NewRegistry validates currencies and builds a registry. When none is marked
// default, the first one is.
func NewRegistry(currencies []model.Currency) (*Registry, error) {
	if len(currencies) == 0 {
		return nil, ErrNoCurrencies
	}

	r := &Registry{
		byName:     make(map[string]int, len(currencies)),
		defaultIdx: -1,
	}
	for _, c := range currencies {
		if err := r.add(c); err != nil {
			return nil, err
		}
	}
	if r.defaultIdx < 0 {
		r.defaultIdx = 0
		r.currencies[0].Default = true
	}
	return r, nil
}

// Register adds a currency at runtime.
func (r *Registry) Register(c model.Currency) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(c)
}

func (r *Registry) add(c model.Currency) error {
	if err := c.Validate(); err != nil {
		return err
	}
	key := normalize(c.Name)
	if _, ok := r.byName[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCurrency, c.Name)
	}
	if c.Default && r.defaultIdx >= 0 {
		return fmt.Errorf("%w: %s and %s", ErrMultipleDefaults, r.currencies[r.defaultIdx].Name, c.Name)
	}

	r.currencies = append(r.currencies, c)
	r.byName[key] = len(r.currencies) - 1
	if c.Default {
		r.defaultIdx = len(r.currencies) - 1
	}
	return nil
}

// Currencies returns the registered currencies in registration order.
func (r *Registry) Currencies() []model.Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Currency(nil), r.currencies...)
}

// DefaultCurrency returns the default currency.
func (r *Registry) DefaultCurrency() model.Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currencies[r.defaultIdx]
}

// LookupCurrency resolves a currency by name, ignoring case. Underscores in
// name stand for spaces, so command arguments can name multi-word currencies.
func (r *Registry) LookupCurrency(name string) (model.Currency, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byName[normalize(name)]
	if !ok {
		return model.Currency{}, false
	}
	return r.currencies[idx], true
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(name, "_", " ")))
}
