package currency

import (
	"testing"

	"github.com/Veraticus/treasury/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		wantErr     error
		name        string
		wantDefault string
		currencies  []model.Currency
	}{
		{
			name:       "empty",
			currencies: nil,
			wantErr:    ErrNoCurrencies,
		},
		{
			name:        "first becomes default",
			currencies:  []model.Currency{{Name: "Dollar"}, {Name: "Gem"}},
			wantDefault: "Dollar",
		},
		{
			name:        "explicit default",
			currencies:  []model.Currency{{Name: "Dollar"}, {Name: "Gem", Default: true}},
			wantDefault: "Gem",
		},
		{
			name:       "two defaults",
			currencies: []model.Currency{{Name: "Dollar", Default: true}, {Name: "Gem", Default: true}},
			wantErr:    ErrMultipleDefaults,
		},
		{
			name:       "duplicate ignoring case",
			currencies: []model.Currency{{Name: "Dollar"}, {Name: "DOLLAR"}},
			wantErr:    ErrDuplicateCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRegistry(tt.currencies)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDefault, r.DefaultCurrency().Name)
			assert.True(t, r.DefaultCurrency().Default)
		})
	}
}

func TestNewRegistry_RejectsNegativeStartingBalance(t *testing.T) {
	_, err := NewRegistry([]model.Currency{{Name: "Debt", StartingBalance: decimal.NewFromInt(-1)}})
	assert.Error(t, err)
}

func TestRegistry_LookupCurrency(t *testing.T) {
	r, err := NewRegistry([]model.Currency{{Name: "Dollar"}, {Name: "Gold Coin"}})
	require.NoError(t, err)

	for _, name := range []string{"dollar", "DOLLAR", " Dollar "} {
		c, ok := r.LookupCurrency(name)
		assert.True(t, ok, name)
		assert.Equal(t, "Dollar", c.Name)
	}

	c, ok := r.LookupCurrency("gold_coin")
	assert.True(t, ok)
	assert.Equal(t, "Gold Coin", c.Name)

	_, ok = r.LookupCurrency("ruby")
	assert.False(t, ok)
}

func TestRegistry_Register(t *testing.T) {
	r, err := NewRegistry([]model.Currency{{Name: "Dollar"}})
	require.NoError(t, err)

	require.NoError(t, r.Register(model.Currency{Name: "Gem"}))
	assert.Len(t, r.Currencies(), 2)

	assert.ErrorIs(t, r.Register(model.Currency{Name: "gem"}), ErrDuplicateCurrency)
	assert.ErrorIs(t, r.Register(model.Currency{Name: "Ruby", Default: true}), ErrMultipleDefaults)

	// Returned slice is a copy
	list := r.Currencies()
	list[0].Name = "changed"
	assert.Equal(t, "Dollar", r.Currencies()[0].Name)
}
