package accounts

import (
	"github.com/Veraticus/treasury/internal/model"
	"github.com/shopspring/decimal"
)

// Fixture represents a predefined set of accounts for testing.
type Fixture interface {
	// Name returns the fixture's descriptive name.
	Name() string

	// Accounts returns the accounts included in this fixture.
	Accounts() []Seeded
}

type fixture struct {
	name     string
	accounts []Seeded
}

func (f *fixture) Name() string       { return f.name }
func (f *fixture) Accounts() []Seeded { return f.accounts }

// fixtureCurrency is the currency fixtures hold balances in. Its name matches
// testutil.Dollar, which is all a backend keys balances on.
var fixtureCurrency = model.Currency{Name: "Dollar", Symbol: "$"}

func player(name, amount string) Seeded {
	return Seeded{
		Name:     name,
		Ref:      model.UniqueRef(PlayerID(name)),
		Holdings: []Holding{{Currency: fixtureCurrency, Amount: decimal.RequireFromString(amount)}},
	}
}

// Predefined fixtures for common test scenarios.
var (
	// FixtureLeaderboard holds seven players in the Dollar currency, so five
	// per page gives one full page and one partial page.
	FixtureLeaderboard = &fixture{
		name: "Leaderboard",
		accounts: []Seeded{
			player("alice", "1500.00"),
			player("bob", "250.50"),
			player("carol", "980.00"),
			player("dave", "12.34"),
			player("erin", "4000.00"),
			player("frank", "0.00"),
			player("grace", "250.50"),
		},
	}

	// FixtureTied holds three players with identical balances.
	FixtureTied = &fixture{
		name: "Tied",
		accounts: []Seeded{
			player("xavier", "100.00"),
			player("yolanda", "100.00"),
			player("zed", "100.00"),
		},
	}
)
