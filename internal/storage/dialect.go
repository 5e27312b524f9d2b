package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Dialect names accepted by NewSQLStorage.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// queryable is satisfied by *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// balanceScale is the number of decimal places every stored balance keeps.
const balanceScale = 2

// dialect captures the few places SQLite and Postgres disagree.
type dialect struct {
	name        string
	driver      string
	columnQuery string
	balanceType string
	positional  bool
	// minorUnits stores balances as integer cents. SQLite gives NUMERIC
	// columns REAL affinity, which would pass every balance through a float.
	minorUnits bool
}

var dialects = map[string]dialect{
	DialectSQLite: {
		name:        DialectSQLite,
		driver:      "sqlite3",
		columnQuery: `SELECT name FROM pragma_table_info(?)`,
		balanceType: "INTEGER",
		minorUnits:  true,
	},
	DialectPostgres: {
		name:        DialectPostgres,
		driver:      "pgx",
		columnQuery: `SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ?`,
		balanceType: "NUMERIC(19,2)",
		positional:  true,
	},
}

func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedDialect, name)
	}
	return d, nil
}

// rebind rewrites ? placeholders into $n form for dialects that need it.
// Queries built here never contain literal question marks.
func (d dialect) rebind(query string) string {
	if !d.positional {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// balanceArg converts a balance into the value bound for its column.
func (d dialect) balanceArg(amount decimal.Decimal) (any, error) {
	amount = amount.Round(balanceScale)
	if !d.minorUnits {
		return amount, nil
	}
	cents := amount.Shift(balanceScale).BigInt()
	if !cents.IsInt64() {
		return nil, fmt.Errorf("%w: %s", ErrBalanceOutOfRange, amount.StringFixed(balanceScale))
	}
	return cents.Int64(), nil
}

// balanceValue converts a scanned column value back into a balance.
func (d dialect) balanceValue(stored decimal.Decimal) decimal.Decimal {
	if d.minorUnits {
		stored = stored.Shift(-balanceScale)
	}
	return stored.Round(balanceScale)
}
