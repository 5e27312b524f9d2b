package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/treasury/internal/model"
	"github.com/shopspring/decimal"
)

// TopBalances runs a single ordered query with LIMIT/OFFSET so the table is
// never loaded into memory. Rows without a balance for currency are excluded.
func (s *SQLStorage) TopBalances(ctx context.Context, kind model.AccountKind, currency model.Currency, offset, limit int) ([]model.BalanceEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePage(offset, limit); err != nil {
		return nil, err
	}
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	column, err := s.columns.column(currency)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT uid, %[1]s
		FROM %[2]s
		WHERE %[1]s IS NOT NULL
		ORDER BY %[1]s DESC, uid ASC
		LIMIT ? OFFSET ?
	`, column, table)

	rows, err := s.db.QueryContext(ctx, s.q(query), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query top balances: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]model.BalanceEntry, 0, limit)
	for rows.Next() {
		var (
			id      string
			balance decimal.Decimal
		)
		if err := rows.Scan(&id, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan balance row: %w", err)
		}
		entries = append(entries, model.BalanceEntry{ID: id, Balance: s.dialect.balanceValue(balance)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance rows: %w", err)
	}

	return entries, nil
}
