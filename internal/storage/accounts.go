package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/treasury/internal/common"
	"github.com/Veraticus/treasury/internal/model"
	"github.com/shopspring/decimal"
)

// AccountExists reports whether a row exists for ref.
func (s *SQLStorage) AccountExists(ctx context.Context, ref model.AccountRef) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateRef(ref); err != nil {
		return false, err
	}
	table, err := tableFor(ref.Kind)
	if err != nil {
		return false, err
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		s.q(`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE uid = ?)`), ref.ID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

// CreateAccount inserts the account row with every starting balance in one
// statement, then backfills any column still NULL, inside a single transaction.
// Calling it for an existing account leaves set balances untouched.
func (s *SQLStorage) CreateAccount(ctx context.Context, ref model.AccountRef, defaults model.AccountDefaults) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRef(ref); err != nil {
		return err
	}
	table, err := tableFor(ref.Kind)
	if err != nil {
		return err
	}

	currencies := s.knownCurrencies(defaults.Currencies)

	columns := []string{"uid"}
	args := []any{ref.ID}
	if ref.Kind == model.KindUnique {
		job := defaults.Job
		if job == "" {
			job = model.DefaultJob
		}
		columns = append(columns, "job", "job_notifications")
		args = append(args, job, defaults.JobNotifications)
	}
	for _, currency := range currencies {
		column, _ := s.columns.column(currency)
		value, err := s.dialect.balanceArg(currency.StartingBalance)
		if err != nil {
			return err
		}
		columns = append(columns, column)
		args = append(args, value)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	insert := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (uid) DO NOTHING`,
		table, strings.Join(columns, ", "), placeholders)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.q(insert), args...); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	if err := s.backfillTx(ctx, tx, table, ref.ID, currencies); err != nil {
		return err
	}

	return tx.Commit()
}

// BackfillBalances sets the starting balance on every currency column that is
// still NULL for ref. Already-set balances are never touched.
func (s *SQLStorage) BackfillBalances(ctx context.Context, ref model.AccountRef, currencies []model.Currency) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRef(ref); err != nil {
		return err
	}
	table, err := tableFor(ref.Kind)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.backfillTx(ctx, tx, table, ref.ID, s.knownCurrencies(currencies)); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLStorage) backfillTx(ctx context.Context, q queryable, table, id string, currencies []model.Currency) error {
	for _, currency := range currencies {
		column, err := s.columns.column(currency)
		if err != nil {
			return err
		}
		value, err := s.dialect.balanceArg(currency.StartingBalance)
		if err != nil {
			return err
		}
		update := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE uid = ? AND %s IS NULL`, table, column, column)
		if _, err := q.ExecContext(ctx, s.q(update), value, id); err != nil {
			return fmt.Errorf("failed to backfill %s: %w", column, err)
		}
	}
	return nil
}

// knownCurrencies drops currencies registered after the column set was built.
// They need a migration before they can be stored.
func (s *SQLStorage) knownCurrencies(currencies []model.Currency) []model.Currency {
	known := make([]model.Currency, 0, len(currencies))
	for _, currency := range currencies {
		if _, err := s.columns.column(currency); err != nil {
			common.LogWarn("Currency has no balance column, run migrate", common.Fields{
				"currency": currency.Name,
				"backend":  s.Name(),
			})
			continue
		}
		known = append(known, currency)
	}
	return known
}

// HasBalance reports whether ref holds a non-NULL balance for currency.
// A missing account simply has no balance.
func (s *SQLStorage) HasBalance(ctx context.Context, ref model.AccountRef, currency model.Currency) (bool, error) {
	_, err := s.GetBalance(ctx, ref, currency)
	if common.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetBalance returns ref's balance for currency.
func (s *SQLStorage) GetBalance(ctx context.Context, ref model.AccountRef, currency model.Currency) (decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, err
	}
	if err := validateRef(ref); err != nil {
		return decimal.Zero, err
	}
	table, err := tableFor(ref.Kind)
	if err != nil {
		return decimal.Zero, err
	}
	column, err := s.columns.column(currency)
	if err != nil {
		return decimal.Zero, err
	}

	var balance decimal.NullDecimal
	err = s.db.QueryRowContext(ctx,
		s.q(fmt.Sprintf(`SELECT %s FROM %s WHERE uid = ?`, column, table)), ref.ID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", common.ErrAccountNotFound, ref)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	if !balance.Valid {
		return decimal.Zero, fmt.Errorf("%w: %s has no %s balance", common.ErrNoBalance, ref, currency.Name)
	}
	return s.dialect.balanceValue(balance.Decimal), nil
}

// SetBalance writes ref's balance for currency in a single UPDATE.
func (s *SQLStorage) SetBalance(ctx context.Context, ref model.AccountRef, currency model.Currency, amount decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRef(ref); err != nil {
		return err
	}
	table, err := tableFor(ref.Kind)
	if err != nil {
		return err
	}
	column, err := s.columns.column(currency)
	if err != nil {
		return err
	}

	value, err := s.dialect.balanceArg(amount)
	if err != nil {
		return err
	}

	update := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE uid = ?`, table, column)
	return s.execOne(ctx, update, ref, value, ref.ID)
}

// GetJob returns the job of a unique account.
func (s *SQLStorage) GetJob(ctx context.Context, id string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(id, "account id"); err != nil {
		return "", err
	}

	var job string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT job FROM accounts WHERE uid = ?`), id).Scan(&job)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", common.ErrAccountNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// SetJob updates the job of a unique account.
func (s *SQLStorage) SetJob(ctx context.Context, id, job string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(job, "job"); err != nil {
		return err
	}
	ref := model.AccountRef{Kind: model.KindUnique, ID: id}
	if err := validateRef(ref); err != nil {
		return err
	}
	return s.execOne(ctx, `UPDATE accounts SET job = ? WHERE uid = ?`, ref, job, id)
}

// GetJobNotificationState returns whether job notifications are enabled.
func (s *SQLStorage) GetJobNotificationState(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(id, "account id"); err != nil {
		return false, err
	}

	var enabled bool
	err := s.db.QueryRowContext(ctx, s.q(`SELECT job_notifications FROM accounts WHERE uid = ?`), id).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: %s", common.ErrAccountNotFound, id)
	}
	if err != nil {
		return false, fmt.Errorf("failed to get job notification state: %w", err)
	}
	return enabled, nil
}

// SetJobNotificationState updates the job notification flag.
func (s *SQLStorage) SetJobNotificationState(ctx context.Context, id string, enabled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	ref := model.AccountRef{Kind: model.KindUnique, ID: id}
	if err := validateRef(ref); err != nil {
		return err
	}
	return s.execOne(ctx, `UPDATE accounts SET job_notifications = ? WHERE uid = ?`, ref, enabled, id)
}

// execOne runs a single-row UPDATE and reports a missing account when no row matched.
func (s *SQLStorage) execOne(ctx context.Context, query string, ref model.AccountRef, args ...any) error {
	result, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", ref, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", common.ErrAccountNotFound, ref)
	}
	return nil
}
