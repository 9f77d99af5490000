// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres persists account balances in PostgreSQL.
package postgres

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/holoplace/internal/account"
	"github.com/holomush/holoplace/internal/currency"
	"github.com/holomush/holoplace/internal/store"
)

// BalanceRepository stores per-currency balances in account_balances.
// Every method runs inside the caller's transaction when ctx carries one.
type BalanceRepository struct {
	pool store.Pool
	tx   *store.Transactor
}

// Compile-time check that BalanceRepository implements account.BalanceStore.
var _ account.BalanceStore = (*BalanceRepository)(nil)

// NewBalanceRepository creates a new BalanceRepository.
func NewBalanceRepository(pool store.Pool) *BalanceRepository {
	return &BalanceRepository{pool: pool, tx: store.NewTransactor(pool)}
}

// Balances returns every stored balance for a user. A user with no rows has
// an empty (zero) balance set.
func (r *BalanceRepository) Balances(ctx context.Context, userID ulid.ULID) (currency.Amounts, error) {
	q := store.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT currency, amount FROM account_balances
		WHERE user_id = $1 ORDER BY currency
	`, userID.String())
	if err != nil {
		return nil, oops.With("operation", "query balances").With("user_id", userID.String()).Wrap(err)
	}
	defer rows.Close()

	balances := make(currency.Amounts)
	for rows.Next() {
		var (
			kind   string
			amount int64
		)
		if err := rows.Scan(&kind, &amount); err != nil {
			return nil, oops.With("operation", "scan balance").With("user_id", userID.String()).Wrap(err)
		}
		balances[currency.Kind(kind)] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate balances").With("user_id", userID.String()).Wrap(err)
	}
	return balances, nil
}

// Credit adds amounts to a user's balances, creating rows as needed.
// Zero amounts are skipped.
func (r *BalanceRepository) Credit(ctx context.Context, userID ulid.ULID, amounts currency.Amounts) error {
	if err := amounts.Validate(); err != nil {
		return oops.With("user_id", userID.String()).Wrap(err)
	}
	return r.tx.InTransaction(ctx, func(ctx context.Context) error {
		q := store.QuerierFrom(ctx, r.pool)
		for _, kind := range amounts.Kinds() {
			amount := amounts[kind]
			if amount == 0 {
				continue
			}
			_, err := q.Exec(ctx, `
				INSERT INTO account_balances (user_id, currency, amount, updated_at)
				VALUES ($1, $2, $3, NOW())
				ON CONFLICT (user_id, currency)
				DO UPDATE SET amount = account_balances.amount + EXCLUDED.amount, updated_at = NOW()
			`, userID.String(), kind.String(), amount)
			if err != nil {
				return oops.With("operation", "credit balance").
					With("user_id", userID.String()).
					With("currency", kind.String()).
					Wrap(err)
			}
		}
		return nil
	})
}

// Debit subtracts amounts from a user's balances. Either every currency is
// debited or none is: a row that would go negative aborts the transaction
// with account.ErrInsufficientFunds. Currencies are updated in sorted order
// so concurrent debits lock rows consistently.
func (r *BalanceRepository) Debit(ctx context.Context, userID ulid.ULID, amounts currency.Amounts) error {
	if err := amounts.Validate(); err != nil {
		return oops.With("user_id", userID.String()).Wrap(err)
	}
	return r.tx.InTransaction(ctx, func(ctx context.Context) error {
		q := store.QuerierFrom(ctx, r.pool)
		for _, kind := range amounts.Kinds() {
			amount := amounts[kind]
			if amount == 0 {
				continue
			}
			result, err := q.Exec(ctx, `
				UPDATE account_balances SET amount = amount - $3, updated_at = NOW()
				WHERE user_id = $1 AND currency = $2 AND amount >= $3
			`, userID.String(), kind.String(), amount)
			if err != nil {
				return oops.With("operation", "debit balance").
					With("user_id", userID.String()).
					With("currency", kind.String()).
					Wrap(err)
			}
			if result.RowsAffected() == 0 {
				return oops.With("user_id", userID.String()).
					With("currency", kind.String()).
					Wrap(account.ErrInsufficientFunds)
			}
		}
		return nil
	})
}
