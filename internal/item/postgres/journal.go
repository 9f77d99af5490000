// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements the item journal on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/holoplace/internal/account"
	accountpg "github.com/holomush/holoplace/internal/account/postgres"
	"github.com/holomush/holoplace/internal/item"
	"github.com/holomush/holoplace/internal/store"
	"github.com/holomush/holoplace/internal/world"
	worldpg "github.com/holomush/holoplace/internal/world/postgres"
)

// Default retry policy for transactions aborted by the database.
const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 20 * time.Millisecond
)

// Journal persists purchases and placements. Each call runs in one
// transaction that is retried on serialization failures and deadlocks.
type Journal struct {
	pool       store.Pool
	tx         *store.Transactor
	balances   *accountpg.BalanceRepository
	objects    *worldpg.ObjectRepository
	maxRetries uint64
	backoff    time.Duration
}

// Compile-time check that Journal implements item.Journal.
var _ item.Journal = (*Journal)(nil)

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithRetries sets how many times an aborted transaction is retried and the
// base delay of the exponential backoff between attempts.
func WithRetries(maxRetries uint64, backoff time.Duration) JournalOption {
	return func(j *Journal) {
		j.maxRetries = maxRetries
		j.backoff = backoff
	}
}

// NewJournal creates a Journal backed by pool.
func NewJournal(pool store.Pool, opts ...JournalOption) *Journal {
	j := &Journal{
		pool:       pool,
		tx:         store.NewTransactor(pool),
		balances:   accountpg.NewBalanceRepository(pool),
		objects:    worldpg.NewObjectRepository(pool),
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// RecordPurchase debits the buyer, inserts the placed item and the purchase
// row in one transaction.
func (j *Journal) RecordPurchase(ctx context.Context, rec *item.PurchaseRecord) error {
	cost, err := json.Marshal(rec.Cost)
	if err != nil {
		return oops.With("operation", "encode purchase cost").With("purchase_id", rec.ID.String()).Wrap(err)
	}

	err = j.run(ctx, func(ctx context.Context) error {
		if err := j.balances.Debit(ctx, rec.UserID, rec.Cost); err != nil {
			return err
		}
		if err := j.objects.Create(ctx, rec.Item); err != nil {
			return err
		}
		q := store.QuerierFrom(ctx, j.pool)
		_, err := q.Exec(ctx, `
			INSERT INTO purchases (id, user_id, template_id, instance_id, cost, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, rec.ID.String(), rec.UserID.String(), rec.TemplateID, rec.Item.InstanceID.String(), cost, rec.CreatedAt)
		if err != nil {
			return oops.With("operation", "insert purchase").With("purchase_id", rec.ID.String()).Wrap(err)
		}
		return nil
	})
	if err != nil {
		return oops.With("purchase_id", rec.ID.String()).
			With("user_id", rec.UserID.String()).
			With("instance_id", rec.Item.InstanceID.String()).
			Wrap(err)
	}
	return nil
}

// RecordPlacement inserts a placed item created without a purchase.
func (j *Journal) RecordPlacement(ctx context.Context, placed *world.PlacedItem) error {
	err := j.run(ctx, func(ctx context.Context) error {
		return j.objects.Create(ctx, placed)
	})
	if err != nil {
		return oops.With("instance_id", placed.InstanceID.String()).Wrap(err)
	}
	return nil
}

// run executes fn in a transaction, retrying transient aborts.
func (j *Journal) run(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(j.maxRetries, retry.NewExponential(j.backoff))
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := classify(j.tx.InTransaction(ctx, fn))
		if isTransient(err) {
			slog.DebugContext(ctx, "retrying aborted transaction", "attempt", attempt, "error", err)
		}
		return err
	})
}

// classify maps database failures onto engine error codes and marks
// transient aborts as retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, account.ErrInsufficientFunds) {
		return oops.Code(item.CodeForbidden).
			With("reason", item.ReasonInsufficientFunds).
			Wrap(errors.Join(item.ErrForbidden, err))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return oops.Code(item.CodeConflict).
				With("constraint", pgErr.ConstraintName).
				Wrap(errors.Join(item.ErrConflict, err))
		case pgerrcode.CheckViolation:
			// account_balances.amount >= 0 caught a debit the row filter missed.
			return oops.Code(item.CodeForbidden).
				With("reason", item.ReasonInsufficientFunds).
				Wrap(errors.Join(item.ErrForbidden, err))
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return retry.RetryableError(err)
		}
	}
	return err
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
}
