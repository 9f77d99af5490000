// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package item

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/holoplace/internal/account"
	"github.com/holomush/holoplace/internal/catalog"
	"github.com/holomush/holoplace/internal/placement"
	"github.com/holomush/holoplace/internal/world"
)

// PurchaseItem charges user the template's BUY price and places a new item.
// A nil pose places the item at the template's ground pose.
//
// The funds check, the debit, the creation and the journal write happen
// under the user's account lock. If any of them fails, no balance changes
// and no item is recorded. GetItem only finds the item after all of them
// succeed.
func (e *Engine) PurchaseItem(ctx context.Context, user *account.Account, templateID string, pose *placement.Pose) (h *world.Handle, err error) {
	ctx, span := tracer.Start(ctx, "item.purchase",
		trace.WithAttributes(
			attribute.String("user.id", user.UserID().String()),
			attribute.String("template.id", templateID),
		),
	)
	defer func() {
		if r := recover(); r != nil {
			recordPurchase(StatusError)
			span.SetStatus(codes.Error, "panic")
			span.End()
			panic(r)
		}
		recordPurchase(statusOf(err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tmpl, ok := e.registry.Resolve(templateID)
	if !ok {
		return nil, errTemplateNotFound(templateID)
	}
	price, ok := tmpl.Prices.Price(catalog.ExchangeBuy)
	if !ok {
		return nil, errNotPurchasable(templateID)
	}
	// Every known currency is charged, unlisted ones at zero.
	cost := price.Expand(e.registry.Currencies())
	instanceID := e.newID()
	span.SetAttributes(attribute.String("instance.id", instanceID.String()))

	err = user.Update(func(tx *account.Tx) error {
		if err := tx.Debit(cost); err != nil {
			if errors.Is(err, account.ErrInsufficientFunds) {
				return errInsufficientFunds(templateID, err)
			}
			return oops.With("template_id", templateID).Wrap(err)
		}

		placed, err := e.place(ctx, tx, tmpl, instanceID, pose)
		if err != nil {
			return err
		}

		if e.journal != nil {
			now := e.now().UTC()
			rec := &PurchaseRecord{
				ID:         e.newID(),
				UserID:     tx.UserID(),
				TemplateID: templateID,
				Cost:       tx.Debited(),
				Item:       world.PlacedItemFromHandle(placed, now),
				CreatedAt:  now,
			}
			if err := e.journal.RecordPurchase(ctx, rec); err != nil {
				e.discard(ctx, placed.ObjectID())
				return journalError(templateID, err)
			}
		}
		h = placed
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, h)

	recordSpend(cost)
	slog.InfoContext(ctx, "item purchased",
		"user_id", user.UserID().String(),
		"template_id", templateID,
		"instance_id", instanceID.String(),
		"object_id", h.ObjectID().String())
	return h, nil
}
