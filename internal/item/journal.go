// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package item

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/holoplace/internal/currency"
	"github.com/holomush/holoplace/internal/world"
)

// PurchaseRecord describes one completed purchase.
type PurchaseRecord struct {
	ID         ulid.ULID
	UserID     ulid.ULID
	TemplateID string
	Cost       currency.Amounts
	Item       *world.PlacedItem
	CreatedAt  time.Time
}

// Journal persists engine outcomes. The engine calls it while the buyer's
// account is locked; a returned error aborts the operation and discards the
// staged debit and placement.
//
// Implementations should return errors carrying the engine's codes
// (FORBIDDEN for insufficient funds, CONFLICT for duplicate instance ids)
// where they can tell.
type Journal interface {
	// RecordPurchase persists the debit, the placed item and the purchase
	// row atomically.
	RecordPurchase(ctx context.Context, rec *PurchaseRecord) error

	// RecordPlacement persists a placed item created without a purchase.
	RecordPlacement(ctx context.Context, placed *world.PlacedItem) error
}
