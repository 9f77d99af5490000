// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package item

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoplace/internal/account"
	"github.com/holomush/holoplace/internal/core"
	"github.com/holomush/holoplace/internal/currency"
	"github.com/holomush/holoplace/internal/placement"
	"github.com/holomush/holoplace/internal/world"
	"github.com/holomush/holoplace/pkg/errutil"
)

func TestPurchaseItem_Success(t *testing.T) {
	space := world.NewSpace()
	e := newTestEngine(t, space)
	user := account.New(core.NewULID(), currency.Amounts{gold: 100})

	h, err := e.PurchaseItem(context.Background(), user, "T1", nil)
	require.NoError(t, err)
	require.NotNil(t, h)

	assert.Equal(t, int64(50), user.Balance(gold))
	assert.Equal(t, int64(0), user.Balance(gems))
	assert.Equal(t, 1, user.PlacedCount())

	got, ok := user.PlacedItem(h.InstanceID())
	require.True(t, ok)
	assert.Same(t, h, got)
	assert.Equal(t, user.UserID(), h.OwnerID())
	assert.Equal(t, "T1", h.TemplateID())
	assert.Contains(t, h.Tags(), world.TagPlacedItem)
	assert.Contains(t, h.Tags(), world.TemplateTag("T1"))

	objectID, ok := space.Lookup(h.InstanceID())
	require.True(t, ok)
	assert.Equal(t, h.ObjectID(), objectID)
}

func TestPurchaseItem_ChargesEveryCurrencyExactly(t *testing.T) {
	e := newTestEngine(t, world.NewSpace())
	user := account.New(core.NewULID(), currency.Amounts{gold: 15, gems: 3})

	_, err := e.PurchaseItem(context.Background(), user, "combo", nil)
	require.NoError(t, err)
	assert.Equal(t, currency.Amounts{gold: 5, gems: 2}, user.Balances())
}

func TestPurchaseItem_FreeItemStillStagesEveryCurrency(t *testing.T) {
	e := newTestEngine(t, world.NewSpace())
	user := account.New(core.NewULID(), nil)

	_, err := e.PurchaseItem(context.Background(), user, "free", nil)
	require.NoError(t, err)
	assert.Equal(t, currency.Amounts{gold: 0, gems: 0}, user.Balances())
	assert.Equal(t, 1, user.PlacedCount())
}

func TestPurchaseItem_Failures(t *testing.T) {
	tests := []struct {
		name       string
		templateID string
		balances   currency.Amounts
		code       string
		reason     string
		sentinel   error
	}{
		{
			name:       "unknown template",
			templateID: "ghost",
			balances:   currency.Amounts{gold: 100},
			code:       CodeNotFound,
			sentinel:   ErrNotFound,
		},
		{
			name:       "no BUY price",
			templateID: "trophy",
			balances:   currency.Amounts{gold: 1000},
			code:       CodeForbidden,
			reason:     ReasonNotPurchasable,
			sentinel:   ErrForbidden,
		},
		{
			name:       "insufficient single currency",
			templateID: "T2",
			balances:   currency.Amounts{gold: 100},
			code:       CodeForbidden,
			reason:     ReasonInsufficientFunds,
			sentinel:   account.ErrInsufficientFunds,
		},
		{
			name:       "one of two currencies short",
			templateID: "combo",
			balances:   currency.Amounts{gold: 100, gems: 0},
			code:       CodeForbidden,
			reason:     ReasonInsufficientFunds,
			sentinel:   ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			space := world.NewSpace()
			e := newTestEngine(t, space)
			user := account.New(core.NewULID(), tt.balances)

			h, err := e.PurchaseItem(context.Background(), user, tt.templateID, nil)
			require.Error(t, err)
			assert.Nil(t, h)
			errutil.AssertErrorCode(t, err, tt.code)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.reason, Reason(err))

			assert.Equal(t, tt.balances, user.Balances(), "balances must not change")
			assert.Equal(t, 0, user.PlacedCount())
			assert.Equal(t, 0, space.Len(), "nothing may be spawned")
		})
	}
}

func TestPurchaseItem_ScenarioFromCatalog(t *testing.T) {
	e := newTestEngine(t, world.NewSpace())
	user := account.New(core.NewULID(), currency.Amounts{gold: 100})
	ctx := context.Background()

	_, err := e.PurchaseItem(ctx, user, "T1", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(50), user.Balance(gold))
	assert.Equal(t, 1, user.PlacedCount())

	user = account.New(core.NewULID(), currency.Amounts{gold: 100})
	_, err = e.PurchaseItem(ctx, user, "T2", nil)
	assert.True(t, IsForbidden(err))
	assert.Equal(t, int64(100), user.Balance(gold))
}

func TestPurchaseItem_CreationFailureKeepsFunds(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *faultyBinder)
		step  string
	}{
		{name: "spawn", setup: func(b *faultyBinder) { b.spawnErr = errors.New("world full") }, step: "spawn"},
		{name: "attach", setup: func(b *faultyBinder) { b.attachErr = errors.New("no behavior") }, step: "attach"},
		{name: "classify", setup: func(b *faultyBinder) { b.classifyErr = errors.New("tag store down") }, step: "classify"},
		{name: "metadata", setup: func(b *faultyBinder) { b.metadataErr = errors.New("attr store down") }, step: "set_metadata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binder := newFaultyBinder()
			tt.setup(binder)
			e := newTestEngine(t, binder.Space, withBinder(binder))
			user := account.New(core.NewULID(), currency.Amounts{gold: 100})

			_, err := e.PurchaseItem(context.Background(), user, "T1", nil)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, CodeWorldError)
			errutil.AssertErrorContext(t, err, "step", tt.step)

			assert.Equal(t, int64(100), user.Balance(gold), "debit must be rolled back")
			assert.Equal(t, 0, user.PlacedCount())
			assert.Equal(t, 0, binder.Len(), "partial object must be despawned")
		})
	}
}

func TestPurchaseItem_Journal(t *testing.T) {
	t.Run("records purchase with full cost", func(t *testing.T) {
		journal := &fakeJournal{}
		e := newTestEngine(t, world.NewSpace(), withJournal(journal))
		user := account.New(core.NewULID(), currency.Amounts{gold: 100, gems: 5})

		h, err := e.PurchaseItem(context.Background(), user, "T1", nil)
		require.NoError(t, err)

		require.Len(t, journal.purchases, 1)
		rec := journal.purchases[0]
		assert.Equal(t, user.UserID(), rec.UserID)
		assert.Equal(t, "T1", rec.TemplateID)
		assert.Equal(t, currency.Amounts{gold: 50, gems: 0}, rec.Cost)
		assert.Equal(t, h.InstanceID(), rec.Item.InstanceID)
		assert.Equal(t, h.ObjectID(), rec.Item.ObjectID)
		assert.Equal(t, testNow, rec.CreatedAt)
		assert.Empty(t, journal.placements)
	})

	t.Run("journal failure rolls back", func(t *testing.T) {
		space := world.NewSpace()
		journal := &fakeJournal{err: errors.New("database unavailable")}
		e := newTestEngine(t, space, withJournal(journal))
		user := account.New(core.NewULID(), currency.Amounts{gold: 100})

		_, err := e.PurchaseItem(context.Background(), user, "T1", nil)
		require.Error(t, err)
		errutil.AssertErrorContext(t, err, "step", "journal")
		assert.Equal(t, int64(100), user.Balance(gold))
		assert.Equal(t, 0, user.PlacedCount())
		assert.Equal(t, 0, space.Len())
	})

	t.Run("persistent insufficient funds maps to forbidden", func(t *testing.T) {
		journal := &fakeJournal{err: account.ErrInsufficientFunds}
		e := newTestEngine(t, world.NewSpace(), withJournal(journal))
		user := account.New(core.NewULID(), currency.Amounts{gold: 100})

		_, err := e.PurchaseItem(context.Background(), user, "T1", nil)
		errutil.AssertErrorCode(t, err, CodeForbidden)
		assert.Equal(t, ReasonInsufficientFunds, Reason(err))
		assert.Equal(t, int64(100), user.Balance(gold))
	})
}

func TestPurchaseItem_ConcurrentSameUserNeverOverdraws(t *testing.T) {
	space := world.NewSpace()
	e := newTestEngine(t, space)
	user := account.New(core.NewULID(), currency.Amounts{gold: 500})

	const buyers = 25
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.PurchaseItem(context.Background(), user, "T1", nil)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, IsForbidden(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, int64(0), user.Balance(gold))
	assert.Equal(t, 10, user.PlacedCount())
	assert.Equal(t, 10, space.Len())
}

func TestPurchaseItem_DifferentUsersProceedIndependently(t *testing.T) {
	e := newTestEngine(t, world.NewSpace())
	users := make([]*account.Account, 10)
	for i := range users {
		users[i] = account.New(core.NewULID(), currency.Amounts{gold: 50})
	}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.PurchaseItem(context.Background(), u, "T1", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, u := range users {
		assert.Equal(t, int64(0), u.Balance(gold))
		assert.Equal(t, 1, u.PlacedCount())
	}
}

func TestPurchaseItem_UsesSuppliedPose(t *testing.T) {
	snapper := placement.GridSnapper{CellSize: 1, RotationStep: 90}
	e := newTestEngine(t, world.NewSpace(), withNormalizer(snapper))
	user := account.New(core.NewULID(), currency.Amounts{gold: 50})

	pose := placement.Pose{Position: placement.Vec3{X: 2.4, Y: 0.5, Z: -1.6}, Yaw: 80}
	h, err := e.PurchaseItem(context.Background(), user, "T1", &pose)
	require.NoError(t, err)
	assert.Equal(t, snapper.Normalize(pose), h.Pose())
}

func TestPurchaseItem_Metrics(t *testing.T) {
	e := newTestEngine(t, world.NewSpace())
	user := account.New(core.NewULID(), currency.Amounts{gold: 60})

	successBefore := testutil.ToFloat64(Purchases.WithLabelValues(StatusSuccess))
	brokeBefore := testutil.ToFloat64(Purchases.WithLabelValues(StatusInsufficientFunds))
	spendBefore := testutil.ToFloat64(Spend.WithLabelValues(gold.String()))

	_, err := e.PurchaseItem(context.Background(), user, "T1", nil)
	require.NoError(t, err)
	_, err = e.PurchaseItem(context.Background(), user, "T1", nil)
	require.Error(t, err)

	assert.Equal(t, successBefore+1, testutil.ToFloat64(Purchases.WithLabelValues(StatusSuccess)))
	assert.Equal(t, brokeBefore+1, testutil.ToFloat64(Purchases.WithLabelValues(StatusInsufficientFunds)))
	assert.Equal(t, spendBefore+50, testutil.ToFloat64(Spend.WithLabelValues(gold.String())))
}
