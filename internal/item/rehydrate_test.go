// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package item

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoplace/internal/account"
	"github.com/holomush/holoplace/internal/core"
	"github.com/holomush/holoplace/internal/placement"
	"github.com/holomush/holoplace/internal/world"
	"github.com/holomush/holoplace/pkg/errutil"
)

func placedRecord(templateID string) *world.PlacedItem {
	return &world.PlacedItem{
		InstanceID: core.NewULID(),
		ObjectID:   core.NewULID(),
		OwnerID:    core.NewULID(),
		TemplateID: templateID,
		ParentID:   core.NewULID(),
		Pose:       placement.Pose{Position: placement.Vec3{X: 3, Y: 0.5, Z: 1}, Yaw: 90},
		CreatedAt:  testNow,
	}
}

func TestRehydrate(t *testing.T) {
	space := world.NewSpace()
	reg := testRegistry(t)
	kept, retired := placedRecord("T1"), placedRecord("retired-template")

	n, err := Rehydrate(context.Background(), space, reg, []*world.PlacedItem{kept, retired})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, space.Len())

	// Restored items are fully usable through the engine.
	e := newTestEngine(t, space)
	h, err := e.GetItem(context.Background(), kept.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, kept.ObjectID, h.ObjectID())
	assert.Equal(t, kept.OwnerID, h.OwnerID())
	assert.Equal(t, kept.Pose, h.Pose())

	// And an account manager can resolve them for the owner.
	m := account.NewManager(account.ManagerConfig{
		Placements: ownerIndex{kept.OwnerID.String(): {kept}},
		Resolver:   space,
	})
	acc, err := m.Get(context.Background(), kept.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, 1, acc.PlacedCount())
}

func TestRehydrate_DuplicateAborts(t *testing.T) {
	space := world.NewSpace()
	rec := placedRecord("T1")

	_, err := Rehydrate(context.Background(), space, testRegistry(t), []*world.PlacedItem{rec, rec})
	errutil.AssertErrorCode(t, err, "REHYDRATE_FAILED")
	assert.ErrorIs(t, err, world.ErrObjectExists)
}
