// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoplace/internal/core"
	"github.com/holomush/holoplace/internal/placement"
	"github.com/holomush/holoplace/internal/store"
	"github.com/holomush/holoplace/internal/world"
	"github.com/holomush/holoplace/internal/world/postgres"
)

func TestObjectRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewObjectRepository(testPool)

	item := &world.PlacedItem{
		InstanceID: core.NewULID(),
		ObjectID:   core.NewULID(),
		OwnerID:    core.NewULID(),
		TemplateID: "oak-chair",
		ParentID:   core.NewULID(),
		Pose:       placement.Pose{Position: placement.Vec3{X: 1, Y: 0.6, Z: 2}, Yaw: 90},
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	t.Run("create and get", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, item))

		got, err := repo.Get(ctx, item.InstanceID)
		require.NoError(t, err)
		assert.Equal(t, item.ObjectID, got.ObjectID)
		assert.Equal(t, item.Pose, got.Pose)
		assert.True(t, item.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("list by owner", func(t *testing.T) {
		ids, err := repo.ListInstanceIDs(ctx, item.OwnerID)
		require.NoError(t, err)
		assert.Contains(t, ids, item.InstanceID)
	})

	t.Run("update pose", func(t *testing.T) {
		moved := placement.Pose{Position: placement.Vec3{X: 5, Y: 0.6, Z: 5}, Yaw: 180}
		require.NoError(t, repo.UpdatePose(ctx, item.InstanceID, moved))

		got, err := repo.Get(ctx, item.InstanceID)
		require.NoError(t, err)
		assert.Equal(t, moved, got.Pose)
	})

	t.Run("rolled back create is invisible", func(t *testing.T) {
		other := *item
		other.InstanceID = core.NewULID()
		other.ObjectID = core.NewULID()

		err := store.NewTransactor(testPool).InTransaction(ctx, func(txCtx context.Context) error {
			if err := repo.Create(txCtx, &other); err != nil {
				return err
			}
			return errors.New("abort")
		})
		require.Error(t, err)

		_, err = repo.Get(ctx, other.InstanceID)
		assert.ErrorIs(t, err, postgres.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, item.InstanceID))
		_, err := repo.Get(ctx, item.InstanceID)
		assert.ErrorIs(t, err, postgres.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, item.InstanceID), postgres.ErrNotFound)
	})
}
