// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres persists placed items in PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/holoplace/internal/placement"
	"github.com/holomush/holoplace/internal/store"
	"github.com/holomush/holoplace/internal/world"
)

// ObjectRepository implements world.ObjectRepository using the placed_items table.
// Every method runs inside the caller's transaction when ctx carries one.
type ObjectRepository struct {
	pool store.Querier
}

// Compile-time check that ObjectRepository implements world.ObjectRepository.
var _ world.ObjectRepository = (*ObjectRepository)(nil)

// NewObjectRepository creates a new ObjectRepository.
func NewObjectRepository(pool store.Querier) *ObjectRepository {
	return &ObjectRepository{pool: pool}
}

// Get retrieves a placed item by instance id.
func (r *ObjectRepository) Get(ctx context.Context, instanceID ulid.ULID) (*world.PlacedItem, error) {
	q := store.QuerierFrom(ctx, r.pool)
	item, err := scanPlacedItem(q.QueryRow(ctx, `
		SELECT `+placedItemColumns+`
		FROM placed_items WHERE instance_id = $1
	`, instanceID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("instance_id", instanceID.String()).Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get placed item").With("instance_id", instanceID.String()).Wrap(err)
	}
	return item, nil
}

// Create persists a new placed item.
func (r *ObjectRepository) Create(ctx context.Context, item *world.PlacedItem) error {
	q := store.QuerierFrom(ctx, r.pool)
	pos := item.Pose.Position
	_, err := q.Exec(ctx, `
		INSERT INTO placed_items (instance_id, object_id, owner_id, template_id, parent_id,
		                          pos_x, pos_y, pos_z, yaw, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, item.InstanceID.String(), item.ObjectID.String(), item.OwnerID.String(), item.TemplateID,
		item.ParentID.String(), pos.X, pos.Y, pos.Z, item.Pose.Yaw, item.CreatedAt)
	if err != nil {
		return oops.With("operation", "create placed item").With("instance_id", item.InstanceID.String()).Wrap(err)
	}
	return nil
}

// UpdatePose records a new pose for a placed item.
func (r *ObjectRepository) UpdatePose(ctx context.Context, instanceID ulid.ULID, pose placement.Pose) error {
	q := store.QuerierFrom(ctx, r.pool)
	result, err := q.Exec(ctx, `
		UPDATE placed_items SET pos_x = $2, pos_y = $3, pos_z = $4, yaw = $5
		WHERE instance_id = $1
	`, instanceID.String(), pose.Position.X, pose.Position.Y, pose.Position.Z, pose.Yaw)
	if err != nil {
		return oops.With("operation", "update placed item pose").With("instance_id", instanceID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("instance_id", instanceID.String()).Wrap(ErrNotFound)
	}
	return nil
}

// Delete removes a placed item by instance id.
func (r *ObjectRepository) Delete(ctx context.Context, instanceID ulid.ULID) error {
	q := store.QuerierFrom(ctx, r.pool)
	result, err := q.Exec(ctx, `DELETE FROM placed_items WHERE instance_id = $1`, instanceID.String())
	if err != nil {
		return oops.With("operation", "delete placed item").With("instance_id", instanceID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("instance_id", instanceID.String()).Wrap(ErrNotFound)
	}
	return nil
}

// ListByOwner returns all items placed by a user, oldest first.
func (r *ObjectRepository) ListByOwner(ctx context.Context, ownerID ulid.ULID) ([]*world.PlacedItem, error) {
	q := store.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT `+placedItemColumns+`
		FROM placed_items WHERE owner_id = $1 ORDER BY created_at, instance_id
	`, ownerID.String())
	if err != nil {
		return nil, oops.With("operation", "list placed items by owner").With("owner_id", ownerID.String()).Wrap(err)
	}
	defer rows.Close()

	return scanPlacedItems(rows)
}

// List returns every placed item, oldest first.
func (r *ObjectRepository) List(ctx context.Context) ([]*world.PlacedItem, error) {
	q := store.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT `+placedItemColumns+`
		FROM placed_items ORDER BY created_at, instance_id
	`)
	if err != nil {
		return nil, oops.With("operation", "list placed items").Wrap(err)
	}
	defer rows.Close()

	return scanPlacedItems(rows)
}

// ListInstanceIDs returns the instance ids placed by a user.
// It satisfies account.PlacementStore.
func (r *ObjectRepository) ListInstanceIDs(ctx context.Context, ownerID ulid.ULID) ([]ulid.ULID, error) {
	items, err := r.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]ulid.ULID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.InstanceID)
	}
	return ids, nil
}
