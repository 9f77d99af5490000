// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/holoplace/internal/catalog"
	"github.com/holomush/holoplace/internal/placement"
)

// Binder is the boundary between the item engine and the world.
// It spawns objects, binds placed-item behavior to them and finds them again
// by instance id.
type Binder interface {
	// Spawn creates a new object with the given geometry at pose under parent.
	Spawn(ctx context.Context, geom catalog.Geometry, pose placement.Pose, parent ulid.ULID) (ulid.ULID, error)

	// Attach binds placed-item behavior to an already positioned object.
	Attach(ctx context.Context, id ulid.ULID) error

	// SetPose moves an object.
	SetPose(ctx context.Context, id ulid.ULID, pose placement.Pose) error

	// Classify adds a classification tag to an object.
	Classify(ctx context.Context, id ulid.ULID, tag string) error

	// SetMetadata stamps a key/value pair on an object. Stamping instance_id
	// makes the object visible to Await immediately.
	SetMetadata(ctx context.Context, id ulid.ULID, key, value string) error

	// Reserve stamps instance_id on an object and claims the id, keeping the
	// object hidden from Await until Publish.
	Reserve(ctx context.Context, id, instanceID ulid.ULID) error

	// Publish makes a reserved object visible to Await.
	Publish(ctx context.Context, id ulid.ULID) error

	// Bind returns the placed-item handle for an object. ok is false when the
	// object does not exist, has no behavior attached, or is not a placed item.
	Bind(id ulid.ULID) (h *Handle, ok bool)

	// Await blocks until an object stamped with instanceID exists, returning
	// its object id, or until ctx is done.
	Await(ctx context.Context, instanceID ulid.ULID) (ulid.ULID, error)

	// Despawn removes an object.
	Despawn(ctx context.Context, id ulid.ULID) error
}

// Compile-time check that Space implements Binder.
var _ Binder = (*Space)(nil)
