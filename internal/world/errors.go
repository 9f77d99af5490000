// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import "errors"

// Space errors.
var (
	// ErrObjectNotFound is returned when an object id is unknown to the space.
	ErrObjectNotFound = errors.New("object not found")

	// ErrObjectExists is returned when restoring an object whose id is already present.
	ErrObjectExists = errors.New("object already exists")

	// ErrNotAttachable is returned when behavior is attached to an object without an anchor.
	ErrNotAttachable = errors.New("object geometry has no anchor point")

	// ErrInvalidPose is returned for poses with non-finite components.
	ErrInvalidPose = errors.New("pose must be finite")

	// ErrDuplicateInstance is returned when an instance id is already stamped on another object.
	ErrDuplicateInstance = errors.New("instance id already bound to another object")

	// ErrInvalidInstanceID is returned when instance_id metadata is not a ULID.
	ErrInvalidInstanceID = errors.New("instance id must be a ULID")

	// ErrNotStamped is returned when publishing an object that carries no instance id.
	ErrNotStamped = errors.New("object has no instance id")
)
