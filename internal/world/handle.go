// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"github.com/oklog/ulid/v2"

	"github.com/holomush/holoplace/internal/placement"
)

// Handle is a live reference to a placed item in a Space.
// Identity fields are captured at bind time. Pose and Tags read through to
// the Space and fall back to the last bound values once the object is gone.
type Handle struct {
	space      *Space
	objectID   ulid.ULID
	instanceID ulid.ULID
	ownerID    ulid.ULID
	templateID string
	parent     ulid.ULID
	pose       placement.Pose
	tags       []string
}

// newHandle must be called with space.mu held.
func newHandle(space *Space, obj *Object) *Handle {
	h := &Handle{
		space:      space,
		objectID:   obj.ID,
		templateID: obj.Metadata[MetaTemplateID],
		parent:     obj.Parent,
		pose:       obj.Pose,
		tags:       append([]string(nil), obj.Tags...),
	}
	h.instanceID, _ = obj.InstanceID()
	h.ownerID, _ = obj.OwnerID()
	return h
}

// ObjectID returns the id of the underlying world object.
func (h *Handle) ObjectID() ulid.ULID { return h.objectID }

// InstanceID returns the placed item's instance id.
func (h *Handle) InstanceID() ulid.ULID { return h.instanceID }

// OwnerID returns the id of the user who owns the item.
func (h *Handle) OwnerID() ulid.ULID { return h.ownerID }

// TemplateID returns the catalog template the item was created from.
func (h *Handle) TemplateID() string { return h.templateID }

// Parent returns the location the item was placed under.
func (h *Handle) Parent() ulid.ULID { return h.parent }

// Pose returns the current pose of the item.
func (h *Handle) Pose() placement.Pose {
	h.space.mu.RLock()
	defer h.space.mu.RUnlock()

	if obj, ok := h.space.objects[h.objectID]; ok {
		return obj.Pose
	}
	return h.pose
}

// Tags returns the item's classification tags.
func (h *Handle) Tags() []string {
	h.space.mu.RLock()
	defer h.space.mu.RUnlock()

	if obj, ok := h.space.objects[h.objectID]; ok {
		return append([]string(nil), obj.Tags...)
	}
	return append([]string(nil), h.tags...)
}

// Live reports whether the underlying object still exists.
func (h *Handle) Live() bool {
	h.space.mu.RLock()
	defer h.space.mu.RUnlock()

	_, ok := h.space.objects[h.objectID]
	return ok
}
