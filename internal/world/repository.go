// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/holoplace/internal/catalog"
	"github.com/holomush/holoplace/internal/placement"
)

// PlacedItem is the persisted record of a placed item.
type PlacedItem struct {
	InstanceID ulid.ULID
	ObjectID   ulid.ULID
	OwnerID    ulid.ULID
	TemplateID string
	ParentID   ulid.ULID
	Pose       placement.Pose
	CreatedAt  time.Time
}

// PlacedItemFromHandle builds the record for a bound handle.
func PlacedItemFromHandle(h *Handle, createdAt time.Time) *PlacedItem {
	return &PlacedItem{
		InstanceID: h.InstanceID(),
		ObjectID:   h.ObjectID(),
		OwnerID:    h.OwnerID(),
		TemplateID: h.TemplateID(),
		ParentID:   h.Parent(),
		Pose:       h.Pose(),
		CreatedAt:  createdAt,
	}
}

// Object rebuilds the attached, classified and stamped world object for a
// persisted record using the template's geometry.
func (p *PlacedItem) Object(geom catalog.Geometry) *Object {
	obj := &Object{
		ID:       p.ObjectID,
		Parent:   p.ParentID,
		Geometry: geom.Clone(),
		Pose:     p.Pose,
		Metadata: map[string]string{
			MetaOwnerID:    p.OwnerID.String(),
			MetaInstanceID: p.InstanceID.String(),
			MetaTemplateID: p.TemplateID,
		},
		Attached:  true,
		CreatedAt: p.CreatedAt,
	}
	obj.addTag(TagPlacedItem)
	obj.addTag(TemplateTag(p.TemplateID))
	return obj
}

// ObjectRepository manages placed item persistence.
type ObjectRepository interface {
	// Get retrieves a placed item by instance id.
	Get(ctx context.Context, instanceID ulid.ULID) (*PlacedItem, error)

	// Create persists a new placed item.
	Create(ctx context.Context, item *PlacedItem) error

	// UpdatePose records a new pose for a placed item.
	UpdatePose(ctx context.Context, instanceID ulid.ULID, pose placement.Pose) error

	// Delete removes a placed item by instance id.
	Delete(ctx context.Context, instanceID ulid.ULID) error

	// ListByOwner returns all items placed by a user.
	ListByOwner(ctx context.Context, ownerID ulid.ULID) ([]*PlacedItem, error)

	// List returns every placed item.
	List(ctx context.Context) ([]*PlacedItem, error)
}
