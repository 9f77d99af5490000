// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package world tracks the objects that exist in the simulated world and
// binds placed-item behavior to them.
package world

import (
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/holoplace/internal/catalog"
	"github.com/holomush/holoplace/internal/placement"
)

// Metadata keys stamped on placed items.
const (
	MetaOwnerID    = "owner_id"
	MetaInstanceID = "instance_id"
	MetaTemplateID = "template_id"
)

// TagPlacedItem classifies an object as a placed item.
const TagPlacedItem = "placed_item"

// TemplateTag returns the classification tag for a template id.
func TemplateTag(templateID string) string {
	return "template:" + templateID
}

// Object is a world object as seen by the Space.
type Object struct {
	ID        ulid.ULID
	Parent    ulid.ULID
	Geometry  catalog.Geometry
	Pose      placement.Pose
	Tags      []string
	Metadata  map[string]string
	Attached  bool
	CreatedAt time.Time
}

// HasTag reports whether the object carries tag.
func (o *Object) HasTag(tag string) bool {
	i := sort.SearchStrings(o.Tags, tag)
	return i < len(o.Tags) && o.Tags[i] == tag
}

// InstanceID returns the parsed instance_id metadata value.
func (o *Object) InstanceID() (ulid.ULID, bool) {
	return o.metaULID(MetaInstanceID)
}

// OwnerID returns the parsed owner_id metadata value.
func (o *Object) OwnerID() (ulid.ULID, bool) {
	return o.metaULID(MetaOwnerID)
}

func (o *Object) metaULID(key string) (ulid.ULID, bool) {
	v, ok := o.Metadata[key]
	if !ok {
		return ulid.ULID{}, false
	}
	id, err := ulid.Parse(v)
	if err != nil {
		return ulid.ULID{}, false
	}
	return id, true
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	out := *o
	out.Geometry = o.Geometry.Clone()
	out.Tags = append([]string(nil), o.Tags...)
	out.Metadata = make(map[string]string, len(o.Metadata))
	for k, v := range o.Metadata {
		out.Metadata[k] = v
	}
	return &out
}

// addTag inserts tag keeping Tags sorted and unique.
func (o *Object) addTag(tag string) {
	i := sort.SearchStrings(o.Tags, tag)
	if i < len(o.Tags) && o.Tags[i] == tag {
		return
	}
	o.Tags = append(o.Tags, "")
	copy(o.Tags[i+1:], o.Tags[i:])
	o.Tags[i] = tag
}
