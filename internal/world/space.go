// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/holoplace/internal/catalog"
	"github.com/holomush/holoplace/internal/core"
	"github.com/holomush/holoplace/internal/placement"
)

// Space is an in-memory world that implements Binder.
// Objects are indexed by object id and, once stamped, by instance id.
type Space struct {
	mu        sync.RWMutex
	objects   map[ulid.ULID]*Object
	instances map[ulid.ULID]ulid.ULID // instance id -> object id
	reserved  map[ulid.ULID]struct{}  // stamped but not yet published
	waiters   *notifier
	newID     func() ulid.ULID
	now       func() time.Time
}

// SpaceOption configures a Space.
type SpaceOption func(*Space)

// WithIDSource sets the generator for object ids.
func WithIDSource(src *core.IDSource) SpaceOption {
	return func(s *Space) {
		s.newID = src.New
	}
}

// WithClock sets the clock used for CreatedAt.
func WithClock(now func() time.Time) SpaceOption {
	return func(s *Space) {
		s.now = now
	}
}

// NewSpace creates an empty Space.
func NewSpace(opts ...SpaceOption) *Space {
	s := &Space{
		objects:   make(map[ulid.ULID]*Object),
		instances: make(map[ulid.ULID]ulid.ULID),
		reserved:  make(map[ulid.ULID]struct{}),
		waiters:   newNotifier(),
		newID:     core.NewULID,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spawn implements Binder.
func (s *Space) Spawn(ctx context.Context, geom catalog.Geometry, pose placement.Pose, parent ulid.ULID) (ulid.ULID, error) {
	if err := ctx.Err(); err != nil {
		return ulid.ULID{}, oops.With("operation", "spawn").Wrap(err)
	}
	if !validPose(pose) {
		return ulid.ULID{}, oops.With("operation", "spawn").With("pose", pose.String()).Wrap(ErrInvalidPose)
	}

	obj := &Object{
		ID:        s.newID(),
		Parent:    parent,
		Geometry:  geom.Clone(),
		Pose:      pose,
		Metadata:  make(map[string]string),
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.objects[obj.ID] = obj
	s.mu.Unlock()

	slog.Debug("object spawned", "object_id", obj.ID.String(), "parent", parent.String(), "pose", pose.String())
	return obj.ID, nil
}

// Attach implements Binder. Attaching twice is a no-op.
func (s *Space) Attach(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, err := s.get(id)
	if err != nil {
		return err
	}
	if obj.Geometry.Anchor == nil {
		return oops.With("object_id", id.String()).Wrap(ErrNotAttachable)
	}
	obj.Attached = true
	return nil
}

// SetPose implements Binder.
func (s *Space) SetPose(_ context.Context, id ulid.ULID, pose placement.Pose) error {
	if !validPose(pose) {
		return oops.With("object_id", id.String()).With("pose", pose.String()).Wrap(ErrInvalidPose)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj, err := s.get(id)
	if err != nil {
		return err
	}
	obj.Pose = pose
	return nil
}

// Classify implements Binder. Tags are kept sorted and unique.
func (s *Space) Classify(_ context.Context, id ulid.ULID, tag string) error {
	if err := ValidateTag(tag); err != nil {
		return oops.With("object_id", id.String()).Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj, err := s.get(id)
	if err != nil {
		return err
	}
	if !obj.HasTag(tag) && len(obj.Tags) >= MaxTagCount {
		return oops.With("object_id", id.String()).Wrap(&ValidationError{
			Field: "tag", Message: "too many tags",
		})
	}
	obj.addTag(tag)
	return nil
}

// SetMetadata implements Binder. Setting instance_id indexes the object and
// wakes any goroutine waiting for that instance.
func (s *Space) SetMetadata(_ context.Context, id ulid.ULID, key, value string) error {
	if err := ValidateMetadataKey(key); err != nil {
		return oops.With("object_id", id.String()).Wrap(err)
	}
	if err := ValidateMetadataValue(value); err != nil {
		return oops.With("object_id", id.String()).With("key", key).Wrap(err)
	}

	if key == MetaInstanceID {
		instanceID, err := ulid.Parse(value)
		if err != nil {
			return oops.With("object_id", id.String()).With("value", value).Wrap(ErrInvalidInstanceID)
		}
		if err := s.stamp(id, instanceID, false); err != nil {
			return err
		}
		s.waiters.publish(instanceID)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj, err := s.get(id)
	if err != nil {
		return err
	}
	if err := checkMetadataRoom(obj, key); err != nil {
		return err
	}
	obj.Metadata[key] = value
	return nil
}

// Reserve implements Binder. The object is stamped and the instance id is
// claimed, but Await and Lookup do not see it until Publish.
func (s *Space) Reserve(_ context.Context, id, instanceID ulid.ULID) error {
	return s.stamp(id, instanceID, true)
}

// Publish implements Binder. Publishing an already visible object is a no-op.
func (s *Space) Publish(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	obj, err := s.get(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	instanceID, ok := obj.InstanceID()
	if !ok {
		s.mu.Unlock()
		return oops.With("object_id", id.String()).Wrap(ErrNotStamped)
	}
	delete(s.reserved, instanceID)
	s.mu.Unlock()

	s.waiters.publish(instanceID)
	return nil
}

// stamp writes instance_id on an object and moves the index entry to it.
// A reserved entry stays hidden from Lookup until Publish.
func (s *Space) stamp(id, instanceID ulid.ULID, reserve bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, err := s.get(id)
	if err != nil {
		return err
	}
	if err := checkMetadataRoom(obj, MetaInstanceID); err != nil {
		return err
	}
	if owner, taken := s.instances[instanceID]; taken && owner != id {
		return oops.With("object_id", id.String()).
			With("instance_id", instanceID.String()).
			With("bound_to", owner.String()).
			Wrap(ErrDuplicateInstance)
	}
	if prev, ok := obj.InstanceID(); ok && prev != instanceID {
		delete(s.instances, prev)
		delete(s.reserved, prev)
	}
	s.instances[instanceID] = id
	if reserve {
		s.reserved[instanceID] = struct{}{}
	} else {
		delete(s.reserved, instanceID)
	}
	obj.Metadata[MetaInstanceID] = instanceID.String()
	return nil
}

func checkMetadataRoom(obj *Object, key string) error {
	if _, exists := obj.Metadata[key]; !exists && len(obj.Metadata) >= MaxMetadataKeys {
		return oops.With("object_id", obj.ID.String()).Wrap(&ValidationError{
			Field: "metadata", Message: "too many keys",
		})
	}
	return nil
}

// Bind implements Binder.
func (s *Space) Bind(id ulid.ULID) (*Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[id]
	if !ok || !obj.Attached || !obj.HasTag(TagPlacedItem) {
		return nil, false
	}
	return newHandle(s, obj), true
}

// Await implements Binder.
func (s *Space) Await(ctx context.Context, instanceID ulid.ULID) (ulid.ULID, error) {
	// Subscribe before the first lookup so a concurrent publish is not missed.
	ch := s.waiters.subscribe(instanceID)
	defer func() { s.waiters.unsubscribe(instanceID, ch) }()

	for {
		if id, ok := s.Lookup(instanceID); ok {
			return id, nil
		}
		select {
		case <-ch:
			// Published or re-indexed; re-check and, if the object vanished
			// in between, wait for the next publish.
			if id, ok := s.Lookup(instanceID); ok {
				return id, nil
			}
			ch = s.waiters.subscribe(instanceID)
		case <-ctx.Done():
			return ulid.ULID{}, ctx.Err()
		}
	}
}

// Despawn implements Binder.
func (s *Space) Despawn(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, err := s.get(id)
	if err != nil {
		return err
	}
	if instanceID, ok := obj.InstanceID(); ok && s.instances[instanceID] == id {
		delete(s.instances, instanceID)
		delete(s.reserved, instanceID)
	}
	delete(s.objects, id)

	slog.Debug("object despawned", "object_id", id.String())
	return nil
}

// Restore inserts a previously persisted object, for example when the
// process starts and rehydrates placed items from the database.
func (s *Space) Restore(obj *Object) error {
	if !validPose(obj.Pose) {
		return oops.With("object_id", obj.ID.String()).Wrap(ErrInvalidPose)
	}
	restored := obj.Clone()
	sort.Strings(restored.Tags)
	instanceID, hasInstance := restored.InstanceID()

	s.mu.Lock()
	if _, exists := s.objects[restored.ID]; exists {
		s.mu.Unlock()
		return oops.With("object_id", obj.ID.String()).Wrap(ErrObjectExists)
	}
	if hasInstance {
		if owner, taken := s.instances[instanceID]; taken {
			s.mu.Unlock()
			return oops.With("object_id", obj.ID.String()).
				With("instance_id", instanceID.String()).
				With("bound_to", owner.String()).
				Wrap(ErrDuplicateInstance)
		}
		s.instances[instanceID] = restored.ID
	}
	s.objects[restored.ID] = restored
	s.mu.Unlock()

	if hasInstance {
		s.waiters.publish(instanceID)
	}
	return nil
}

// Lookup returns the object id stamped with instanceID. Reserved instance
// ids are not found until published.
func (s *Space) Lookup(instanceID ulid.ULID) (ulid.ULID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, hidden := s.reserved[instanceID]; hidden {
		return ulid.ULID{}, false
	}
	id, ok := s.instances[instanceID]
	return id, ok
}

// Object returns a copy of the object with the given id.
func (s *Space) Object(id ulid.ULID) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[id]
	if !ok {
		return nil, false
	}
	return obj.Clone(), true
}

// Objects returns copies of every object ordered by id.
func (s *Space) Objects() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Object, 0, len(s.objects))
	for _, obj := range s.objects {
		out = append(out, obj.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out
}

// Len returns the number of objects.
func (s *Space) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Waiting returns the number of goroutines blocked in Await.
func (s *Space) Waiting() int {
	return s.waiters.waiting()
}

// get must be called with s.mu held.
func (s *Space) get(id ulid.ULID) (*Object, error) {
	obj, ok := s.objects[id]
	if !ok {
		return nil, oops.With("object_id", id.String()).Wrap(ErrObjectNotFound)
	}
	return obj, nil
}

func validPose(p placement.Pose) bool {
	return p.Position.IsFinite() && !math.IsNaN(p.Yaw) && !math.IsInf(p.Yaw, 0)
}
