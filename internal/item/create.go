// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package item

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/holoplace/internal/account"
	"github.com/holomush/holoplace/internal/catalog"
	"github.com/holomush/holoplace/internal/placement"
	"github.com/holomush/holoplace/internal/world"
)

// CreateOption configures CreateItem.
type CreateOption func(*createOptions)

type createOptions struct {
	instanceID ulid.ULID
	hasID      bool
	pose       *placement.Pose
}

// WithInstanceID uses id instead of generating a new instance id.
func WithInstanceID(id ulid.ULID) CreateOption {
	return func(o *createOptions) {
		o.instanceID = id
		o.hasID = true
	}
}

// WithPose places the item at pose instead of the template's ground pose.
func WithPose(pose placement.Pose) CreateOption {
	return func(o *createOptions) {
		o.pose = &pose
	}
}

// CreateItem places a new item owned by user without charging for it.
func (e *Engine) CreateItem(ctx context.Context, user *account.Account, templateID string, opts ...CreateOption) (h *world.Handle, err error) {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !o.hasID {
		o.instanceID = e.newID()
	}

	ctx, span := tracer.Start(ctx, "item.create",
		trace.WithAttributes(
			attribute.String("user.id", user.UserID().String()),
			attribute.String("template.id", templateID),
			attribute.String("instance.id", o.instanceID.String()),
		),
	)
	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "panic")
			span.End()
			panic(r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tmpl, ok := e.registry.Resolve(templateID)
	if !ok {
		err = errTemplateNotFound(templateID)
		recordCreation(statusOf(err))
		return nil, err
	}

	err = user.Update(func(tx *account.Tx) error {
		placed, err := e.place(ctx, tx, tmpl, o.instanceID, o.pose)
		if err != nil {
			return err
		}
		if e.journal != nil {
			record := world.PlacedItemFromHandle(placed, e.now().UTC())
			if err := e.journal.RecordPlacement(ctx, record); err != nil {
				e.discard(ctx, placed.ObjectID())
				return journalError(templateID, err)
			}
		}
		h = placed
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, h)

	slog.InfoContext(ctx, "item created",
		"user_id", user.UserID().String(),
		"template_id", templateID,
		"instance_id", o.instanceID.String(),
		"object_id", h.ObjectID().String())
	return h, nil
}

// place runs the creation steps for tmpl inside an account transaction and
// stages the resulting handle on tx. On error, any spawned object has been
// despawned. The returned object is reserved; publish it once tx commits.
func (e *Engine) place(ctx context.Context, tx *account.Tx, tmpl *catalog.Template, instanceID ulid.ULID, pose *placement.Pose) (h *world.Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			recordCreation(StatusError)
			panic(r)
		}
		recordCreation(statusOf(err))
	}()
	return e.spawnAndBind(ctx, tx, tmpl, instanceID, pose)
}

// publish makes a committed item visible to GetItem. The item is already
// owned and journaled, so a failure is logged rather than returned.
func (e *Engine) publish(ctx context.Context, h *world.Handle) {
	if err := e.binder.Publish(ctx, h.ObjectID()); err != nil {
		slog.ErrorContext(ctx, "failed to publish placed item",
			"instance_id", h.InstanceID().String(),
			"object_id", h.ObjectID().String(),
			"error", err)
	}
}

func (e *Engine) spawnAndBind(ctx context.Context, tx *account.Tx, tmpl *catalog.Template, instanceID ulid.ULID, pose *placement.Pose) (*world.Handle, error) {
	if tx.IsPlaced(instanceID) {
		return nil, errConflict(instanceID, nil)
	}

	geom := tmpl.Geometry.Clone()
	candidate := e.defaultPose(geom)
	if pose != nil {
		candidate = *pose
	}
	normalized := e.normalizer.Normalize(candidate)

	objectID, err := e.binder.Spawn(ctx, geom, candidate, e.parent)
	if err != nil {
		return nil, worldError("spawn", err)
	}

	fail := func(err error) (*world.Handle, error) {
		e.discard(ctx, objectID)
		return nil, err
	}

	if err := e.binder.Attach(ctx, objectID); err != nil {
		return fail(worldError("attach", err))
	}

	// The normalized pose is a correction applied after attach; a pose the
	// world rejects keeps the candidate pose instead of failing the creation.
	if err := e.binder.SetPose(ctx, objectID, normalized); err != nil {
		if !errors.Is(err, world.ErrInvalidPose) {
			return fail(worldError("set_pose", err))
		}
		slog.WarnContext(ctx, "normalized pose rejected, keeping candidate",
			"template_id", tmpl.ID,
			"candidate", candidate.String(),
			"normalized", normalized.String())
	}

	for _, tag := range []string{world.TagPlacedItem, world.TemplateTag(tmpl.ID)} {
		if err := e.binder.Classify(ctx, objectID, tag); err != nil {
			return fail(worldError("classify", err))
		}
	}

	metadata := [][2]string{
		{world.MetaOwnerID, tx.UserID().String()},
		{world.MetaTemplateID, tmpl.ID},
	}
	for _, kv := range metadata {
		if err := e.binder.SetMetadata(ctx, objectID, kv[0], kv[1]); err != nil {
			return fail(worldError("set_metadata", err))
		}
	}

	// The instance id stays reserved, and GetItem blind to it, until the
	// account update commits and the caller publishes it.
	if err := e.binder.Reserve(ctx, objectID, instanceID); err != nil {
		if errors.Is(err, world.ErrDuplicateInstance) {
			return fail(errConflict(instanceID, err))
		}
		return fail(worldError("reserve", err))
	}

	h, ok := e.binder.Bind(objectID)
	if !ok || h == nil {
		e.discard(ctx, objectID)
		panic(oops.Code(CodeBinderInvariant).
			With("object_id", objectID.String()).
			With("template_id", tmpl.ID).
			With("instance_id", instanceID.String()).
			Errorf("binder produced no handle for a stamped, attached object"))
	}

	if err := tx.Place(instanceID, h); err != nil {
		if errors.Is(err, account.ErrAlreadyPlaced) {
			return fail(errConflict(instanceID, err))
		}
		return fail(err)
	}
	return h, nil
}

// defaultPose rests the anchor point on the ground reference with zero
// horizontal coordinates.
func (e *Engine) defaultPose(geom catalog.Geometry) placement.Pose {
	var anchor placement.Vec3
	if geom.Anchor != nil {
		anchor = *geom.Anchor
	}
	return placement.GroundPose(anchor, e.ground)
}

// journalError gives journal failures the engine's codes.
func journalError(templateID string, err error) error {
	if errors.Is(err, account.ErrInsufficientFunds) && !IsForbidden(err) {
		return errInsufficientFunds(templateID, err)
	}
	return oops.With("template_id", templateID).With("step", "journal").Wrap(err)
}
