// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package item is the purchase and placement engine.
//
// The engine resolves templates from the catalog, charges the buyer, spawns
// and stamps the world object through a world.Binder, and records ownership
// on the buyer's account. All check-then-mutate work for one user runs inside
// a single account.Account.Update call, so a failed creation never leaves a
// debit behind.
package item

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"

	"github.com/holomush/holoplace/internal/catalog"
	"github.com/holomush/holoplace/internal/core"
	"github.com/holomush/holoplace/internal/currency"
	"github.com/holomush/holoplace/internal/placement"
	"github.com/holomush/holoplace/internal/world"
)

var tracer = otel.Tracer("holoplace/item")

// DefaultLookupTimeout bounds GetItem when EngineConfig.LookupTimeout is unset.
const DefaultLookupTimeout = 5 * time.Second

// Registry is the read-only template lookup the engine consumes.
// *catalog.Registry implements it.
type Registry interface {
	Resolve(templateID string) (*catalog.Template, bool)
	Currencies() []currency.Kind
}

// EngineConfig holds the engine's collaborators and tuning.
type EngineConfig struct {
	Registry Registry
	Binder   world.Binder

	// Normalizer snaps candidate poses. Nil means placement.Identity.
	Normalizer placement.Normalizer

	// Journal persists purchases and placements. Nil keeps everything in memory.
	Journal Journal

	// Parent is the location new items are spawned under.
	Parent ulid.ULID

	// GroundLevel is the vertical coordinate of the ground reference.
	GroundLevel float64

	// LookupTimeout bounds GetItem. Zero or negative means DefaultLookupTimeout.
	LookupTimeout time.Duration

	// IDs generates instance and purchase ids. Nil uses core.NewULID.
	IDs *core.IDSource

	// Now is the clock for record timestamps. Nil uses time.Now.
	Now func() time.Time
}

// Engine runs purchases, creations and lookups. It is safe for concurrent use.
type Engine struct {
	registry      Registry
	binder        world.Binder
	normalizer    placement.Normalizer
	journal       Journal
	parent        ulid.ULID
	ground        float64
	lookupTimeout time.Duration
	newID         func() ulid.ULID
	now           func() time.Time
}

// NewEngine creates an Engine. Registry and Binder are required.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, ErrNilRegistry
	}
	if cfg.Binder == nil {
		return nil, ErrNilBinder
	}

	e := &Engine{
		registry:      cfg.Registry,
		binder:        cfg.Binder,
		normalizer:    cfg.Normalizer,
		journal:       cfg.Journal,
		parent:        cfg.Parent,
		ground:        cfg.GroundLevel,
		lookupTimeout: cfg.LookupTimeout,
		newID:         core.NewULID,
		now:           cfg.Now,
	}
	if e.normalizer == nil {
		e.normalizer = placement.Identity
	}
	if e.lookupTimeout <= 0 {
		e.lookupTimeout = DefaultLookupTimeout
	}
	if cfg.IDs != nil {
		e.newID = cfg.IDs.New
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// LookupTimeout returns the bound applied to GetItem.
func (e *Engine) LookupTimeout() time.Duration {
	return e.lookupTimeout
}

// discard removes a partially created object. It runs even when ctx has been
// cancelled.
func (e *Engine) discard(ctx context.Context, objectID ulid.ULID) {
	if err := e.binder.Despawn(context.WithoutCancel(ctx), objectID); err != nil {
		slog.WarnContext(ctx, "failed to despawn partial item",
			"object_id", objectID.String(),
			"error", err)
	}
}
