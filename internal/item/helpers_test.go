// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package item

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoplace/internal/catalog"
	"github.com/holomush/holoplace/internal/core"
	"github.com/holomush/holoplace/internal/currency"
	"github.com/holomush/holoplace/internal/placement"
	"github.com/holomush/holoplace/internal/world"
)

const (
	gold currency.Kind = "GOLD"
	gems currency.Kind = "GEMS"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func anchored(y float64) catalog.Geometry {
	return catalog.Geometry{
		Size:   placement.Vec3{X: 1, Y: 2 * -y, Z: 1},
		Anchor: &placement.Vec3{Y: y},
	}
}

// testRegistry builds the catalog used by engine tests:
//
//	T1      BUY {GOLD: 50}
//	T2      BUY {GOLD: 200}
//	combo   BUY {GOLD: 10, GEMS: 1}
//	free    BUY {}
//	trophy  no BUY price
func testRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	reg, err := catalog.NewRegistry([]catalog.Template{
		{ID: "T1", Name: "Chair", Geometry: anchored(-0.5), Prices: catalog.PriceTable{
			catalog.ExchangeBuy: {gold: 50}, catalog.ExchangeSell: {gold: 20},
		}},
		{ID: "T2", Name: "Throne", Geometry: anchored(-1), Prices: catalog.PriceTable{
			catalog.ExchangeBuy: {gold: 200},
		}},
		{ID: "combo", Name: "Lamp", Geometry: anchored(-0.25), Prices: catalog.PriceTable{
			catalog.ExchangeBuy: {gold: 10, gems: 1},
		}},
		{ID: "free", Name: "Pebble", Geometry: anchored(-0.1), Prices: catalog.PriceTable{
			catalog.ExchangeBuy: {},
		}},
		{ID: "trophy", Name: "Trophy", Geometry: anchored(-0.5), Prices: catalog.PriceTable{
			catalog.ExchangeSell: {gold: 500},
		}},
	}, []currency.Kind{gold, gems})
	require.NoError(t, err)
	return reg
}

type engineOption func(*EngineConfig)

func withJournal(j Journal) engineOption {
	return func(c *EngineConfig) { c.Journal = j }
}

func withBinder(b world.Binder) engineOption {
	return func(c *EngineConfig) { c.Binder = b }
}

func withNormalizer(n placement.Normalizer) engineOption {
	return func(c *EngineConfig) { c.Normalizer = n }
}

func withLookupTimeout(d time.Duration) engineOption {
	return func(c *EngineConfig) { c.LookupTimeout = d }
}

func withGround(y float64) engineOption {
	return func(c *EngineConfig) { c.GroundLevel = y }
}

func newTestEngine(t *testing.T, space *world.Space, opts ...engineOption) *Engine {
	t.Helper()
	cfg := EngineConfig{
		Registry:      testRegistry(t),
		Binder:        space,
		Parent:        core.NewULID(),
		LookupTimeout: 50 * time.Millisecond,
		Now:           func() time.Time { return testNow },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

// faultyBinder is a Space whose individual steps can be made to fail.
type faultyBinder struct {
	*world.Space
	spawnErr    error
	attachErr   error
	setPoseErr  error
	classifyErr error
	metadataErr error
	noHandle    bool

	mu        sync.Mutex
	despawned []ulid.ULID
}

func newFaultyBinder() *faultyBinder {
	return &faultyBinder{Space: world.NewSpace()}
}

func (b *faultyBinder) Spawn(ctx context.Context, geom catalog.Geometry, pose placement.Pose, parent ulid.ULID) (ulid.ULID, error) {
	if b.spawnErr != nil {
		return ulid.ULID{}, b.spawnErr
	}
	return b.Space.Spawn(ctx, geom, pose, parent)
}

func (b *faultyBinder) Attach(ctx context.Context, id ulid.ULID) error {
	if b.attachErr != nil {
		return b.attachErr
	}
	return b.Space.Attach(ctx, id)
}

func (b *faultyBinder) SetPose(ctx context.Context, id ulid.ULID, pose placement.Pose) error {
	if b.setPoseErr != nil {
		return b.setPoseErr
	}
	return b.Space.SetPose(ctx, id, pose)
}

func (b *faultyBinder) Classify(ctx context.Context, id ulid.ULID, tag string) error {
	if b.classifyErr != nil {
		return b.classifyErr
	}
	return b.Space.Classify(ctx, id, tag)
}

func (b *faultyBinder) SetMetadata(ctx context.Context, id ulid.ULID, key, value string) error {
	if b.metadataErr != nil {
		return b.metadataErr
	}
	return b.Space.SetMetadata(ctx, id, key, value)
}

func (b *faultyBinder) Bind(id ulid.ULID) (*world.Handle, bool) {
	if b.noHandle {
		return nil, false
	}
	return b.Space.Bind(id)
}

func (b *faultyBinder) Despawn(ctx context.Context, id ulid.ULID) error {
	b.mu.Lock()
	b.despawned = append(b.despawned, id)
	b.mu.Unlock()
	return b.Space.Despawn(ctx, id)
}

// fakeJournal records calls and optionally fails them.
type fakeJournal struct {
	mu         sync.Mutex
	purchases  []*PurchaseRecord
	placements []*world.PlacedItem
	err        error
}

func (j *fakeJournal) RecordPurchase(_ context.Context, rec *PurchaseRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.purchases = append(j.purchases, rec)
	return nil
}

func (j *fakeJournal) RecordPlacement(_ context.Context, placed *world.PlacedItem) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.placements = append(j.placements, placed)
	return nil
}

// ownerIndex serves placed instance ids by owner for account.Manager.
type ownerIndex map[string][]*world.PlacedItem

func (o ownerIndex) ListInstanceIDs(_ context.Context, ownerID ulid.ULID) ([]ulid.ULID, error) {
	var ids []ulid.ULID
	for _, p := range o[ownerID.String()] {
		ids = append(ids, p.InstanceID)
	}
	return ids, nil
}

// gatedJournal blocks every write until the test sends its outcome on
// release. The instance id being written is sent on entered first.
type gatedJournal struct {
	entered chan ulid.ULID
	release chan error
}

func newGatedJournal() *gatedJournal {
	return &gatedJournal{
		entered: make(chan ulid.ULID, 1),
		release: make(chan error),
	}
}

func (j *gatedJournal) RecordPurchase(_ context.Context, rec *PurchaseRecord) error {
	j.entered <- rec.Item.InstanceID
	return <-j.release
}

func (j *gatedJournal) RecordPlacement(_ context.Context, placed *world.PlacedItem) error {
	j.entered <- placed.InstanceID
	return <-j.release
}
