// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"

	"github.com/samber/oops"

	"github.com/holomush/holoplace/internal/account"
	accountpg "github.com/holomush/holoplace/internal/account/postgres"
	"github.com/holomush/holoplace/internal/catalog"
	"github.com/holomush/holoplace/internal/config"
	"github.com/holomush/holoplace/internal/item"
	itempg "github.com/holomush/holoplace/internal/item/postgres"
	"github.com/holomush/holoplace/internal/world"
	worldpg "github.com/holomush/holoplace/internal/world/postgres"
)

// runtime is one process worth of engine wiring over the database.
type runtime struct {
	Registry *catalog.Registry
	Space    *world.Space
	Accounts *account.Manager
	Engine   *item.Engine
	Restored int
}

// buildRuntime restores persisted placed items into a fresh world and wires
// the engine and account manager against db.
func buildRuntime(ctx context.Context, cfg *config.Config, db Database, registry *catalog.Registry) (*runtime, error) {
	parent, err := cfg.ParentID()
	if err != nil {
		return nil, err
	}

	objects := worldpg.NewObjectRepository(db)
	space := world.NewSpace()

	placed, err := objects.List(ctx)
	if err != nil {
		return nil, oops.Code("REHYDRATE_FAILED").With("operation", "list placed items").Wrap(err)
	}
	restored, err := item.Rehydrate(ctx, space, registry, placed)
	if err != nil {
		return nil, err
	}

	engine, err := item.NewEngine(item.EngineConfig{
		Registry:      registry,
		Binder:        space,
		Normalizer:    cfg.Normalizer(),
		Journal:       itempg.NewJournal(db, itempg.WithRetries(cfg.Journal.MaxRetries, cfg.Journal.Backoff)),
		Parent:        parent,
		GroundLevel:   cfg.World.GroundLevel,
		LookupTimeout: cfg.Lookup.Timeout,
	})
	if err != nil {
		return nil, oops.Code("ENGINE_INIT_FAILED").Wrap(err)
	}

	return &runtime{
		Registry: registry,
		Space:    space,
		Accounts: account.NewManager(account.ManagerConfig{
			Balances:   accountpg.NewBalanceRepository(db),
			Placements: objects,
			Resolver:   space,
		}),
		Engine:   engine,
		Restored: restored,
	}, nil
}

// loadCatalog loads the configured catalog. A broken catalog is fatal for
// every command that needs it.
func loadCatalog(deps *Deps, cfg *config.Config) (*catalog.Registry, error) {
	registry, err := deps.CatalogLoader(cfg.Catalog.Path)
	if err != nil {
		return nil, oops.Code("CATALOG_INVALID").With("path", cfg.Catalog.Path).Wrap(err)
	}
	return registry, nil
}
