// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/holoplace/internal/catalog"
	"github.com/holomush/holoplace/internal/observability"
	"github.com/holomush/holoplace/internal/store"
)

// Deps contains injectable dependencies shared by the subcommands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// DatabaseFactory opens a connection pool.
	// Default: store.Connect
	DatabaseFactory func(ctx context.Context, url string, cfg store.PoolConfig) (Database, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// CatalogLoader loads the item catalog from a file or directory.
	// Default: catalog.Load
	CatalogLoader func(path string) (*catalog.Registry, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// Getenv reads environment variables.
	// Default: os.Getenv
	Getenv func(string) string
}

// withDefaults fills unset fields. A nil receiver yields all defaults.
func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.DatabaseFactory == nil {
		out.DatabaseFactory = func(ctx context.Context, url string, cfg store.PoolConfig) (Database, error) {
			return store.Connect(ctx, url, cfg)
		}
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if out.CatalogLoader == nil {
		out.CatalogLoader = catalog.Load
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if out.Getenv == nil {
		out.Getenv = os.Getenv
	}
	return &out
}

// Database is a closable connection pool. *pgxpool.Pool and
// pgxmock.PgxPoolIface both satisfy it.
type Database interface {
	store.Pool
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (*store.MigrationStatus, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
	Registerer() prometheus.Registerer
}
