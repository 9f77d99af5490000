// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoplace/internal/item"
	"github.com/holomush/holoplace/pkg/errutil"
)

// shutdownTimeout bounds graceful shutdown of the observability server.
const shutdownTimeout = 5 * time.Second

// newServeCmd creates the serve subcommand.
func newServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the item service",
		Long: `Load the catalog, connect to the database, restore placed items into
the world and run the purchase and placement engine until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, deps)
		},
	}
}

// runServeWithDeps runs the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *Deps) error {
	deps = deps.withDefaults()

	cfg, err := loadConfig(cmd, deps.Getenv)
	if err != nil {
		return err
	}

	registry, err := loadCatalog(deps, cfg)
	if err != nil {
		errutil.LogError(slog.Default(), "catalog load failed, aborting startup", err)
		return err
	}
	slog.Info("catalog loaded",
		"path", cfg.Catalog.Path,
		"templates", registry.Len(),
		"currencies", registry.Currencies(),
		"digest", registry.Digest())

	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if err := runAutoMigrate(deps, cfg.Database.URL); err != nil {
			return err
		}
	}

	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL, cfg.PoolConfig())
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load)
		item.RegisterMetrics(obsServer.Registerer())
		obsServer.Metrics().BuildInfo.WithLabelValues(version, commit).Set(1)

		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if err := obsServer.Stop(shutdownCtx); err != nil {
				slog.Warn("error stopping observability server", "error", err)
			}
		}()
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	rt, err := buildRuntime(ctx, cfg, db, registry)
	if err != nil {
		return err
	}

	if obsServer != nil {
		m := obsServer.Metrics()
		m.CatalogTemplates.Set(float64(registry.Len()))
		m.RehydratedItems.Set(float64(rt.Restored))
		obsServer.Registerer().MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "holoplace_world_objects",
				Help: "Number of objects in the world",
			}, func() float64 { return float64(rt.Space.Len()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "holoplace_item_lookup_waiters",
				Help: "Number of lookups waiting for an object to appear",
			}, func() float64 { return float64(rt.Space.Waiting()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "holoplace_live_accounts",
				Help: "Number of user accounts held in memory",
			}, func() float64 { return float64(rt.Accounts.Len()) }),
		)
	}
	ready.Store(true)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("holoplace started")
	slog.Info("holoplace ready",
		"templates", registry.Len(),
		"restored_items", rt.Restored,
		"lookup_timeout", rt.Engine.LookupTimeout().String())

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	slog.Info("shutdown complete")
	return nil
}

// runAutoMigrate applies pending migrations before the pool is opened.
func runAutoMigrate(deps *Deps, databaseURL string) error {
	slog.Info("running database migrations")
	m, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	slog.Info("database migrations complete")
	return nil
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when an error is received, the channel is closed, or ctx is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
