// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads holoplace configuration from an optional YAML file and
// command-line flags.
//
// Precedence, lowest first: flag defaults, the YAML file, flags set on the
// command line, then the DATABASE_URL environment variable.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/holoplace/internal/core"
	"github.com/holomush/holoplace/internal/item"
	"github.com/holomush/holoplace/internal/placement"
	"github.com/holomush/holoplace/internal/store"
)

// DatabaseURLEnv overrides database.url when set.
const DatabaseURLEnv = "DATABASE_URL"

// Default configuration values.
const (
	DefaultLogFormat      = "json"
	DefaultLogLevel       = "info"
	DefaultCatalogPath    = "catalog"
	DefaultMetricsAddr    = "127.0.0.1:9100"
	DefaultMaxConns       = 10
	DefaultCellSize       = 0.5
	DefaultRotationStep   = 90.0
	DefaultJournalRetries = 3
	DefaultJournalBackoff = 20 * time.Millisecond
)

// Config is the complete process configuration.
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	World    WorldConfig    `koanf:"world"`
	Lookup   LookupConfig   `koanf:"lookup"`
	Journal  JournalConfig  `koanf:"journal"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// LogConfig selects the log output.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxConns        int32         `koanf:"max_conns"`
	MinConns        int32         `koanf:"min_conns"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// CatalogConfig locates the item catalog.
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// WorldConfig describes where items are placed.
type WorldConfig struct {
	GroundLevel float64    `koanf:"ground_level"`
	Parent      string     `koanf:"parent"`
	Grid        GridConfig `koanf:"grid"`
}

// GridConfig configures the placement grid. Zero disables a step.
type GridConfig struct {
	CellSize     float64 `koanf:"cell_size"`
	VerticalStep float64 `koanf:"vertical_step"`
	RotationStep float64 `koanf:"rotation_step"`
}

// LookupConfig bounds item lookups.
type LookupConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// JournalConfig tunes persistence retries.
type JournalConfig struct {
	MaxRetries uint64        `koanf:"max_retries"`
	Backoff    time.Duration `koanf:"backoff"`
}

// MetricsConfig configures the observability server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// flagKeys maps flag names to configuration keys. Flags not listed here are
// not configuration.
var flagKeys = map[string]string{
	"log-format":           "log.format",
	"log-level":            "log.level",
	"database-url":         "database.url",
	"db-max-conns":         "database.max_conns",
	"db-min-conns":         "database.min_conns",
	"db-max-conn-lifetime": "database.max_conn_lifetime",
	"auto-migrate":         "database.auto_migrate",
	"catalog":              "catalog.path",
	"ground-level":         "world.ground_level",
	"parent":               "world.parent",
	"grid-cell":            "world.grid.cell_size",
	"grid-vertical":        "world.grid.vertical_step",
	"grid-rotation":        "world.grid.rotation_step",
	"lookup-timeout":       "lookup.timeout",
	"journal-retries":      "journal.max_retries",
	"journal-backoff":      "journal.backoff",
	"metrics-addr":         "metrics.addr",
}

// RegisterFlags adds every configuration flag, with its default, to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("log-format", DefaultLogFormat, "log format (json, text)")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")

	fs.String("database-url", "", "PostgreSQL connection URL (overridden by "+DatabaseURLEnv+")")
	fs.Int32("db-max-conns", DefaultMaxConns, "maximum pool connections")
	fs.Int32("db-min-conns", 0, "minimum idle pool connections")
	fs.Duration("db-max-conn-lifetime", 0, "maximum connection lifetime (0 keeps the pool default)")
	fs.Bool("auto-migrate", false, "apply pending migrations on startup")

	fs.String("catalog", DefaultCatalogPath, "catalog file or directory")

	fs.Float64("ground-level", 0, "vertical coordinate of the ground reference")
	fs.String("parent", "", "location ULID new items are placed under")
	fs.Float64("grid-cell", DefaultCellSize, "horizontal grid cell size (0 disables)")
	fs.Float64("grid-vertical", 0, "vertical grid step (0 disables)")
	fs.Float64("grid-rotation", DefaultRotationStep, "yaw rotation step in degrees (0 disables)")

	fs.Duration("lookup-timeout", item.DefaultLookupTimeout, "how long item lookups wait for the object")

	fs.Uint64("journal-retries", DefaultJournalRetries, "retries for serialization failures")
	fs.Duration("journal-backoff", DefaultJournalBackoff, "initial retry backoff")

	fs.String("metrics-addr", DefaultMetricsAddr, "observability server address (empty disables)")
}

// Load builds a Config. path may be empty. fs should carry the flags from
// RegisterFlags; nil uses the defaults only. getenv may be nil.
func Load(path string, fs *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	if fs == nil {
		fs = pflag.NewFlagSet("defaults", pflag.ContinueOnError)
		RegisterFlags(fs)
	}

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	flags := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	})
	if err := k.Load(flags, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
	}

	if getenv != nil {
		if url := getenv(DatabaseURLEnv); url != "" {
			if err := k.Set("database.url", url); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", DatabaseURLEnv).Wrap(err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	return &cfg, nil
}

// Validate checks values that cannot be expressed by flag types.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").With("log.format", c.Log.Format).
			Errorf("log format must be 'json' or 'text'")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return oops.Code("CONFIG_INVALID").With("log.level", c.Log.Level).
			Errorf("log level must be one of debug, info, warn, error")
	}
	if c.Lookup.Timeout <= 0 {
		return oops.Code("CONFIG_INVALID").With("lookup.timeout", c.Lookup.Timeout.String()).
			Errorf("lookup timeout must be positive")
	}
	g := c.World.Grid
	if g.CellSize < 0 || g.VerticalStep < 0 || g.RotationStep < 0 {
		return oops.Code("CONFIG_INVALID").With("world.grid", g).
			Errorf("grid steps cannot be negative")
	}
	if g.RotationStep >= 360 {
		return oops.Code("CONFIG_INVALID").With("world.grid.rotation_step", g.RotationStep).
			Errorf("rotation step must be less than 360 degrees")
	}
	if c.Database.MaxConns < 0 || c.Database.MinConns < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("pool sizes cannot be negative")
	}
	if c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
		return oops.Code("CONFIG_INVALID").
			With("database.min_conns", c.Database.MinConns).
			With("database.max_conns", c.Database.MaxConns).
			Errorf("min connections exceed max connections")
	}
	if _, err := c.ParentID(); err != nil {
		return err
	}
	return nil
}

// RequireDatabase reports an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database url is required: set %s, database.url or --database-url", DatabaseURLEnv)
	}
	return nil
}

// ParentID parses world.parent. Empty yields the zero ULID.
func (c *Config) ParentID() (ulid.ULID, error) {
	id, err := core.ParseOptionalULID(c.World.Parent)
	if err != nil {
		return ulid.ULID{}, oops.Code("CONFIG_INVALID").With("world.parent", c.World.Parent).Wrap(err)
	}
	return id, nil
}

// PoolConfig returns the connection pool settings.
func (c *Config) PoolConfig() store.PoolConfig {
	return store.PoolConfig{
		MaxConns:        c.Database.MaxConns,
		MinConns:        c.Database.MinConns,
		MaxConnLifetime: c.Database.MaxConnLifetime,
	}
}

// Normalizer returns the configured grid snapper.
func (c *Config) Normalizer() placement.Normalizer {
	return placement.GridSnapper{
		CellSize:     c.World.Grid.CellSize,
		VerticalStep: c.World.Grid.VerticalStep,
		RotationStep: c.World.Grid.RotationStep,
	}
}
