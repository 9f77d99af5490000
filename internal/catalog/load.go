// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/holomush/holoplace/internal/currency"
)

// Catalog load errors.
var (
	ErrUnsupportedVersion = errors.New("unsupported catalog format version")
	ErrDuplicateTemplate  = errors.New("duplicate template id")
	ErrNoCatalogFiles     = errors.New("no catalog files found")
)

// SupportedFormat is the semver constraint catalog files must satisfy.
const SupportedFormat = "^1.0.0"

var supportedFormat = mustConstraint(SupportedFormat)

// File is the on-disk shape of a catalog file.
type File struct {
	Version    string          `yaml:"version" json:"version"`
	Currencies []currency.Kind `yaml:"currencies" json:"currencies"`
	Templates  []Template      `yaml:"templates" json:"templates"`
}

// ParseFile parses and schema-validates a single catalog document.
// Cross-template checks happen when files are assembled into a Registry.
func ParseFile(data []byte) (*File, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, oops.Code("CATALOG_SCHEMA").Wrap(err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oops.Code("CATALOG_PARSE").Wrap(err)
	}

	v, err := semver.NewVersion(f.Version)
	if err != nil {
		return nil, oops.Code("CATALOG_VERSION").With("version", f.Version).Wrap(err)
	}
	if !supportedFormat.Check(v) {
		return nil, oops.Code("CATALOG_VERSION").
			With("version", f.Version).
			With("supported", SupportedFormat).
			Wrap(ErrUnsupportedVersion)
	}
	return &f, nil
}

// Load reads a catalog from path, which may be a single YAML file or a
// directory of *.yaml / *.yml files. Every template is validated; any
// template without an anchor point fails the whole load.
func Load(path string) (*Registry, error) {
	files, err := catalogFiles(path)
	if err != nil {
		return nil, err
	}

	hash := sha256.New()
	var (
		templates  []Template
		currencies []currency.Kind
	)
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, oops.Code("CATALOG_READ").With("file", name).Wrap(err)
		}
		hash.Write(data)

		f, err := ParseFile(data)
		if err != nil {
			return nil, oops.With("file", name).Wrap(err)
		}
		currencies = append(currencies, f.Currencies...)
		templates = append(templates, f.Templates...)
	}

	reg, err := NewRegistry(templates, currencies)
	if err != nil {
		return nil, err
	}
	reg.digest = hex.EncodeToString(hash.Sum(nil))
	return reg, nil
}

// MustLoad is like Load but panics on error. Startup code uses it so that a
// broken catalog aborts the process instead of serving partial data.
func MustLoad(path string) *Registry {
	reg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return reg
}

func catalogFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, oops.Code("CATALOG_READ").With("path", path).Wrap(err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, oops.Code("CATALOG_READ").With("path", path).Wrap(err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, oops.Code("CATALOG_READ").With("path", path).Wrap(ErrNoCatalogFiles)
	}
	sort.Strings(files)
	return files, nil
}

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}
