// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package catalog

import (
	"sort"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/holomush/holoplace/internal/currency"
)

// Registry is an immutable lookup of item templates by id.
// It is built once and shared read-only, so no locking is needed.
type Registry struct {
	templates  map[string]*Template
	ids        []string
	currencies []currency.Kind
	digest     string
}

// NewRegistry validates templates against the declared currencies and
// builds a Registry. Duplicate ids and templates without anchors are rejected.
func NewRegistry(templates []Template, currencies []currency.Kind) (*Registry, error) {
	declared := make(map[currency.Kind]bool, len(currencies))
	for _, k := range currencies {
		if err := k.Validate(); err != nil {
			return nil, oops.Code("CATALOG_INVALID").Wrap(err)
		}
		declared[k] = true
	}

	r := &Registry{
		templates:  make(map[string]*Template, len(templates)),
		ids:        make([]string, 0, len(templates)),
		currencies: make([]currency.Kind, 0, len(declared)),
	}
	for k := range declared {
		r.currencies = append(r.currencies, k)
	}
	currency.SortKinds(r.currencies)

	for i := range templates {
		t := templates[i]
		if err := t.Validate(declared); err != nil {
			return nil, oops.Code("CATALOG_INVALID").Wrap(err)
		}
		if _, dup := r.templates[t.ID]; dup {
			return nil, oops.Code("CATALOG_INVALID").With("template_id", t.ID).Wrap(ErrDuplicateTemplate)
		}
		t.Geometry = t.Geometry.Clone()
		t.Prices = clonePrices(t.Prices)
		r.templates[t.ID] = &t
		r.ids = append(r.ids, t.ID)
	}
	sort.Strings(r.ids)
	return r, nil
}

// Resolve returns the template with the given id.
func (r *Registry) Resolve(id string) (*Template, bool) {
	t, ok := r.templates[id]
	return t, ok
}

// Currencies returns every currency kind known to the catalog, sorted.
func (r *Registry) Currencies() []currency.Kind {
	out := make([]currency.Kind, len(r.currencies))
	copy(out, r.currencies)
	return out
}

// Templates returns all templates ordered by id.
func (r *Registry) Templates() []*Template {
	out := make([]*Template, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.templates[id])
	}
	return out
}

// Match returns templates whose id matches a glob pattern such as "chair-*".
func (r *Registry) Match(pattern string) ([]*Template, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, oops.Code("INVALID_PATTERN").With("pattern", pattern).Wrap(err)
	}
	var out []*Template
	for _, id := range r.ids {
		if g.Match(id) {
			out = append(out, r.templates[id])
		}
	}
	return out, nil
}

// Len returns the number of templates.
func (r *Registry) Len() int {
	return len(r.ids)
}

// Digest returns the sha256 of the catalog source files, or "" when the
// registry was not loaded from disk.
func (r *Registry) Digest() string {
	return r.digest
}

func clonePrices(p PriceTable) PriceTable {
	if p == nil {
		return nil
	}
	out := make(PriceTable, len(p))
	for ex, amounts := range p {
		out[ex] = amounts.Clone()
	}
	return out
}
