// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package catalog provides the item template registry.
//
// Templates are loaded once at startup from YAML catalog files, validated,
// and served from an immutable Registry that is safe to share between
// goroutines without locking.
package catalog

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/samber/oops"

	"github.com/holomush/holoplace/internal/currency"
	"github.com/holomush/holoplace/internal/placement"
)

// Template validation errors.
var (
	ErrMissingAnchor   = errors.New("geometry has no anchor point")
	ErrInvalidSize     = errors.New("geometry size must be positive and finite")
	ErrInvalidID       = errors.New("invalid template id")
	ErrUnknownCurrency = errors.New("price references undeclared currency")
	ErrUnknownExchange = errors.New("unknown exchange type")
)

// MaxTemplateIDLength is the maximum length of a template id.
const MaxTemplateIDLength = 64

var templateIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Exchange identifies which side of a trade a price applies to.
type Exchange string

// Exchange types.
const (
	ExchangeBuy  Exchange = "BUY"
	ExchangeSell Exchange = "SELL"
)

// Valid reports whether e is a known exchange type.
func (e Exchange) Valid() bool {
	return e == ExchangeBuy || e == ExchangeSell
}

// PriceTable maps an exchange type to the amount charged per currency.
// A currency absent from an entry costs nothing.
type PriceTable map[Exchange]currency.Amounts

// Price returns a copy of the amounts for the exchange type.
// ok is false when the template defines no price for that exchange.
func (p PriceTable) Price(ex Exchange) (currency.Amounts, bool) {
	amounts, ok := p[ex]
	if !ok {
		return nil, false
	}
	return amounts.Clone(), true
}

// Geometry describes an item's shape for placement purposes.
type Geometry struct {
	Size   placement.Vec3  `yaml:"size" json:"size"`
	Anchor *placement.Vec3 `yaml:"anchor,omitempty" json:"anchor,omitempty"`
}

// Clone returns a deep copy of the geometry.
func (g Geometry) Clone() Geometry {
	out := Geometry{Size: g.Size}
	if g.Anchor != nil {
		anchor := *g.Anchor
		out.Anchor = &anchor
	}
	return out
}

// Validate checks that the geometry has a positive size and an anchor point.
func (g Geometry) Validate() error {
	if g.Anchor == nil {
		return ErrMissingAnchor
	}
	if !g.Size.IsFinite() || g.Size.X <= 0 || g.Size.Y <= 0 || g.Size.Z <= 0 {
		return oops.With("size", g.Size.String()).Wrap(ErrInvalidSize)
	}
	if !g.Anchor.IsFinite() {
		return oops.With("anchor", g.Anchor.String()).Wrap(ErrMissingAnchor)
	}
	return nil
}

// Template is an immutable description of a placeable item type.
// Templates returned by a Registry are shared and must not be modified.
type Template struct {
	ID       string     `yaml:"id" json:"id"`
	Name     string     `yaml:"name,omitempty" json:"name,omitempty"`
	Geometry Geometry   `yaml:"geometry" json:"geometry"`
	Prices   PriceTable `yaml:"prices,omitempty" json:"prices,omitempty"`
}

// Validate checks the template against the set of declared currencies.
func (t *Template) Validate(declared map[currency.Kind]bool) error {
	if err := ValidateTemplateID(t.ID); err != nil {
		return err
	}
	if err := t.Geometry.Validate(); err != nil {
		return oops.With("template_id", t.ID).Wrap(err)
	}
	for ex, amounts := range t.Prices {
		if !ex.Valid() {
			return oops.With("template_id", t.ID).With("exchange", string(ex)).Wrap(ErrUnknownExchange)
		}
		if err := amounts.Validate(); err != nil {
			return oops.With("template_id", t.ID).With("exchange", string(ex)).Wrap(err)
		}
		for kind := range amounts {
			if !declared[kind] {
				return oops.With("template_id", t.ID).
					With("exchange", string(ex)).
					With("currency", string(kind)).
					Wrap(ErrUnknownCurrency)
			}
		}
	}
	return nil
}

// ValidateTemplateID checks that id is a usable template identifier.
func ValidateTemplateID(id string) error {
	if id == "" || len(id) > MaxTemplateIDLength || !templateIDPattern.MatchString(id) {
		return oops.With("template_id", id).Wrap(fmt.Errorf("%w: must match %s and be at most %d characters",
			ErrInvalidID, templateIDPattern.String(), MaxTemplateIDLength))
	}
	return nil
}
