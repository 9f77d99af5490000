// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package currency defines currency kinds and per-kind amount sets.
package currency

import (
	"errors"
	"regexp"
	"sort"

	"github.com/samber/oops"
)

// ErrInvalidKind is returned when a currency kind is not a valid identifier.
var ErrInvalidKind = errors.New("invalid currency kind")

// ErrNegativeAmount is returned when an amount set holds a negative value.
var ErrNegativeAmount = errors.New("amount cannot be negative")

// kindPattern matches upper-case identifiers such as GOLD or EVENT_TOKENS.
var kindPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Kind identifies a currency (e.g. GOLD, GEMS).
type Kind string

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Validate checks that the kind is a valid upper-case identifier.
func (k Kind) Validate() error {
	if !kindPattern.MatchString(string(k)) {
		return oops.With("kind", string(k)).Wrap(ErrInvalidKind)
	}
	return nil
}

// Amounts maps currency kinds to integer amounts.
// A kind absent from the map has amount zero.
type Amounts map[Kind]int64

// Get returns the amount for kind, or zero if absent.
func (a Amounts) Get(kind Kind) int64 {
	if a == nil {
		return 0
	}
	return a[kind]
}

// Clone returns a copy of the amounts. A nil receiver yields an empty map.
func (a Amounts) Clone() Amounts {
	out := make(Amounts, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Kinds returns the kinds present in the map, sorted.
func (a Amounts) Kinds() []Kind {
	kinds := make([]Kind, 0, len(a))
	for k := range a {
		kinds = append(kinds, k)
	}
	SortKinds(kinds)
	return kinds
}

// Validate checks that every kind is valid and every amount is non-negative.
func (a Amounts) Validate() error {
	for _, k := range a.Kinds() {
		if err := k.Validate(); err != nil {
			return err
		}
		if a[k] < 0 {
			return oops.With("kind", string(k)).With("amount", a[k]).Wrap(ErrNegativeAmount)
		}
	}
	return nil
}

// Expand returns an amount for every kind in kinds, using zero where a is silent.
// Kinds present in a but not listed are carried over unchanged.
func (a Amounts) Expand(kinds []Kind) Amounts {
	out := a.Clone()
	for _, k := range kinds {
		if _, ok := out[k]; !ok {
			out[k] = 0
		}
	}
	return out
}

// Covers reports whether a holds at least required for every kind.
// When it does not, shortfall lists the missing amount per kind.
func (a Amounts) Covers(required Amounts) (shortfall Amounts, ok bool) {
	for k, need := range required {
		if have := a.Get(k); have < need {
			if shortfall == nil {
				shortfall = make(Amounts)
			}
			shortfall[k] = need - have
		}
	}
	return shortfall, shortfall == nil
}

// IsZero reports whether every amount is zero.
func (a Amounts) IsZero() bool {
	for _, v := range a {
		if v != 0 {
			return false
		}
	}
	return true
}

// SortKinds sorts kinds in place.
func SortKinds(kinds []Kind) {
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
}
