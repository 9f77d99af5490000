// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package core holds identifier helpers shared by every other package.
package core

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// IDSource generates monotonic ULIDs. It is safe for concurrent use.
type IDSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewIDSource returns an IDSource reading randomness from r.
// A nil now uses time.Now.
func NewIDSource(r io.Reader, now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{entropy: ulid.Monotonic(r, 0), now: now}
}

// New returns the next ULID.
func (s *IDSource) New() ulid.ULID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy)
}

var defaultSource = NewIDSource(rand.Reader, nil)

// NewULID generates a new ULID from the process-wide source.
func NewULID() ulid.ULID {
	return defaultSource.New()
}

// ParseULID parses a ULID string.
func ParseULID(s string) (ulid.ULID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}, oops.Code("INVALID_ULID").With("value", s).Wrap(err)
	}
	return id, nil
}

// ParseOptionalULID parses s, returning the zero ULID for an empty string.
func ParseOptionalULID(s string) (ulid.ULID, error) {
	if s == "" {
		return ulid.ULID{}, nil
	}
	return ParseULID(s)
}
