// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID(t *testing.T) {
	id1 := NewULID()
	id2 := NewULID()

	assert.NotEqual(t, id1, id2, "Two ULIDs should be different")
	// Monotonic entropy keeps ids sortable even within one millisecond.
	assert.Less(t, id1.String(), id2.String())
}

func TestIDSource_FixedClockStaysMonotonic(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	src := NewIDSource(bytes.NewReader(bytes.Repeat([]byte{7}, 1024)), func() time.Time { return fixed })

	prev := src.New()
	for i := 0; i < 10; i++ {
		next := src.New()
		assert.Equal(t, ulid.Timestamp(fixed), next.Time())
		assert.Equal(t, 1, next.Compare(prev))
		prev = next
	}
}

func TestIDSource_Concurrent(t *testing.T) {
	src := NewIDSource(randReader{}, nil)

	const n = 200
	ids := make(chan ulid.ULID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- src.New()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[ulid.ULID]bool, n)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestParseULID(t *testing.T) {
	original := NewULID()
	parsed, err := ParseULID(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestParseULID_Invalid(t *testing.T) {
	_, err := ParseULID("invalid")
	assert.Error(t, err, "ParseULID should fail on invalid input")
}

func TestParseOptionalULID(t *testing.T) {
	id, err := ParseOptionalULID("")
	require.NoError(t, err)
	assert.Equal(t, ulid.ULID{}, id)

	want := NewULID()
	id, err = ParseOptionalULID(want.String())
	require.NoError(t, err)
	assert.Equal(t, want, id)

	_, err = ParseOptionalULID("nope")
	assert.Error(t, err)
}

type randReader struct{}

func (randReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(i * 31)
	}
	return len(p), nil
}
