// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import "errors"

// ErrNotFound is returned when no placed_items row matches an instance id.
var ErrNotFound = errors.New("placed item not found")
