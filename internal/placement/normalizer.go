// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package placement

import "math"

// Normalizer snaps a raw pose into one acceptable for world placement.
// Implementations must be pure and total: they never fail, and return the
// input unchanged when they cannot improve it.
type Normalizer interface {
	Normalize(p Pose) Pose
}

// NormalizerFunc adapts a function to the Normalizer interface.
type NormalizerFunc func(Pose) Pose

// Normalize calls f(p).
func (f NormalizerFunc) Normalize(p Pose) Pose {
	return f(p)
}

// Identity is a Normalizer that returns poses unchanged.
var Identity Normalizer = NormalizerFunc(func(p Pose) Pose { return p })

// GridSnapper rounds horizontal coordinates to a square grid, optionally the
// vertical coordinate to a vertical step, and yaw to a rotation step.
// Zero or negative steps disable the corresponding snapping.
type GridSnapper struct {
	CellSize     float64
	VerticalStep float64
	RotationStep float64 // degrees
}

// Normalize implements Normalizer.
func (g GridSnapper) Normalize(p Pose) Pose {
	out := p
	out.Position.X = snap(p.Position.X, g.CellSize)
	out.Position.Z = snap(p.Position.Z, g.CellSize)
	out.Position.Y = snap(p.Position.Y, g.VerticalStep)
	out.Yaw = normalizeYaw(p.Yaw, g.RotationStep)
	return out
}

// snap rounds v to the nearest multiple of step. Non-finite input and
// non-positive steps leave v unchanged.
func snap(v, step float64) float64 {
	if step <= 0 || !isFinite(v) || !isFinite(step) {
		return v
	}
	snapped := math.Round(v/step) * step
	if snapped == 0 {
		// Avoid -0 leaking into persisted poses.
		return 0
	}
	return snapped
}

// normalizeYaw wraps yaw into [0, 360) and rounds it to step.
func normalizeYaw(yaw, step float64) float64 {
	if !isFinite(yaw) {
		return yaw
	}
	yaw = snap(yaw, step)
	yaw = math.Mod(yaw, 360)
	if yaw < 0 {
		yaw += 360
	}
	if yaw == 0 || yaw == 360 {
		return 0
	}
	return yaw
}
