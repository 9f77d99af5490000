// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package placement contains world positions, poses and pose normalization.
package placement

import (
	"fmt"
	"math"
)

// Vec3 is a point or offset in world space. Y is the vertical axis.
type Vec3 struct {
	X float64 `yaml:"x" json:"x,omitempty"`
	Y float64 `yaml:"y" json:"y,omitempty"`
	Z float64 `yaml:"z" json:"z,omitempty"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// IsFinite reports whether every component is a finite number.
func (v Vec3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Pose is a world position plus a rotation about the vertical axis.
type Pose struct {
	Position Vec3
	Yaw      float64 // degrees
}

func (p Pose) String() string {
	return fmt.Sprintf("%s yaw=%g", p.Position, p.Yaw)
}

// GroundPose returns the pose that rests an object on the ground plane:
// horizontal coordinates are zero and the anchor offset lands exactly on ground.
func GroundPose(anchor Vec3, ground float64) Pose {
	return Pose{Position: Vec3{X: 0, Y: ground - anchor.Y, Z: 0}}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
