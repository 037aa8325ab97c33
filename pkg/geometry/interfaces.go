package geometry

import (
	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/material"
)

// Shape interface for objects that can be hit by rays.
// The set of shapes is closed: List, Sphere and Raymarcher.
type Shape interface {
	// Hit returns the nearest intersection with t strictly inside (tMin, tMax)
	Hit(ray core.Ray, tMin, tMax float64) (material.HitRecord, bool)

	shape()
}
