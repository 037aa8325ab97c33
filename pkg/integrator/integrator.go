package integrator

import (
	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/geometry"
)

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// RayColor computes the radiance carried back along ray from world,
	// following at most depth bounces
	RayColor(ray core.Ray, world geometry.Shape, sampler core.Sampler, depth int) core.Vec3
}

// Background supplies the radiance seen by rays that escape the scene
type Background interface {
	Emit(ray core.Ray) core.Vec3
}

// GradientBackground blends between Bottom and Top by the ray's vertical direction
type GradientBackground struct {
	Top    core.Vec3
	Bottom core.Vec3
}

// NewSkyBackground returns the white-to-sky-blue gradient used by every built-in scene
func NewSkyBackground() GradientBackground {
	return GradientBackground{
		Top:    core.NewVec3(0.5, 0.7, 1.0),
		Bottom: core.One(),
	}
}

// Emit returns the background radiance for a ray that missed everything
func (g GradientBackground) Emit(ray core.Ray) core.Vec3 {
	unitDirection := ray.Direction.Normalize()

	// Map the y-component from [-1,1] to [0,1]
	t := 0.5 * (unitDirection.Y + 1.0)

	// (1-t)*bottom + t*top
	return g.Bottom.Lerp(g.Top, t)
}
