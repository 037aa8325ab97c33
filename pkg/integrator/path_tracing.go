package integrator

import (
	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/geometry"
)

// Config holds the intersection interval and background used while tracing
type Config struct {
	TMin       float64 // Nearest accepted hit, keeps bounced rays off their own surface
	TMax       float64 // Farthest accepted hit
	Background Background
}

// DefaultConfig returns the interval and sky used by the built-in scenes
func DefaultConfig() Config {
	return Config{
		TMin:       0.001,
		TMax:       100.0,
		Background: NewSkyBackground(),
	}
}

// PathTracingIntegrator implements unidirectional path tracing
type PathTracingIntegrator struct {
	config Config
}

// NewPathTracingIntegrator creates a new path tracing integrator
func NewPathTracingIntegrator(config Config) *PathTracingIntegrator {
	if config.Background == nil {
		config.Background = NewSkyBackground()
	}
	return &PathTracingIntegrator{config: config}
}

// Config returns the integrator's configuration
func (pt *PathTracingIntegrator) Config() Config {
	return pt.config
}

// RayColor computes the color for a single ray by recursive scattering
func (pt *PathTracingIntegrator) RayColor(ray core.Ray, world geometry.Shape, sampler core.Sampler, depth int) core.Vec3 {
	// If we've exceeded the ray bounce limit, no more light is gathered
	if depth <= 0 {
		return core.Zero()
	}

	hit, isHit := world.Hit(ray, pt.config.TMin, pt.config.TMax)
	if !isHit {
		return pt.config.Background.Emit(ray)
	}

	scatter, didScatter := hit.Material.Scatter(ray, hit, sampler)
	if !didScatter {
		// Material absorbed the ray
		return core.Zero()
	}

	incoming := pt.RayColor(scatter.Scattered, world, sampler, depth-1)
	return scatter.Attenuation.MultiplyVec(incoming)
}
