package renderer

import (
	"image"

	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/geometry"
	"github.com/df07/go-sdf-pathtracer/pkg/integrator"
)

// Raytracer samples individual pixels of a scene.
// It holds no mutable state, so one instance is shared by every worker.
type Raytracer struct {
	world      geometry.Shape
	camera     *geometry.Camera
	integrator integrator.Integrator
	config     SamplingConfig
}

// NewRaytracer creates a new raytracer
func NewRaytracer(world geometry.Shape, camera *geometry.Camera, integrator integrator.Integrator, config SamplingConfig) *Raytracer {
	return &Raytracer{
		world:      world,
		camera:     camera,
		integrator: integrator,
		config:     config,
	}
}

// Config returns the sampling configuration
func (rt *Raytracer) Config() SamplingConfig {
	return rt.config
}

// viewportSpan maps a pixel dimension onto the [0,1] viewport parameter range
func viewportSpan(dim int) float64 {
	if dim > 1 {
		return float64(dim - 1)
	}
	return 1
}

// SamplePixel returns the gamma-corrected color of pixel (x, y), with y = 0 the top row
func (rt *Raytracer) SamplePixel(x, y int) core.Vec3 {
	sampler := core.NewSeededSampler(rt.config.Seed + int64(y*rt.config.Width+x))

	// Viewport rows count upward from the bottom of the image
	j := rt.config.Height - 1 - y
	spanU := viewportSpan(rt.config.Width)
	spanV := viewportSpan(rt.config.Height)

	var ps PixelStats
	for sample := 0; sample < rt.config.SamplesPerPixel; sample++ {
		u := (float64(x) + sampler.Get1D()) / spanU
		v := (float64(j) + sampler.Get1D()) / spanV

		ray := rt.camera.GetRay(u, v)
		ps.AddSample(rt.integrator.RayColor(ray, rt.world, sampler, rt.config.MaxDepth))
	}

	// Gamma 2
	return ps.GetColor().Sqrt()
}

// RenderBounds renders the pixels inside bounds into pixels.
// Bands have disjoint bounds, so concurrent calls never share a row.
func (rt *Raytracer) RenderBounds(bounds image.Rectangle, pixels [][]core.Vec3) RenderStats {
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pixels[y][x] = rt.SamplePixel(x, y)
		}
	}

	pixelCount := bounds.Dx() * bounds.Dy()
	return RenderStats{
		TotalPixels:  pixelCount,
		TotalSamples: pixelCount * rt.config.SamplesPerPixel,
		Rows:         bounds.Dy(),
	}
}
