package scene

import (
	"math"

	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/geometry"
	"github.com/df07/go-sdf-pathtracer/pkg/integrator"
	"github.com/df07/go-sdf-pathtracer/pkg/renderer"
)

// Scene contains all the elements needed for rendering
type Scene struct {
	Name     string
	World    geometry.Shape
	Camera   geometry.CameraConfig
	Sampling renderer.SamplingConfig
}

// DefaultCameraConfig returns the camera shared by the built-in scenes,
// looking at the origin from above and to the left
func DefaultCameraConfig(aspectRatio float64) geometry.CameraConfig {
	return geometry.CameraConfig{
		LookFrom:    core.NewVec3(-3.3, 2, 1.75),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.YAxis(),
		VFov:        45.0,
		AspectRatio: aspectRatio,
	}
}

// newBuiltinScene wraps world with the default camera and sampling settings
func newBuiltinScene(name string, world geometry.Shape) *Scene {
	sampling := renderer.DefaultSamplingConfig()
	return &Scene{
		Name:     name,
		World:    world,
		Camera:   DefaultCameraConfig(float64(sampling.Width) / float64(sampling.Height)),
		Sampling: sampling,
	}
}

// ApplySampling merges the non-zero fields of override into the scene's sampling.
// A width without a height keeps the camera's aspect ratio; the camera is then
// matched to the final image shape.
func (s *Scene) ApplySampling(override renderer.SamplingConfig) {
	if override.Width != 0 && override.Height == 0 && s.Camera.AspectRatio > 0 {
		override.Height = max(1, int(math.Round(float64(override.Width)/s.Camera.AspectRatio)))
	}
	s.Sampling = s.Sampling.Merge(override)
	if s.Sampling.Height > 0 {
		s.Camera.AspectRatio = float64(s.Sampling.Width) / float64(s.Sampling.Height)
	}
}

// NewCamera builds the scene's camera
func (s *Scene) NewCamera() *geometry.Camera {
	return geometry.NewCamera(s.Camera)
}

// NewRenderer prepares a path traced render of the scene
func (s *Scene) NewRenderer(config renderer.RenderConfig, logger core.Logger) (*renderer.Renderer, error) {
	return renderer.NewRenderer(
		s.World,
		s.NewCamera(),
		integrator.NewPathTracingIntegrator(integrator.DefaultConfig()),
		s.Sampling,
		config,
		logger,
	)
}
