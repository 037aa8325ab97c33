package loaders

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/geometry"
	"github.com/df07/go-sdf-pathtracer/pkg/material"
	"github.com/df07/go-sdf-pathtracer/pkg/renderer"
	"github.com/df07/go-sdf-pathtracer/pkg/scene"
)

// ErrInvalidScene wraps every validation failure of a scene description
var ErrInvalidScene = errors.New("invalid scene")

// SceneFile is the JSON form of a scene description
type SceneFile struct {
	Name        string        `json:"name,omitempty"`
	Description string        `json:"description,omitempty"`
	Group       string        `json:"group,omitempty"`
	Camera      *CameraJSON   `json:"camera,omitempty"`
	Sampling    *SamplingJSON `json:"sampling,omitempty"`
	World       []ShapeJSON   `json:"world"`
}

// CameraJSON overrides the default camera; omitted fields keep their defaults
type CameraJSON struct {
	LookFrom    *[3]float64 `json:"lookFrom,omitempty"`
	LookAt      *[3]float64 `json:"lookAt,omitempty"`
	Up          *[3]float64 `json:"up,omitempty"`
	VFov        float64     `json:"vfov,omitempty"`
	AspectRatio float64     `json:"aspectRatio,omitempty"` // Used to derive a missing image height
}

// SamplingJSON overrides the default sampling settings; zero fields keep their defaults.
// Seed is a pointer so that an explicit 0 is honored.
type SamplingJSON struct {
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
	SamplesPerPixel int    `json:"samplesPerPixel,omitempty"`
	MaxDepth        int    `json:"maxDepth,omitempty"`
	Seed            *int64 `json:"seed,omitempty"`
}

// ShapeJSON describes a sphere, a raymarched field or a nested list
type ShapeJSON struct {
	Type     string        `json:"type"`
	Center   [3]float64    `json:"center,omitempty"`
	Radius   float64       `json:"radius,omitempty"`
	Field    *FieldJSON    `json:"field,omitempty"`
	MaxSteps int           `json:"maxSteps,omitempty"`
	Epsilon  float64       `json:"epsilon,omitempty"`
	Material *MaterialJSON `json:"material,omitempty"`
	Children []ShapeJSON   `json:"children,omitempty"`
}

// FieldJSON describes a signed distance field
type FieldJSON struct {
	Type       string     `json:"type"`
	Center     [3]float64 `json:"center"`
	Radius     float64    `json:"radius,omitempty"`
	Iterations int        `json:"iterations,omitempty"`
}

// MaterialJSON describes a surface material
type MaterialJSON struct {
	Type   string     `json:"type"`
	Albedo [3]float64 `json:"albedo,omitempty"`
	Fuzz   float64    `json:"fuzz,omitempty"`
}

// LoadScene reads and validates a JSON scene description
func LoadScene(filename string) (*scene.Scene, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file: %w", err)
	}
	defer file.Close()

	s, err := ParseScene(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return s, nil
}

// ParseScene decodes and validates a JSON scene description
func ParseScene(reader io.Reader) (*scene.Scene, error) {
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()

	var sf SceneFile
	if err := decoder.Decode(&sf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	return BuildScene(sf)
}

// BuildScene converts a decoded scene description into a renderable scene
func BuildScene(sf SceneFile) (*scene.Scene, error) {
	sampling := renderer.DefaultSamplingConfig()
	s := &scene.Scene{
		Name:     sf.Name,
		Camera:   scene.DefaultCameraConfig(float64(sampling.Width) / float64(sampling.Height)),
		Sampling: sampling,
	}
	if s.Name == "" {
		s.Name = "custom"
	}

	if sf.Camera != nil {
		if err := applyCamera(&s.Camera, *sf.Camera); err != nil {
			return nil, err
		}
	}

	if sf.Sampling != nil {
		s.ApplySampling(renderer.SamplingConfig{
			Width:           sf.Sampling.Width,
			Height:          sf.Sampling.Height,
			SamplesPerPixel: sf.Sampling.SamplesPerPixel,
			MaxDepth:        sf.Sampling.MaxDepth,
		})
		if sf.Sampling.Seed != nil {
			s.Sampling.Seed = *sf.Sampling.Seed
		}
	}
	if err := s.Sampling.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}

	world := geometry.NewList()
	for i, shapeJSON := range sf.World {
		shape, err := buildShape(shapeJSON)
		if err != nil {
			return nil, fmt.Errorf("world[%d]: %w", i, err)
		}
		world.Add(shape)
	}
	s.World = world

	return s, nil
}

func vec(v [3]float64) core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}

func applyCamera(config *geometry.CameraConfig, camera CameraJSON) error {
	if camera.LookFrom != nil {
		config.LookFrom = vec(*camera.LookFrom)
	}
	if camera.LookAt != nil {
		config.LookAt = vec(*camera.LookAt)
	}
	if camera.Up != nil {
		config.Up = vec(*camera.Up)
	}
	if camera.VFov != 0 {
		config.VFov = camera.VFov
	}
	if camera.AspectRatio != 0 {
		config.AspectRatio = camera.AspectRatio
	}

	switch {
	case config.LookFrom.Subtract(config.LookAt).LengthSquared() == 0:
		return fmt.Errorf("%w: camera lookFrom and lookAt coincide", ErrInvalidScene)
	case config.Up.LengthSquared() == 0:
		return fmt.Errorf("%w: camera up vector is zero", ErrInvalidScene)
	case config.VFov <= 0 || config.VFov >= 180:
		return fmt.Errorf("%w: camera vfov must be in (0, 180), got %v", ErrInvalidScene, config.VFov)
	case config.AspectRatio <= 0:
		return fmt.Errorf("%w: camera aspect ratio must be positive, got %v", ErrInvalidScene, config.AspectRatio)
	}
	return nil
}

func buildShape(s ShapeJSON) (geometry.Shape, error) {
	switch s.Type {
	case "sphere":
		if s.Radius == 0 {
			return nil, fmt.Errorf("%w: sphere radius must be non-zero", ErrInvalidScene)
		}
		m, err := buildMaterial(s.Material)
		if err != nil {
			return nil, err
		}
		return geometry.NewSphere(vec(s.Center), s.Radius, m), nil

	case "raymarcher":
		if s.MaxSteps <= 0 {
			return nil, fmt.Errorf("%w: raymarcher maxSteps must be positive, got %d", ErrInvalidScene, s.MaxSteps)
		}
		if s.Epsilon <= 0 {
			return nil, fmt.Errorf("%w: raymarcher epsilon must be positive, got %v", ErrInvalidScene, s.Epsilon)
		}
		field, err := buildField(s.Field)
		if err != nil {
			return nil, err
		}
		m, err := buildMaterial(s.Material)
		if err != nil {
			return nil, err
		}
		return geometry.NewRaymarcher(field, s.MaxSteps, s.Epsilon, m), nil

	case "list":
		list := geometry.NewList()
		for i, child := range s.Children {
			shape, err := buildShape(child)
			if err != nil {
				return nil, fmt.Errorf("children[%d]: %w", i, err)
			}
			list.Add(shape)
		}
		return list, nil
	}
	return nil, fmt.Errorf("%w: unknown shape type %q", ErrInvalidScene, s.Type)
}

func buildField(f *FieldJSON) (geometry.SignedDistanceField, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: raymarcher requires a field", ErrInvalidScene)
	}

	switch f.Type {
	case "sphere":
		return geometry.NewSphereField(vec(f.Center), f.Radius), nil
	case "sierpinski":
		if f.Iterations < 0 {
			return nil, fmt.Errorf("%w: sierpinski iterations must not be negative, got %d", ErrInvalidScene, f.Iterations)
		}
		return geometry.NewSierpinskiTetrasphere(vec(f.Center), f.Iterations), nil
	}
	return nil, fmt.Errorf("%w: unknown field type %q", ErrInvalidScene, f.Type)
}

func buildMaterial(m *MaterialJSON) (material.Material, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: shape requires a material", ErrInvalidScene)
	}

	switch m.Type {
	case "lambertian":
		return material.NewLambertian(vec(m.Albedo)), nil
	case "metal":
		return material.NewMetal(vec(m.Albedo), m.Fuzz), nil
	case "absorb":
		return material.NewAbsorb(), nil
	}
	return nil, fmt.Errorf("%w: unknown material type %q", ErrInvalidScene, m.Type)
}
