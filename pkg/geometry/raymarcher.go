package geometry

import (
	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/material"
)

// Raymarcher renders a signed distance field by sphere tracing
type Raymarcher struct {
	Field    SignedDistanceField
	MaxSteps int     // Step budget; running out is a miss
	Epsilon  float64 // Distance below which the march counts as a hit
	Material material.Material
}

// NewRaymarcher creates a sphere-traced shape
func NewRaymarcher(field SignedDistanceField, maxSteps int, epsilon float64, material material.Material) *Raymarcher {
	return &Raymarcher{
		Field:    field,
		MaxSteps: maxSteps,
		Epsilon:  epsilon,
		Material: material,
	}
}

// Hit marches from tMin along the ray, stepping by the field's distance
// estimate. Hits are always reported as front-facing.
func (r *Raymarcher) Hit(ray core.Ray, tMin, tMax float64) (material.HitRecord, bool) {
	t := tMin

	for step := 0; step < r.MaxSteps; step++ {
		point := ray.At(t)
		distance := r.Field.Distance(point)

		if distance < r.Epsilon {
			return material.HitRecord{
				Point:     point,
				Normal:    r.Field.Normal(point),
				T:         t,
				FrontFace: true,
				Material:  r.Material,
			}, true
		}

		t += distance
		if t > tMax {
			return material.HitRecord{}, false
		}
	}

	return material.HitRecord{}, false
}

func (*Raymarcher) shape() {}
