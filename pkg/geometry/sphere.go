package geometry

import (
	"math"

	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/material"
)

// Sphere represents an analytic sphere shape
type Sphere struct {
	Center   core.Vec3
	Radius   float64
	Material material.Material
}

// NewSphere creates a new sphere
func NewSphere(center core.Vec3, radius float64, material material.Material) *Sphere {
	return &Sphere{
		Center:   center,
		Radius:   radius,
		Material: material,
	}
}

// Hit tests if a ray intersects with the sphere
func (s *Sphere) Hit(ray core.Ray, tMin, tMax float64) (material.HitRecord, bool) {
	// Vector from sphere center to ray origin
	oc := ray.Origin.Subtract(s.Center)

	// Quadratic equation coefficients: at² + 2·halfB·t + c = 0
	a := ray.Direction.LengthSquared()
	halfB := oc.Dot(ray.Direction)
	c := oc.LengthSquared() - s.Radius*s.Radius

	// A tangent ray (zero discriminant) counts as a miss
	discriminant := halfB*halfB - a*c
	if discriminant <= 0 {
		return material.HitRecord{}, false
	}

	sqrtD := math.Sqrt(discriminant)

	// Roots in ascending order; the first one inside the open interval wins
	for _, root := range [2]float64{(-halfB - sqrtD) / a, (-halfB + sqrtD) / a} {
		if root <= tMin || root >= tMax {
			continue
		}

		hit := material.HitRecord{
			T:        root,
			Point:    ray.At(root),
			Material: s.Material,
		}
		outwardNormal := hit.Point.Subtract(s.Center).Divide(s.Radius)
		hit.SetFaceNormal(ray, outwardNormal)
		return hit, true
	}

	return material.HitRecord{}, false
}

func (*Sphere) shape() {}
