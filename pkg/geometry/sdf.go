package geometry

import (
	"math"

	"github.com/df07/go-sdf-pathtracer/pkg/core"
)

// SignedDistanceField gives a lower bound on the distance from a point to the
// nearest surface (negative inside) and an estimate of the surface normal.
// The set of fields is closed: SphereField and SierpinskiTetrasphere.
type SignedDistanceField interface {
	Distance(point core.Vec3) float64
	Normal(point core.Vec3) core.Vec3

	field()
}

// SphereField is the exact distance field of a sphere
type SphereField struct {
	Center core.Vec3
	Radius float64
}

// NewSphereField creates a sphere distance field
func NewSphereField(center core.Vec3, radius float64) *SphereField {
	return &SphereField{Center: center, Radius: radius}
}

// Distance returns |p - center| - radius
func (s *SphereField) Distance(point core.Vec3) float64 {
	return point.Subtract(s.Center).Length() - s.Radius
}

// Normal returns the outward unit normal through point
func (s *SphereField) Normal(point core.Vec3) core.Vec3 {
	return point.Subtract(s.Center).Normalize()
}

func (*SphereField) field() {}

// sierpinskiBound is the radius subtracted from the folded point
const sierpinskiBound = 0.9

// SierpinskiTetrasphere is a Sierpinski tetrahedron built by folding space
// across the tetrahedron's symmetry planes and rescaling
type SierpinskiTetrasphere struct {
	Center     core.Vec3
	Iterations int
}

// NewSierpinskiTetrasphere creates a Sierpinski tetrahedron distance field
func NewSierpinskiTetrasphere(center core.Vec3, iterations int) *SierpinskiTetrasphere {
	return &SierpinskiTetrasphere{Center: center, Iterations: iterations}
}

// Distance folds the point Iterations times and rescales the final distance
// by 2^-Iterations so the estimate stays a lower bound
func (s *SierpinskiTetrasphere) Distance(point core.Vec3) float64 {
	v := point.Subtract(s.Center)
	offset := core.One()

	for n := 0; n < s.Iterations; n++ {
		if v.X+v.Y < 0 {
			v = core.NewVec3(-v.Y, -v.X, v.Z)
		}
		if v.X+v.Z < 0 {
			v = core.NewVec3(-v.Z, v.Y, -v.X)
		}
		if v.Y+v.Z < 0 {
			v = core.NewVec3(v.X, -v.Z, -v.Y)
		}
		v = v.Multiply(2).Subtract(offset)
	}

	return (v.Length() - sierpinskiBound) * math.Pow(2, -float64(s.Iterations))
}

// Normal is a constant +Z placeholder. It is not a surface normal and must
// not drive specular reflection; FiniteDifferenceNormal gives a real estimate.
func (s *SierpinskiTetrasphere) Normal(point core.Vec3) core.Vec3 {
	return core.ZAxis()
}

func (*SierpinskiTetrasphere) field() {}

// FiniteDifferenceNormal estimates the field gradient at point with central
// differences of step h and returns it normalized
func FiniteDifferenceNormal(field SignedDistanceField, point core.Vec3, h float64) core.Vec3 {
	dx := core.NewVec3(h, 0, 0)
	dy := core.NewVec3(0, h, 0)
	dz := core.NewVec3(0, 0, h)

	gradient := core.NewVec3(
		field.Distance(point.Add(dx))-field.Distance(point.Subtract(dx)),
		field.Distance(point.Add(dy))-field.Distance(point.Subtract(dy)),
		field.Distance(point.Add(dz))-field.Distance(point.Subtract(dz)),
	)
	return gradient.Normalize()
}
