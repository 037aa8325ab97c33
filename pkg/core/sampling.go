package core

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Sampler provides random sampling for rendering algorithms
// Can be swapped out for deterministic testing or different sampling patterns
type Sampler interface {
	Get1D() float64
	Get3D() Vec3
}

// RandomSampler wraps a standard Go random generator.
// It is not safe for concurrent use; every worker owns its own.
type RandomSampler struct {
	random *rand.Rand
}

// NewRandomSampler creates a sampler from a Go random generator
func NewRandomSampler(random *rand.Rand) *RandomSampler {
	return &RandomSampler{random: random}
}

// NewSeededSampler creates a sampler with its own generator seeded with seed
func NewSeededSampler(seed int64) *RandomSampler {
	return NewRandomSampler(rand.New(rand.NewSource(seed)))
}

// Get1D returns a random float64 in [0, 1)
func (r *RandomSampler) Get1D() float64 {
	return r.random.Float64()
}

// Get3D returns three random float64 values in [0, 1)
func (r *RandomSampler) Get3D() Vec3 {
	return NewVec3(r.random.Float64(), r.random.Float64(), r.random.Float64())
}

// RandomUnitVector returns a direction uniformly distributed on the unit sphere.
// It draws an azimuth in [0, 2π) and a height in [-1, 1).
func RandomUnitVector(sampler Sampler) Vec3 {
	angle := 2.0 * math.Pi * sampler.Get1D()
	height := 2.0*sampler.Get1D() - 1.0
	radius := math.Sqrt(1.0 - height*height)
	return NewVec3(radius*math.Cos(angle), radius*math.Sin(angle), height)
}

// RandomInUnitSphere generates a random point inside the unit sphere by rejection
func RandomInUnitSphere(sampler Sampler) Vec3 {
	for {
		// Generate random point in [-1,1)³ cube
		p := sampler.Get3D().Multiply(2).Subtract(One())
		if p.LengthSquared() <= 1.0 {
			return p
		}
	}
}

// Reflect calculates the reflection of v off a surface with unit normal n
func Reflect(v, n Vec3) Vec3 {
	// r = v - 2*dot(v,n)*n
	return v.Subtract(n.Multiply(2 * v.Dot(n)))
}

// DegreesToRadians converts an angle in degrees to radians
func DegreesToRadians(degrees float64) float64 {
	return mgl64.DegToRad(degrees)
}
