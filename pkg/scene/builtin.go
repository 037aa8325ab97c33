package scene

import (
	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/geometry"
	"github.com/df07/go-sdf-pathtracer/pkg/material"
)

// groundSphere is the large sphere every built-in scene stands on
func groundSphere(m material.Material) *geometry.Sphere {
	return geometry.NewSphere(core.NewVec3(0, -100.5, -1), 100, m)
}

// NewThreeSpheresScene creates a diffuse sphere between two metal spheres
func NewThreeSpheresScene() *Scene {
	world := geometry.NewList(
		groundSphere(material.NewLambertian(core.NewVec3(0.1, 0.8, 0.4))),
		geometry.NewSphere(core.ZAxis().Negate(), 0.5, material.NewLambertian(core.NewVec3(0.5, 0.4, 0.7))),
		geometry.NewSphere(core.NewVec3(1, 0, -1), 0.5, material.NewMetal(core.NewVec3(0.8, 0.6, 0.2), 0.7)),
		geometry.NewSphere(core.NewVec3(-1, 0, -1), 0.5, material.NewMetal(core.NewVec3(0.8, 0.8, 0.8), 0.2)),
	)
	return newBuiltinScene("three-spheres", world)
}

// NewSpherionScene creates the sphere creature: a body, metal arms and eyes,
// and a dark lens with a white pupil
func NewSpherionScene() *Scene {
	chrome := material.NewMetal(core.NewVec3(0.8, 0.8, 0.8), 0.05)
	green := material.NewMetal(core.NewVec3(0.5, 0.9, 0.5), 0.01)

	world := geometry.NewList(
		groundSphere(material.NewLambertian(core.NewVec3(0.1, 0.8, 0.4))),
		geometry.NewSphere(core.NewVec3(0, -0.1, -1), 0.4, material.NewLambertian(core.NewVec3(0.5, 0.4, 0.7))),
		geometry.NewSphere(core.NewVec3(0.5, 0.15, -1), 0.2, chrome),
		geometry.NewSphere(core.NewVec3(-0.5, 0.15, -1), 0.2, chrome),
		geometry.NewSphere(core.NewVec3(0.125, 0.05, -0.75), 0.15, green),
		geometry.NewSphere(core.NewVec3(-0.125, 0.05, -0.75), 0.15, green),
		geometry.NewSphere(core.NewVec3(0, -0.05, -0.7), 0.1, material.NewLambertian(core.NewVec3(0.8, 0.2, 0.2))),
		geometry.NewSphere(core.NewVec3(0, 0.45, 0.75), 0.5, material.NewMetal(core.NewVec3(0.2, 0.2, 0.2), 0.01)),
		geometry.NewSphere(core.NewVec3(0, 0.45, 0.335), 0.175, material.NewLambertian(core.NewVec3(0.95, 0.95, 0.95))),
	)
	return newBuiltinScene("spherion", world)
}

// NewFirstFractalScene creates a raymarched sphere field on the ground
func NewFirstFractalScene() *Scene {
	world := geometry.NewList(
		groundSphere(material.NewLambertian(core.NewVec3(0.1, 0.8, 0.4))),
		geometry.NewRaymarcher(
			geometry.NewSphereField(core.NewVec3(0, -0.1, -1), 0.4),
			100, 0.005,
			material.NewLambertian(core.NewVec3(0.5, 0.4, 0.7)),
		),
	)
	return newBuiltinScene("first-fractal", world)
}

// NewSpherionMeetsFractaliusScene places the sphere creature behind a
// Sierpinski tetrasphere wrapped in a glossy shell
func NewSpherionMeetsFractaliusScene() *Scene {
	fractalCenter := core.NewVec3(0, 0.52, 0.75)
	chrome := material.NewMetal(core.NewVec3(0.8, 0.8, 0.8), 0.05)
	green := material.NewMetal(core.NewVec3(0.5, 0.9, 0.5), 0.01)

	world := geometry.NewList(
		groundSphere(material.NewMetal(core.NewVec3(0.1, 0.8, 0.4), 0.2)),

		geometry.NewRaymarcher(
			geometry.NewSierpinskiTetrasphere(fractalCenter, 8),
			100, 0.000005,
			material.NewLambertian(core.NewVec3(0.5, 0.4, 0.7)),
		),
		geometry.NewSphere(fractalCenter, 0.4, material.NewMetal(core.NewVec3(0.9, 0.2, 0.8), 0.01)),

		geometry.NewSphere(core.NewVec3(0, -0.1, -2), 0.4, material.NewLambertian(core.NewVec3(0.5, 0.4, 0.7))),
		geometry.NewSphere(core.NewVec3(0.5, 0.15, -2), 0.2, chrome),
		geometry.NewSphere(core.NewVec3(-0.5, 0.15, -2), 0.2, chrome),
		geometry.NewSphere(core.NewVec3(0.125, 0.05, -1.75), 0.15, green),
		geometry.NewSphere(core.NewVec3(-0.125, 0.05, -1.75), 0.15, green),
		geometry.NewSphere(core.NewVec3(0, -0.05, -1.7), 0.1, material.NewLambertian(core.NewVec3(0.8, 0.2, 0.2))),

		geometry.NewSphere(core.NewVec3(0, 0.52, 0.435), 0.175, material.NewLambertian(core.NewVec3(0.95, 0.95, 0.95))),
	)
	return newBuiltinScene("spherion-meets-fractalius", world)
}
