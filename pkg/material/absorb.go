package material

import (
	"github.com/df07/go-sdf-pathtracer/pkg/core"
)

// Absorb is an opaque material that absorbs every incoming ray
type Absorb struct{}

// NewAbsorb creates a new absorbing material
func NewAbsorb() *Absorb {
	return &Absorb{}
}

// Scatter never scatters
func (*Absorb) Scatter(core.Ray, HitRecord, core.Sampler) (ScatterResult, bool) {
	return ScatterResult{}, false
}

func (*Absorb) material() {}
