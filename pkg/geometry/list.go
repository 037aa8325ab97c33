package geometry

import (
	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/material"
)

// List is an aggregate of shapes hit as one
type List struct {
	Children []Shape
}

// NewList creates a list containing the given shapes
func NewList(children ...Shape) *List {
	return &List{Children: children}
}

// Add appends a shape to the list
func (l *List) Add(child Shape) {
	l.Children = append(l.Children, child)
}

// Hit queries every child over the full interval and keeps the hit with the
// smallest t. On equal t the earlier child wins.
func (l *List) Hit(ray core.Ray, tMin, tMax float64) (material.HitRecord, bool) {
	var closest material.HitRecord
	hitAnything := false

	for _, child := range l.Children {
		hit, isHit := child.Hit(ray, tMin, tMax)
		if !isHit {
			continue
		}
		if !hitAnything || hit.T < closest.T {
			closest = hit
			hitAnything = true
		}
	}

	return closest, hitAnything
}

func (*List) shape() {}
