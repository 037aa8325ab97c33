package renderer

import (
	"image"
	"image/color"
	"math"

	"github.com/df07/go-sdf-pathtracer/pkg/core"
)

// Quantize maps a gamma-corrected channel value onto 0..255; NaN maps to 0
func Quantize(c float64) uint8 {
	if math.IsNaN(c) {
		return 0
	}
	return uint8(math.Floor(256 * max(0.0, min(0.999, c))))
}

// ToColor converts a gamma-corrected pixel to an opaque 8-bit color
func ToColor(c core.Vec3) color.RGBA {
	return color.RGBA{
		R: Quantize(c.X),
		G: Quantize(c.Y),
		B: Quantize(c.Z),
		A: 255,
	}
}

// ToImage converts a rendered pixel array (row 0 at the top) to an RGBA image
func ToImage(pixels [][]core.Vec3) *image.RGBA {
	height := len(pixels)
	width := 0
	if height > 0 {
		width = len(pixels[0])
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y, row := range pixels {
		for x, c := range row {
			img.SetRGBA(x, y, ToColor(c))
		}
	}
	return img
}
