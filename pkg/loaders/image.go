package loaders

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrUnsupportedFormat is returned for image formats WriteImage cannot encode
var ErrUnsupportedFormat = errors.New("unsupported image format")

// SupportedFormats lists the formats accepted by WriteImage
var SupportedFormats = []string{"png", "jpeg", "bmp", "tiff"}

// ImageData contains loaded image data as Vec3 color array
type ImageData struct {
	Width  int
	Height int
	Pixels []core.Vec3
}

// LoadImage loads a PNG, JPEG, BMP or TIFF image and converts it to a Vec3 color array
func LoadImage(filename string) (*ImageData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	// Decoders are registered by the encoder imports
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return NewImageData(img), nil
}

// NewImageData converts a decoded image to a Vec3 color array
func NewImageData(img image.Image) *ImageData {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	pixels := make([]core.Vec3, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			// RGBA returns uint32 in [0, 65535], convert to [0, 1]
			pixels[y*width+x] = core.NewVec3(
				float64(r)/65535.0,
				float64(g)/65535.0,
				float64(b)/65535.0,
			)
		}
	}

	return &ImageData{
		Width:  width,
		Height: height,
		Pixels: pixels,
	}
}

// IsLossless reports whether format decodes back to exactly the encoded pixels
func IsLossless(format string) bool {
	normalized, err := NormalizeFormat(format)
	return err == nil && normalized != "jpeg"
}

// NormalizeFormat maps a format name or file extension onto a supported format
func NormalizeFormat(format string) (string, error) {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "png":
		return "png", nil
	case "jpg", "jpeg":
		return "jpeg", nil
	case "bmp":
		return "bmp", nil
	case "tif", "tiff":
		return "tiff", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// ContentType returns the MIME type of a supported format
func ContentType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	default:
		return "image/png"
	}
}

// WriteImage encodes img to w in the given format
func WriteImage(w io.Writer, img image.Image, format string) error {
	normalized, err := NormalizeFormat(format)
	if err != nil {
		return err
	}

	switch normalized {
	case "png":
		err = png.Encode(w, img)
	case "jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case "bmp":
		err = bmp.Encode(w, img)
	case "tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", normalized, err)
	}
	return nil
}

// SaveImage writes img to filename, choosing the format from its extension
func SaveImage(filename string, img image.Image) error {
	format, err := NormalizeFormat(filepath.Ext(filename))
	if err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	if err := WriteImage(file, img, format); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Downscale resizes img to width x height with bilinear filtering.
// Rendering at a multiple of the target size and downscaling acts as extra antialiasing.
func Downscale(img image.Image, width, height int) image.Image {
	if width <= 0 || height <= 0 {
		return img
	}
	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}
