package renderer

import (
	"errors"
	"fmt"
)

// ErrInvalidSamplingConfig is returned by Validate for unusable settings
var ErrInvalidSamplingConfig = errors.New("invalid sampling config")

// SamplingConfig contains per-render sampling configuration
type SamplingConfig struct {
	Width           int   // Image width in pixels
	Height          int   // Image height in pixels
	SamplesPerPixel int   // Number of rays per pixel
	MaxDepth        int   // Maximum ray bounce depth
	Seed            int64 // Base seed; pixel (x, y) uses Seed + y*Width + x
}

// DefaultSamplingConfig returns the settings of the built-in scenes:
// 100 pixels wide at 16:9, 100 samples, 5 bounces
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Width:           100,
		Height:          56, // 100 / (16/9), truncated
		SamplesPerPixel: 100,
		MaxDepth:        5,
		Seed:            1,
	}
}

// Validate reports whether the configuration can be rendered
func (c SamplingConfig) Validate() error {
	switch {
	case c.Width <= 0:
		return fmt.Errorf("%w: width must be positive, got %d", ErrInvalidSamplingConfig, c.Width)
	case c.Height <= 0:
		return fmt.Errorf("%w: height must be positive, got %d", ErrInvalidSamplingConfig, c.Height)
	case c.SamplesPerPixel <= 0:
		return fmt.Errorf("%w: samples per pixel must be positive, got %d", ErrInvalidSamplingConfig, c.SamplesPerPixel)
	case c.MaxDepth <= 0:
		return fmt.Errorf("%w: max depth must be positive, got %d", ErrInvalidSamplingConfig, c.MaxDepth)
	}
	return nil
}

// Merge returns c with every non-zero field of override applied.
// A zero Seed keeps c.Seed; callers that need seed 0 assign Seed directly.
func (c SamplingConfig) Merge(override SamplingConfig) SamplingConfig {
	if override.Width != 0 {
		c.Width = override.Width
	}
	if override.Height != 0 {
		c.Height = override.Height
	}
	if override.SamplesPerPixel != 0 {
		c.SamplesPerPixel = override.SamplesPerPixel
	}
	if override.MaxDepth != 0 {
		c.MaxDepth = override.MaxDepth
	}
	if override.Seed != 0 {
		c.Seed = override.Seed
	}
	return c
}
