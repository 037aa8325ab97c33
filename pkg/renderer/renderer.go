package renderer

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/geometry"
	"github.com/df07/go-sdf-pathtracer/pkg/integrator"
)

// RenderConfig controls how a render is split across workers
type RenderConfig struct {
	BandHeight    int // Rows per task
	NumWorkers    int // Number of parallel workers (0 = use CPU count)
	ProgressEvery int // Log progress each time this many rows complete (0 = never)
}

// DefaultRenderConfig returns sensible default values
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		BandHeight:    4,
		NumWorkers:    0,
		ProgressEvery: 20,
	}
}

// Band is a horizontal strip of the image rendered as one task
type Band struct {
	ID     int
	Bounds image.Rectangle
}

// NewBandGrid splits a width x height image into bands of at most bandHeight rows
func NewBandGrid(width, height, bandHeight int) []*Band {
	if bandHeight <= 0 {
		bandHeight = 1
	}

	var bands []*Band
	for y0 := 0; y0 < height; y0 += bandHeight {
		y1 := min(y0+bandHeight, height)
		bands = append(bands, &Band{
			ID:     len(bands),
			Bounds: image.Rect(0, y0, width, y1),
		})
	}
	return bands
}

// Renderer renders a whole image in parallel
type Renderer struct {
	raytracer *Raytracer
	sampling  SamplingConfig
	config    RenderConfig
	bands     []*Band
	logger    core.Logger
}

// NewRenderer validates the sampling configuration and prepares the band grid
func NewRenderer(world geometry.Shape, camera *geometry.Camera, integ integrator.Integrator, sampling SamplingConfig, config RenderConfig, logger core.Logger) (*Renderer, error) {
	if err := sampling.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = core.NopLogger{}
	}

	return &Renderer{
		raytracer: NewRaytracer(world, camera, integ, sampling),
		sampling:  sampling,
		config:    config,
		bands:     NewBandGrid(sampling.Width, sampling.Height, config.BandHeight),
		logger:    logger,
	}, nil
}

// Render traces every pixel and returns the gamma-corrected image, row 0 at the top.
// The output is identical for any worker count or band height.
func (r *Renderer) Render(ctx context.Context) ([][]core.Vec3, RenderStats, error) {
	startTime := time.Now()

	pixels := make([][]core.Vec3, r.sampling.Height)
	for y := range pixels {
		pixels[y] = make([]core.Vec3, r.sampling.Width)
	}

	workerPool := NewWorkerPool(r.raytracer, len(r.bands), r.config.NumWorkers)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	r.logger.Printf("Rendering %dx%d at %d samples/pixel, depth %d (using %d workers)...\n",
		r.sampling.Width, r.sampling.Height, r.sampling.SamplesPerPixel, r.sampling.MaxDepth, workerPool.GetNumWorkers())

	for taskID, band := range r.bands {
		workerPool.SubmitTask(BandTask{
			Band:   band,
			TaskID: taskID,
			Pixels: pixels,
		})
	}

	// Barrier: every band reports before the image is returned
	var stats RenderStats
	nextReport := r.config.ProgressEvery
	for i := 0; i < len(r.bands); i++ {
		result, ok := workerPool.GetResult()
		if !ok {
			return nil, RenderStats{}, fmt.Errorf("worker pool closed unexpectedly")
		}
		if result.Error != nil {
			r.logger.Printf("Rendering cancelled after %d of %d rows\n", stats.Rows, r.sampling.Height)
			return nil, RenderStats{}, result.Error
		}

		stats.Add(result.Stats)
		if r.config.ProgressEvery > 0 && stats.Rows >= nextReport && stats.Rows < r.sampling.Height {
			r.logger.Printf("Scanlines remaining: %d\n", r.sampling.Height-stats.Rows)
			for nextReport <= stats.Rows {
				nextReport += r.config.ProgressEvery
			}
		}
	}

	stats.Duration = time.Since(startTime)
	r.logger.Printf("Render completed in %v (%d samples)\n", stats.Duration, stats.TotalSamples)

	return pixels, stats, nil
}
