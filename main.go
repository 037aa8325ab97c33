package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/loaders"
	"github.com/df07/go-sdf-pathtracer/pkg/publish"
	"github.com/df07/go-sdf-pathtracer/pkg/renderer"
	"github.com/df07/go-sdf-pathtracer/pkg/scene"
)

// config holds the merged environment and flag settings
type config struct {
	Scene       string
	OutputDir   string
	Format      string
	Width       int
	Height      int
	Samples     int
	Depth       int
	Seed        int64
	SeedSet     bool
	Workers     int
	Supersample int
	Upload      bool
	Help        bool
	S3          publish.S3Config
}

// getEnv returns the environment value for key, or fallback when unset
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

// loadConfig reads .env, then the environment, then flags; later sources win
func loadConfig(args []string, output io.Writer) (config, error) {
	_ = godotenv.Load(getEnv("RAYTRACE_ENV_FILE", ".env"))

	cfg := config{
		S3: publish.S3Config{
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    os.Getenv("S3_REGION"),
			Bucket:    os.Getenv("S3_BUCKET"),
			Prefix:    os.Getenv("S3_PREFIX"),
			ACL:       os.Getenv("S3_ACL"),
		},
	}

	fs := flag.NewFlagSet("raytracer", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.Scene, "scene", getEnv("RAYTRACE_SCENE", "spherion-meets-fractalius"), "Built-in scene name or path to a JSON scene file")
	fs.StringVar(&cfg.OutputDir, "output", getEnv("RAYTRACE_OUTPUT_DIR", "output"), "Directory renders are written under")
	fs.StringVar(&cfg.Format, "format", getEnv("RAYTRACE_FORMAT", "png"), "Image format: png, jpeg, bmp or tiff")
	fs.IntVar(&cfg.Width, "width", 0, "Image width (0 = scene default)")
	fs.IntVar(&cfg.Height, "height", 0, "Image height (0 = derived from width and the camera aspect)")
	fs.IntVar(&cfg.Samples, "spp", 0, "Samples per pixel (0 = scene default)")
	fs.IntVar(&cfg.Depth, "depth", 0, "Maximum bounces (0 = scene default)")
	fs.Int64Var(&cfg.Seed, "seed", 0, "Base random seed (default: the scene's seed; 0 is a valid seed)")
	fs.IntVar(&cfg.Workers, "workers", getEnvInt("RAYTRACE_WORKERS", 0), "Number of parallel workers (0 = auto-detect CPU count)")
	fs.IntVar(&cfg.Supersample, "supersample", 1, "Render at this multiple of the size and downscale the result")
	fs.BoolVar(&cfg.Upload, "upload", getEnv("RAYTRACE_UPLOAD", "") == "true", "Upload the render to the configured S3 bucket")
	fs.BoolVar(&cfg.Help, "help", false, "Show help information")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.SeedSet = true
		}
	})

	if cfg.Help {
		fmt.Fprintln(output, "SDF Path Tracer")
		fmt.Fprintln(output, "Usage: raytracer [options]")
		fmt.Fprintln(output)
		fmt.Fprintln(output, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(output)
		fmt.Fprintln(output, "Available scenes:")
		for _, info := range scene.ListScenes() {
			fmt.Fprintf(output, "  %-27s %s\n", info.ID, info.Description)
		}
		fmt.Fprintln(output, "  <file>.json                 JSON scene description")
		fmt.Fprintln(output)
		fmt.Fprintln(output, "Output will be saved to <output>/<scene>/render_<timestamp>.<format>")
		return cfg, nil
	}

	if cfg.Supersample < 1 {
		return cfg, fmt.Errorf("supersample must be at least 1, got %d", cfg.Supersample)
	}
	format, err := loaders.NormalizeFormat(cfg.Format)
	if err != nil {
		return cfg, err
	}
	cfg.Format = format

	return cfg, nil
}

// createScene resolves a built-in scene name or a JSON scene file
func createScene(name string) (*scene.Scene, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty scene name", scene.ErrUnknownScene)
	}
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		s, err := loaders.LoadScene(name)
		if err != nil {
			return nil, err
		}
		if s.Name == "custom" {
			s.Name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		}
		return s, nil
	}
	return scene.NewSceneByName(name)
}

// fileExtension returns the extension written for format
func fileExtension(format string) string {
	if format == "jpeg" {
		return ".jpg"
	}
	return "." + format
}

// errCorruptOutput is returned when a written render does not read back as rendered
var errCorruptOutput = errors.New("saved image does not match the render")

// verifySavedImage reads filename back and compares it with the rendered image.
// Lossy formats are only checked for size.
func verifySavedImage(filename string, rendered image.Image, format string) error {
	saved, err := loaders.LoadImage(filename)
	if err != nil {
		return fmt.Errorf("error verifying saved image: %w", err)
	}

	want := loaders.NewImageData(rendered)
	if saved.Width != want.Width || saved.Height != want.Height {
		return fmt.Errorf("%w: %s is %dx%d, rendered %dx%d", errCorruptOutput,
			filename, saved.Width, saved.Height, want.Width, want.Height)
	}
	if !loaders.IsLossless(format) {
		return nil
	}
	for i, c := range want.Pixels {
		if saved.Pixels[i] != c {
			return fmt.Errorf("%w: %s differs at pixel (%d,%d)", errCorruptOutput,
				filename, i%want.Width, i/want.Width)
		}
	}
	return nil
}

// run renders the configured scene and returns the written file path
func run(ctx context.Context, cfg config, logger core.Logger) (string, error) {
	selectedScene, err := createScene(cfg.Scene)
	if err != nil {
		return "", err
	}
	logger.Printf("Using scene %s\n", selectedScene.Name)

	selectedScene.ApplySampling(renderer.SamplingConfig{
		Width:           cfg.Width,
		Height:          cfg.Height,
		SamplesPerPixel: cfg.Samples,
		MaxDepth:        cfg.Depth,
	})
	if cfg.SeedSet {
		selectedScene.Sampling.Seed = cfg.Seed
	}
	targetWidth, targetHeight := selectedScene.Sampling.Width, selectedScene.Sampling.Height
	if cfg.Supersample > 1 {
		selectedScene.Sampling.Width *= cfg.Supersample
		selectedScene.Sampling.Height *= cfg.Supersample
	}

	renderConfig := renderer.DefaultRenderConfig()
	renderConfig.NumWorkers = cfg.Workers

	r, err := selectedScene.NewRenderer(renderConfig, logger)
	if err != nil {
		return "", err
	}
	pixels, stats, err := r.Render(ctx)
	if err != nil {
		return "", fmt.Errorf("render failed: %w", err)
	}
	logger.Printf("Samples per pixel: %.1f over %d pixels\n", stats.AverageSamples(), stats.TotalPixels)

	var img image.Image = renderer.ToImage(pixels)
	img = loaders.Downscale(img, targetWidth, targetHeight)

	outputDir := filepath.Join(cfg.OutputDir, selectedScene.Name)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, "render_"+timestamp+fileExtension(cfg.Format))

	var buf bytes.Buffer
	if err := loaders.WriteImage(&buf, img, cfg.Format); err != nil {
		return "", err
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("error saving image: %w", err)
	}
	if err := verifySavedImage(filename, img, cfg.Format); err != nil {
		return filename, err
	}
	logger.Printf("Render saved as %s\n", filename)

	if cfg.Upload {
		publisher, err := publish.NewS3Publisher(cfg.S3, logger)
		if err != nil {
			return filename, err
		}
		key := selectedScene.Name + "/" + filepath.Base(filename)
		if err := publisher.Upload(ctx, key, buf.Bytes(), loaders.ContentType(cfg.Format)); err != nil {
			return filename, err
		}
	}

	return filename, nil
}

func main() {
	cfg, err := loadConfig(os.Args[1:], os.Stdout)
	if errors.Is(err, flag.ErrHelp) || cfg.Help {
		return
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("Starting SDF Path Tracer...")
	if _, err := run(ctx, cfg, core.NewStdLogger(os.Stdout, "")); err != nil {
		fmt.Printf("Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
