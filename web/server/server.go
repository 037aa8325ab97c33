package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/loaders"
	"github.com/df07/go-sdf-pathtracer/pkg/publish"
	"github.com/df07/go-sdf-pathtracer/pkg/renderer"
	"github.com/df07/go-sdf-pathtracer/pkg/scene"
)

const defaultScene = "spherion-meets-fractalius"

// Request limits shared by parsing and /api/scene-config
const (
	minDimension = 1
	maxDimension = 2000
	maxSamples   = 10000
	maxDepth     = 50
)

// Config holds the web server settings
type Config struct {
	Port      int
	ScenesDir string // Directory of JSON scene descriptions
	StaticDir string // Served at "/" when non-empty
	Publisher *publish.S3Publisher
	Logger    core.Logger // Server-side messages; defaults to the standard log
}

// Server handles web requests for the path tracer
type Server struct {
	port      int
	scenesDir string
	staticDir string
	publisher *publish.S3Publisher
	logger    core.Logger
}

// NewServer creates a new web server
func NewServer(config Config) *Server {
	if config.Logger == nil {
		config.Logger = core.NewStdLogger(log.Writer(), "")
	}
	return &Server{
		port:      config.Port,
		scenesDir: config.ScenesDir,
		staticDir: config.StaticDir,
		publisher: config.Publisher,
		logger:    config.Logger,
	}
}

// Handler returns the routes served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}

	// API endpoints
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/scene-config", s.handleSceneConfig)
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/render/stream", s.handleRenderStream)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Starting web server on http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists the built-in scenes and the scene files on disk
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	response, err := scene.ListAllScenes(s.scenesDir, s.logger)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	sceneName := r.URL.Query().Get("scene")
	if sceneName == "" {
		sceneName = defaultScene
	}

	sceneObj, err := s.createScene(sceneName, s.logger)
	if err != nil {
		writeError(w, sceneErrorStatus(err), err.Error())
		return
	}

	// Return the scene's sampling configuration with validation limits
	config := sceneObj.Sampling
	response := map[string]interface{}{
		"scene": sceneName,
		"defaults": map[string]interface{}{
			"width":           config.Width,
			"height":          config.Height,
			"samplesPerPixel": config.SamplesPerPixel,
			"maxDepth":        config.MaxDepth,
			"seed":            config.Seed,
		},
		"limits": map[string]interface{}{
			"width":           map[string]int{"min": minDimension, "max": maxDimension},
			"height":          map[string]int{"min": minDimension, "max": maxDimension},
			"samplesPerPixel": map[string]int{"min": 1, "max": maxSamples},
			"maxDepth":        map[string]int{"min": 1, "max": maxDepth},
		},
		"formats": loaders.SupportedFormats,
	}
	writeJSON(w, http.StatusOK, response)
}

// createScene resolves a built-in scene name or a "file:<name>" scene ID.
// File scenes are looked up by listing the scenes directory, so request
// values never become paths.
func (s *Server) createScene(sceneName string, logger core.Logger) (*scene.Scene, error) {
	if !strings.HasPrefix(sceneName, "file:") {
		return scene.NewSceneByName(sceneName)
	}

	files, err := scene.ListSceneFiles(s.scenesDir, logger)
	if err != nil {
		return nil, err
	}
	for _, info := range files {
		if info.ID == sceneName {
			return loaders.LoadScene(info.FilePath)
		}
	}
	return nil, fmt.Errorf("%w: %q", scene.ErrUnknownScene, sceneName)
}

// sceneErrorStatus maps scene loading errors onto HTTP status codes
func sceneErrorStatus(err error) int {
	switch {
	case errors.Is(err, scene.ErrUnknownScene):
		return http.StatusNotFound
	case errors.Is(err, loaders.ErrInvalidScene), errors.Is(err, renderer.ErrInvalidSamplingConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseOptionalInt64Param parses an unbounded 64-bit integer parameter; nil when absent
func parseOptionalInt64Param(values url.Values, key string) (*int64, error) {
	value := values.Get(key)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %s", key, value)
	}
	return &parsed, nil
}

// parseBoolParam parses a boolean parameter from URL query
func parseBoolParam(values url.Values, key string) (bool, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid %s: %s", key, value)
		}
		return parsed, nil
	}
	return false, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
