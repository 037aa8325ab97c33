package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/df07/go-sdf-pathtracer/pkg/core"
	"github.com/df07/go-sdf-pathtracer/pkg/loaders"
	"github.com/df07/go-sdf-pathtracer/pkg/renderer"
)

// RenderRequest represents a render request parsed from query parameters
type RenderRequest struct {
	Scene           string // Built-in name or "file:<name>"
	Width           int    // 0 keeps the scene's width
	Height          int    // 0 follows the width and aspect ratio
	SamplesPerPixel int    // 0 keeps the scene's value
	MaxDepth        int    // 0 keeps the scene's value
	Seed            *int64 // nil keeps the scene's value
	Format          string // Output encoding
	Upload          bool   // Also publish to S3
}

// RenderResult is an encoded render ready to send
type RenderResult struct {
	Scene       string
	Format      string
	Data        []byte
	Width       int
	Height      int
	Stats       renderer.RenderStats
	UploadedKey string
}

// Stats represents render statistics
type Stats struct {
	TotalPixels    int     `json:"totalPixels"`
	TotalSamples   int64   `json:"totalSamples"`
	AverageSamples float64 `json:"averageSamples"`
	Rows           int     `json:"rows"`
	DurationMs     int64   `json:"durationMs"`
}

// CompleteEvent is the final SSE event of a streamed render
type CompleteEvent struct {
	ImageData   string `json:"imageData"` // Base64 encoded image
	Format      string `json:"format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Stats       Stats  `json:"stats"`
	UploadedKey string `json:"uploadedKey,omitempty"`
	ElapsedMs   int64  `json:"elapsedMs"`
}

// SSEEvent represents a server-sent event
type SSEEvent struct {
	Type string `json:"type"` // "console", "error", "complete"
	Data string `json:"data"` // JSON-encoded data or a plain message
}

// errUploadUnavailable is returned when an upload is requested without S3 settings
var errUploadUnavailable = errors.New("upload requested but S3 publishing is not configured")

// handleRender renders a scene and responds with the encoded image
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRenderRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	logger := core.NewStdLogger(log.Writer(), "[render] ")
	result, err := s.renderScene(r.Context(), req, logger)
	if err != nil {
		if r.Context().Err() != nil {
			// Client disconnected
			return
		}
		writeError(w, renderErrorStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", loaders.ContentType(result.Format))
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Header().Set("X-Render-Time-Ms", strconv.FormatInt(result.Stats.Duration.Milliseconds(), 10))
	w.Header().Set("X-Samples-Per-Pixel", strconv.Itoa(req.SamplesPerPixel))
	if result.UploadedKey != "" {
		w.Header().Set("X-Upload-Key", result.UploadedKey)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		log.Printf("Error writing render response: %v", err)
	}
}

// handleRenderStream renders a scene while streaming console progress via SSE.
// The handler goroutine is the only writer to w.
func (s *Server) handleRenderStream(w http.ResponseWriter, r *http.Request) {
	s.setSSEHeaders(w)
	ctx := r.Context()

	req, err := s.parseRenderRequest(r)
	if err != nil {
		s.sendSSEEvent(w, SSEEvent{Type: "error", Data: fmt.Sprintf("Invalid request: %v", err)})
		return
	}

	consoleChan, webLogger := s.setupConsoleLogging()

	type outcome struct {
		result *RenderResult
		err    error
	}
	done := make(chan outcome, 1)
	startTime := time.Now()
	go func() {
		result, err := s.renderScene(ctx, req, webLogger)
		done <- outcome{result: result, err: err}
	}()

	for {
		select {
		case msg := <-consoleChan:
			s.sendConsoleMessage(w, msg)

		case out := <-done:
			s.drainConsole(w, consoleChan)
			if out.err != nil {
				s.sendSSEEvent(w, SSEEvent{Type: "error", Data: out.err.Error()})
				return
			}
			s.sendComplete(w, out.result, startTime)
			return

		case <-ctx.Done():
			// Client disconnected; the render observes the same context
			return
		}
	}
}

// parseRenderRequest parses request parameters
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	query := r.URL.Query()
	req := &RenderRequest{Scene: query.Get("scene")}
	if req.Scene == "" {
		req.Scene = defaultScene
	}

	var err error
	if req.Width, err = parseIntParam(query, "width", 0, minDimension, maxDimension); err != nil {
		return nil, err
	}
	if req.Height, err = parseIntParam(query, "height", 0, minDimension, maxDimension); err != nil {
		return nil, err
	}
	if req.SamplesPerPixel, err = parseIntParam(query, "spp", 0, 1, maxSamples); err != nil {
		return nil, err
	}
	if req.MaxDepth, err = parseIntParam(query, "depth", 0, 1, maxDepth); err != nil {
		return nil, err
	}
	if req.Seed, err = parseOptionalInt64Param(query, "seed"); err != nil {
		return nil, err
	}
	if req.Upload, err = parseBoolParam(query, "upload"); err != nil {
		return nil, err
	}

	format := query.Get("format")
	if format == "" {
		format = "png"
	}
	if req.Format, err = loaders.NormalizeFormat(format); err != nil {
		return nil, err
	}

	// Performance warning
	if req.Width*req.Height > 800*600 && req.SamplesPerPixel > 100 {
		log.Printf("Render warning: Large image with high samples may render slowly")
	}

	return req, nil
}

// renderScene resolves, renders and encodes the requested scene
func (s *Server) renderScene(ctx context.Context, req *RenderRequest, logger core.Logger) (*RenderResult, error) {
	if req.Upload && s.publisher == nil {
		return nil, errUploadUnavailable
	}

	sceneObj, err := s.createScene(req.Scene, logger)
	if err != nil {
		return nil, err
	}
	sceneObj.ApplySampling(renderer.SamplingConfig{
		Width:           req.Width,
		Height:          req.Height,
		SamplesPerPixel: req.SamplesPerPixel,
		MaxDepth:        req.MaxDepth,
	})
	if req.Seed != nil {
		sceneObj.Sampling.Seed = *req.Seed
	}
	req.SamplesPerPixel = sceneObj.Sampling.SamplesPerPixel

	rt, err := sceneObj.NewRenderer(renderer.DefaultRenderConfig(), logger)
	if err != nil {
		return nil, err
	}
	pixels, stats, err := rt.Render(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := loaders.WriteImage(&buf, renderer.ToImage(pixels), req.Format); err != nil {
		return nil, err
	}

	result := &RenderResult{
		Scene:  sceneObj.Name,
		Format: req.Format,
		Data:   buf.Bytes(),
		Width:  sceneObj.Sampling.Width,
		Height: sceneObj.Sampling.Height,
		Stats:  stats,
	}

	if req.Upload {
		key := path.Join("web", fmt.Sprintf("%s_%s.%s",
			sceneObj.Name, time.Now().Format("20060102_150405"), req.Format))
		if err := s.publisher.Upload(ctx, key, result.Data, loaders.ContentType(req.Format)); err != nil {
			return nil, err
		}
		result.UploadedKey = s.publisher.ObjectKey(key)
	}

	return result, nil
}

// renderErrorStatus maps render pipeline errors onto HTTP status codes
func renderErrorStatus(err error) int {
	if errors.Is(err, errUploadUnavailable) {
		return http.StatusServiceUnavailable
	}
	return sceneErrorStatus(err)
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// setupConsoleLogging creates console channel and web logger for a render
func (s *Server) setupConsoleLogging() (chan ConsoleMessage, core.Logger) {
	consoleChan := make(chan ConsoleMessage, 50)
	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	webLogger := NewWebLogger(renderID, consoleChan)
	return consoleChan, webLogger
}

// drainConsole forwards console messages still buffered after the render finished
func (s *Server) drainConsole(w http.ResponseWriter, consoleChan chan ConsoleMessage) {
	for {
		select {
		case msg := <-consoleChan:
			s.sendConsoleMessage(w, msg)
		default:
			return
		}
	}
}

func (s *Server) sendConsoleMessage(w http.ResponseWriter, msg ConsoleMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling console message: %v", err)
		return
	}
	s.sendSSEEvent(w, SSEEvent{Type: "console", Data: string(data)})
}

func (s *Server) sendComplete(w http.ResponseWriter, result *RenderResult, startTime time.Time) {
	event := CompleteEvent{
		ImageData: base64.StdEncoding.EncodeToString(result.Data),
		Format:    result.Format,
		Width:     result.Width,
		Height:    result.Height,
		Stats: Stats{
			TotalPixels:    result.Stats.TotalPixels,
			TotalSamples:   int64(result.Stats.TotalSamples),
			AverageSamples: result.Stats.AverageSamples(),
			Rows:           result.Stats.Rows,
			DurationMs:     result.Stats.Duration.Milliseconds(),
		},
		UploadedKey: result.UploadedKey,
		ElapsedMs:   time.Since(startTime).Milliseconds(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.sendSSEEvent(w, SSEEvent{Type: "error", Data: fmt.Sprintf("failed to encode result: %v", err)})
		return
	}
	s.sendSSEEvent(w, SSEEvent{Type: "complete", Data: string(data)})
}

// sendSSEEvent writes a single event and flushes it to the client
func (s *Server) sendSSEEvent(w http.ResponseWriter, event SSEEvent) {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
		// Client disconnected during write
		return
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
