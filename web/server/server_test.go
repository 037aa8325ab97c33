package server

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/df07/go-sdf-pathtracer/pkg/publish"
	"github.com/df07/go-sdf-pathtracer/pkg/scene"
)

const closeupScene = `{
  "name": "closeup",
  "description": "A single sphere",
  "camera": {"lookFrom": [0, 0, 2], "lookAt": [0, 0, -1], "up": [0, 1, 0], "vfov": 30},
  "sampling": {"width": 12, "height": 6, "samplesPerPixel": 2, "maxDepth": 2},
  "world": [
    {"type": "sphere", "center": [0, 0, -1], "radius": 0.5, "material": {"type": "lambertian", "albedo": [0.5, 0.5, 0.5]}}
  ]
}`

// fakeS3 records uploaded keys
type fakeS3 struct {
	s3iface.S3API
	keys []string
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	f.keys = append(f.keys, aws.StringValue(input.Key))
	return &s3.PutObjectOutput{}, nil
}

func newTestServer(t *testing.T, publisher *publish.S3Publisher) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "closeup.json"), []byte(closeupScene), 0644); err != nil {
		t.Fatalf("Failed to write scene file: %v", err)
	}
	s := NewServer(Config{ScenesDir: dir, Publisher: publisher})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := get(t, ts.URL+"/api/health")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", body["status"])
	}
}

func TestHandleScenes(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := get(t, ts.URL+"/api/scenes")

	var body scene.ScenesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}

	ids := map[string]bool{}
	for _, group := range body.Groups {
		for _, info := range group.Scenes {
			ids[info.ID] = true
		}
	}
	for _, id := range []string{"three-spheres", "spherion", "first-fractal", "spherion-meets-fractalius", "file:closeup"} {
		if !ids[id] {
			t.Errorf("Expected scene %q in listing, got %v", id, ids)
		}
	}
}

func TestHandleSceneConfig(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := get(t, ts.URL+"/api/scene-config")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Scene    string         `json:"scene"`
		Defaults map[string]int `json:"defaults"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Scene != defaultScene {
		t.Errorf("Expected default scene %q, got %q", defaultScene, body.Scene)
	}
	if body.Defaults["width"] != 100 || body.Defaults["height"] != 56 || body.Defaults["samplesPerPixel"] != 100 || body.Defaults["maxDepth"] != 5 {
		t.Errorf("Unexpected defaults: %v", body.Defaults)
	}

	if resp := get(t, ts.URL+"/api/scene-config?scene=teapot"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Unknown scene: expected 404, got %d", resp.StatusCode)
	}
}

func TestHandleRender(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name        string
		query       string
		contentType string
		width       int
		height      int
	}{
		{"PNG", "scene=three-spheres&width=8&height=4&spp=2&depth=2", "image/png", 8, 4},
		{"JPEG", "scene=first-fractal&width=8&height=4&spp=1&depth=2&format=jpg", "image/jpeg", 8, 4},
		{"BMP", "scene=spherion&width=6&height=6&spp=1&depth=2&format=bmp", "image/bmp", 6, 6},
		{"TIFF", "scene=three-spheres&width=5&height=3&spp=1&depth=2&format=tiff", "image/tiff", 5, 3},
		{"Width keeps aspect", "scene=three-spheres&width=32&spp=1&depth=2", "image/png", 32, 18},
		{"File scene defaults", "scene=file:closeup", "image/png", 12, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, ts.URL+"/api/render?"+tt.query)
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
			}
			if ct := resp.Header.Get("Content-Type"); ct != tt.contentType {
				t.Errorf("Expected content type %q, got %q", tt.contentType, ct)
			}

			img, _, err := image.Decode(resp.Body)
			if err != nil {
				t.Fatalf("Failed to decode image: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.width || b.Dy() != tt.height {
				t.Errorf("Expected %dx%d image, got %dx%d", tt.width, tt.height, b.Dx(), b.Dy())
			}
		})
	}
}

func TestHandleRender_IsDeterministic(t *testing.T) {
	ts := newTestServer(t, nil)
	url := ts.URL + "/api/render?scene=spherion&width=8&height=4&spp=2&depth=3&seed=11"

	first, err := io.ReadAll(get(t, url).Body)
	if err != nil {
		t.Fatalf("Failed to read first render: %v", err)
	}
	second, err := io.ReadAll(get(t, url).Body)
	if err != nil {
		t.Fatalf("Failed to read second render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("Expected identical encodings for the same seed")
	}
}

func TestHandleRender_SeedZeroIsHonored(t *testing.T) {
	ts := newTestServer(t, nil)
	base := ts.URL + "/api/render?scene=spherion&width=16&height=8&spp=1&depth=5"

	read := func(url string) []byte {
		data, err := io.ReadAll(get(t, url).Body)
		if err != nil {
			t.Fatalf("Failed to read render: %v", err)
		}
		return data
	}
	sceneSeed := read(base)
	seedOne := read(base + "&seed=1")
	seedZero := read(base + "&seed=0")

	if !bytes.Equal(sceneSeed, seedOne) {
		t.Error("Expected an omitted seed to use the scene's seed of 1")
	}
	if bytes.Equal(sceneSeed, seedZero) {
		t.Error("Expected seed=0 to change the render")
	}
}

func TestHandleRender_Errors(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"Zero width", "width=0", http.StatusBadRequest},
		{"Width too large", "width=5000", http.StatusBadRequest},
		{"Non-numeric samples", "spp=lots", http.StatusBadRequest},
		{"Depth too large", "depth=999", http.StatusBadRequest},
		{"Bad seed", "seed=1.5", http.StatusBadRequest},
		{"Unsupported format", "format=gif", http.StatusBadRequest},
		{"Bad upload flag", "upload=maybe", http.StatusBadRequest},
		{"Unknown scene", "scene=teapot", http.StatusNotFound},
		{"Unknown file scene", "scene=file:missing", http.StatusNotFound},
		{"Upload without S3", "scene=three-spheres&width=2&height=2&spp=1&upload=true", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, ts.URL+"/api/render?"+tt.query)
			if resp.StatusCode != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode error body: %v", err)
			}
			if body["error"] == "" {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestHandleRender_Upload(t *testing.T) {
	client := &fakeS3{}
	publisher := publish.NewS3PublisherWithClient(client, publish.S3Config{Bucket: "renders", Region: "us-east-1", Prefix: "sdf"}, nil)
	ts := newTestServer(t, publisher)

	resp := get(t, ts.URL+"/api/render?scene=three-spheres&width=4&height=2&spp=1&depth=2&upload=true")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if len(client.keys) != 1 {
		t.Fatalf("Expected one upload, got %d", len(client.keys))
	}

	key := resp.Header.Get("X-Upload-Key")
	if key != client.keys[0] {
		t.Errorf("Expected header key %q to match uploaded key %q", key, client.keys[0])
	}
	if !strings.HasPrefix(key, "sdf/web/three-spheres_") || !strings.HasSuffix(key, ".png") {
		t.Errorf("Unexpected upload key %q", key)
	}
}

// readSSEEvents parses an event stream into (type, data) pairs
func readSSEEvents(t *testing.T, r io.Reader) []SSEEvent {
	t.Helper()
	var events []SSEEvent
	var current SSEEvent
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.Data = strings.TrimPrefix(line, "data: ")
		case line == "" && current.Type != "":
			events = append(events, current)
			current = SSEEvent{}
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("Failed to read event stream: %v", err)
	}
	return events
}

func TestHandleRenderStream(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := get(t, ts.URL+"/api/render/stream?scene=three-spheres&width=8&height=4&spp=2&depth=2")

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %q", ct)
	}

	events := readSSEEvents(t, resp.Body)
	if len(events) < 2 {
		t.Fatalf("Expected console and complete events, got %v", events)
	}
	if events[0].Type != "console" {
		t.Errorf("Expected the first event to be console output, got %q", events[0].Type)
	}

	last := events[len(events)-1]
	if last.Type != "complete" {
		t.Fatalf("Expected a final complete event, got %q: %s", last.Type, last.Data)
	}

	var complete CompleteEvent
	if err := json.Unmarshal([]byte(last.Data), &complete); err != nil {
		t.Fatalf("Failed to decode complete event: %v", err)
	}
	if complete.Stats.TotalPixels != 32 || complete.Stats.TotalSamples != 64 {
		t.Errorf("Unexpected stats: %+v", complete.Stats)
	}

	data, err := base64.StdEncoding.DecodeString(complete.ImageData)
	if err != nil {
		t.Fatalf("Failed to decode image data: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("Expected 8x4 image, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestHandleRenderStream_InvalidRequest(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := get(t, ts.URL+"/api/render/stream?width=-3")

	events := readSSEEvents(t, resp.Body)
	if len(events) != 1 || events[0].Type != "error" {
		t.Fatalf("Expected a single error event, got %v", events)
	}
	if !strings.Contains(events[0].Data, "width") {
		t.Errorf("Expected the error to name the parameter, got %q", events[0].Data)
	}
}

func TestParseOptionalInt64Param(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    *int64
		wantErr bool
	}{
		{"Absent", "", nil, false},
		{"Zero", "0", int64Ptr(0), false},
		{"Negative", "-7", int64Ptr(-7), false},
		{"Not a number", "abc", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string][]string{}
			if tt.value != "" {
				values["seed"] = []string{tt.value}
			}
			got, err := parseOptionalInt64Param(values, "seed")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int
		wantErr bool
	}{
		{"Missing uses default", "", 7, false},
		{"In range", "12", 12, false},
		{"At minimum", "1", 1, false},
		{"At maximum", "20", 20, false},
		{"Below minimum", "0", 0, true},
		{"Above maximum", "21", 0, true},
		{"Not a number", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string][]string{}
			if tt.value != "" {
				values["n"] = []string{tt.value}
			}
			got, err := parseIntParam(values, "n", 7, 1, 20)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

// recordingLogger keeps every formatted line
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestHandleScenes_LogsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write scene file: %v", err)
	}
	logger := &recordingLogger{}
	ts := httptest.NewServer(NewServer(Config{ScenesDir: dir, Logger: logger}).Handler())
	defer ts.Close()

	if resp := get(t, ts.URL+"/api/scenes"); resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.lines) != 1 || !strings.Contains(logger.lines[0], "broken.json") {
		t.Errorf("Expected one warning naming broken.json, got %q", logger.lines)
	}
}

func TestHandleRenderStream_ForwardsSceneWarnings(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "closeup.json"), []byte(closeupScene), 0644); err != nil {
		t.Fatalf("Failed to write scene file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write scene file: %v", err)
	}
	ts := httptest.NewServer(NewServer(Config{ScenesDir: dir, Logger: &recordingLogger{}}).Handler())
	defer ts.Close()

	events := readSSEEvents(t, get(t, ts.URL+"/api/render/stream?scene=file:closeup&width=4&height=2&spp=1&depth=1").Body)

	var warned bool
	for _, event := range events {
		if event.Type == "console" && strings.Contains(event.Data, "broken.json") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("Expected a console warning about broken.json, got %v", events)
	}
	if events[len(events)-1].Type != "complete" {
		t.Errorf("Expected the render to complete, got %q", events[len(events)-1].Type)
	}
}
