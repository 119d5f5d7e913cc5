package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jichen-jay/esp32-sound/internal/catalog"
	"github.com/jichen-jay/esp32-sound/internal/config"
	"github.com/jichen-jay/esp32-sound/internal/metrics"
	"github.com/jichen-jay/esp32-sound/internal/recorder"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = metrics.NewMetrics()

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Root: "/tmp/recordings", CreateMissing: true},
		Capture: config.CaptureConfig{
			SampleRate:      16000,
			BitDepth:        16,
			Channels:        1,
			DurationSeconds: 10,
			BlockSamples:    16384,
			ReadTimeoutMs:   1000,
			OutputFile:      "record.wav",
		},
		Playback: config.PlaybackConfig{
			Mode:               config.ModePatterns,
			Repeats:            10,
			TransmitBlockBytes: 1024,
		},
		Driver:  config.DriverConfig{Backend: config.BackendSim},
		Catalog: config.CatalogConfig{Enabled: false},
		Monitor: config.MonitorConfig{Enabled: true, Address: "127.0.0.1", Port: 8090},
		Logging: config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

func newTestServer(t *testing.T, cat *catalog.Catalog) (*HTTPServer, *recorder.Tracker) {
	t.Helper()

	tracker := recorder.NewTracker()
	hub := NewEventHub(testMetrics, testLogger())
	srv := NewHTTPServer(config.MonitorConfig{Enabled: true, Address: "127.0.0.1", Port: 8090},
		testLogger(), testConfig(), tracker, cat, hub, testMetrics)
	return srv, tracker
}

func doRequest(srv *HTTPServer, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, tracker := newTestServer(t, nil)
	tracker.Start("clip.wav", 320000)

	rec := doRequest(srv, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var body struct {
		Status     string `json:"status"`
		Components struct {
			Capture struct {
				Active  bool   `json:"active"`
				Started uint64 `json:"started"`
			} `json:"capture"`
			Catalog struct {
				Enabled bool `json:"enabled"`
			} `json:"catalog"`
			Events struct {
				Clients int `json:"clients"`
			} `json:"events"`
		} `json:"components"`
	}
	decodeBody(t, rec, &body)

	if body.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", body.Status)
	}
	if !body.Components.Capture.Active {
		t.Error("Expected an active capture after Start")
	}
	if body.Components.Capture.Started != 1 {
		t.Errorf("Expected 1 started capture, got %d", body.Components.Capture.Started)
	}
	if body.Components.Catalog.Enabled {
		t.Error("Expected catalog to report disabled")
	}
	if body.Components.Events.Clients != 0 {
		t.Errorf("Expected 0 event clients, got %d", body.Components.Events.Clients)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, tracker := newTestServer(t, nil)
	tracker.Start("clip.wav", 320000)
	tracker.Update(recorder.Progress{Seconds: 2, Bytes: 64000, TargetBytes: 320000})

	rec := doRequest(srv, http.MethodGet, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var snapshot recorder.Snapshot
	decodeBody(t, rec, &snapshot)

	if !snapshot.Active {
		t.Error("Expected an active snapshot")
	}
	if snapshot.FileName != "clip.wav" {
		t.Errorf("Expected file name 'clip.wav', got '%s'", snapshot.FileName)
	}
	if snapshot.Seconds != 2 || snapshot.Bytes != 64000 {
		t.Errorf("Expected 2s/64000 bytes, got %ds/%d bytes", snapshot.Seconds, snapshot.Bytes)
	}
}

func TestRecordingsWithCatalogDisabled(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/recordings")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var body struct {
		Enabled    bool             `json:"enabled"`
		Total      int              `json:"total"`
		Recordings []catalog.Record `json:"recordings"`
	}
	decodeBody(t, rec, &body)

	if body.Enabled {
		t.Error("Expected enabled=false with no catalog")
	}
	if body.Total != 0 || len(body.Recordings) != 0 {
		t.Errorf("Expected empty listing, got total=%d len=%d", body.Total, len(body.Recordings))
	}

	detail := doRequest(srv, http.MethodGet, "/recordings/123")
	if detail.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 with no catalog, got %d", detail.Code)
	}
}

func TestRecordingsListAndDetail(t *testing.T) {
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog"), testLogger())
	if err != nil {
		t.Fatalf("Failed to open catalog: %v", err)
	}
	defer cat.Close()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ids := make([]string, 3)
	for i := range ids {
		ids[i] = catalog.NewID(base.Add(time.Duration(i) * time.Minute))
		record := catalog.Record{
			ID:            ids[i],
			FileName:      "record.wav",
			SampleRate:    16000,
			BitsPerSample: 16,
			Channels:      1,
			Bytes:         320000,
			Seconds:       10,
			Completed:     true,
			StartedAt:     base.Add(time.Duration(i) * time.Minute),
			FinishedAt:    base.Add(time.Duration(i)*time.Minute + 10*time.Second),
		}
		if err := cat.Put(record); err != nil {
			t.Fatalf("Failed to store record: %v", err)
		}
	}

	srv, _ := newTestServer(t, cat)

	rec := doRequest(srv, http.MethodGet, "/recordings")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var body struct {
		Enabled    bool             `json:"enabled"`
		Total      int              `json:"total"`
		Recordings []catalog.Record `json:"recordings"`
	}
	decodeBody(t, rec, &body)

	if !body.Enabled {
		t.Error("Expected enabled=true")
	}
	if body.Total != 3 {
		t.Fatalf("Expected 3 recordings, got %d", body.Total)
	}
	if body.Recordings[0].ID != ids[2] {
		t.Errorf("Expected newest record first, got '%s'", body.Recordings[0].ID)
	}

	limited := doRequest(srv, http.MethodGet, "/recordings?limit=2")
	decodeBody(t, limited, &body)
	if body.Total != 2 {
		t.Errorf("Expected 2 recordings with limit=2, got %d", body.Total)
	}

	if bad := doRequest(srv, http.MethodGet, "/recordings?limit=soon"); bad.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a bad limit, got %d", bad.Code)
	}

	detail := doRequest(srv, http.MethodGet, "/recordings/"+ids[0])
	if detail.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", detail.Code)
	}
	var record catalog.Record
	decodeBody(t, detail, &record)
	if record.ID != ids[0] {
		t.Errorf("Expected record '%s', got '%s'", ids[0], record.ID)
	}

	if missing := doRequest(srv, http.MethodGet, "/recordings/00000000000000000000"); missing.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for an unknown id, got %d", missing.Code)
	}

	if empty := doRequest(srv, http.MethodGet, "/recordings/"); empty.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an empty id, got %d", empty.Code)
	}
}

func TestConfigEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var body struct {
		Storage struct {
			Root string `json:"root"`
		} `json:"storage"`
		Capture struct {
			SampleRate int `json:"sample_rate"`
		} `json:"capture"`
		Driver struct {
			Backend string `json:"backend"`
		} `json:"driver"`
	}
	decodeBody(t, rec, &body)

	if body.Storage.Root != "/tmp/recordings" {
		t.Errorf("Expected storage root '/tmp/recordings', got '%s'", body.Storage.Root)
	}
	if body.Capture.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", body.Capture.SampleRate)
	}
	if body.Driver.Backend != config.BackendSim {
		t.Errorf("Expected backend '%s', got '%s'", config.BackendSim, body.Driver.Backend)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, tracker := newTestServer(t, nil)
	tracker.Start("clip.wav", 320000)
	tracker.Finish(recorder.Result{Bytes: 320000, Seconds: 10, Completed: true}, nil)

	rec := doRequest(srv, http.MethodGet, "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var body struct {
		Capture recorder.Stats    `json:"capture"`
		Current recorder.Snapshot `json:"current"`
	}
	decodeBody(t, rec, &body)

	if body.Capture.Completed != 1 {
		t.Errorf("Expected 1 completed capture, got %d", body.Capture.Completed)
	}
	if body.Capture.Bytes != 320000 {
		t.Errorf("Expected 320000 bytes captured, got %d", body.Capture.Bytes)
	}
	if body.Current.Active {
		t.Error("Expected no active capture after Finish")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	endpoints := []string{"/health", "/status", "/recordings", "/config", "/stats", "/"}
	for _, endpoint := range endpoints {
		if rec := doRequest(srv, http.MethodPost, endpoint); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405 for POST %s, got %d", endpoint, rec.Code)
		}
	}
}

func TestRootEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var body struct {
		Service   string            `json:"service"`
		Endpoints map[string]string `json:"endpoints"`
	}
	decodeBody(t, rec, &body)

	if body.Service == "" {
		t.Error("Expected a service name")
	}
	if len(body.Endpoints) == 0 {
		t.Error("Expected endpoint documentation")
	}

	if missing := doRequest(srv, http.MethodGet, "/nowhere"); missing.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for an unknown path, got %d", missing.Code)
	}
}

func TestEventHubReplayAndBroadcast(t *testing.T) {
	hub := NewEventHub(testMetrics, testLogger())
	hub.Broadcast(recorder.Progress{Seconds: 1, Bytes: 32000, TargetBytes: 320000})

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	// The most recent event is replayed to new clients.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read replayed event: %v", err)
	}
	var progress recorder.Progress
	if err := json.Unmarshal(data, &progress); err != nil {
		t.Fatalf("Failed to decode replayed event: %v", err)
	}
	if progress.Seconds != 1 || progress.Bytes != 32000 {
		t.Errorf("Expected replay of 1s/32000 bytes, got %ds/%d bytes", progress.Seconds, progress.Bytes)
	}

	if hub.Clients() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.Clients())
	}

	hub.Broadcast(recorder.Progress{Seconds: 2, Bytes: 64000, TargetBytes: 320000})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read broadcast event: %v", err)
	}
	if err := json.Unmarshal(data, &progress); err != nil {
		t.Fatalf("Failed to decode broadcast event: %v", err)
	}
	if progress.Seconds != 2 {
		t.Errorf("Expected the second event, got %ds", progress.Seconds)
	}

	hub.Close()
	if hub.Clients() != 0 {
		t.Errorf("Expected 0 clients after close, got %d", hub.Clients())
	}
}
