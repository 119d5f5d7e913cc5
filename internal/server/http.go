package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jichen-jay/esp32-sound/internal/catalog"
	"github.com/jichen-jay/esp32-sound/internal/config"
	"github.com/jichen-jay/esp32-sound/internal/metrics"
	"github.com/jichen-jay/esp32-sound/internal/recorder"
)

// HTTPServer provides HTTP API endpoints for monitoring the capture flow
type HTTPServer struct {
	server  *http.Server
	logger  *slog.Logger
	config  *config.Config
	tracker *recorder.Tracker
	catalog *catalog.Catalog // nil when the catalog is disabled
	hub     *EventHub
	metrics *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new monitor API server
func NewHTTPServer(cfg config.MonitorConfig, logger *slog.Logger,
	appConfig *config.Config, tracker *recorder.Tracker, cat *catalog.Catalog,
	hub *EventHub, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		tracker:   tracker,
		catalog:   cat,
		hub:       hub,
		metrics:   m,
		startTime: time.Now(),
	}

	// Create HTTP server with routes
	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Capture monitoring endpoints
	mux.HandleFunc("/status", h.withMetrics("/status", h.handleStatus))
	mux.HandleFunc("/recordings", h.withMetrics("/recordings", h.handleRecordings))
	mux.HandleFunc("/recordings/", h.withMetrics("/recordings/{id}", h.handleRecordingDetail))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Progress event feed (websocket upgrade, so no wrapper here either)
	mux.Handle("/events", h.hub)

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call the original handler
		handler(ww, r)

		// Record metrics
		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		// Record error if status code indicates an error
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting monitor API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping monitor API server...")

	h.hub.Close()
	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	current := h.tracker.Current()
	stats := h.tracker.Stats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "esp32-sound",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"capture": map[string]interface{}{
				"active":    current.Active,
				"started":   stats.Started,
				"completed": stats.Completed,
				"failed":    stats.Failed,
			},
			"catalog": map[string]interface{}{
				"enabled": h.catalog != nil,
			},
			"events": map[string]interface{}{
				"clients": h.hub.Clients(),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStatus implements the /status endpoint
func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.tracker.Current())
}

// handleRecordings implements the /recordings endpoint
func (h *HTTPServer) handleRecordings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"enabled":    h.catalog != nil,
		"timestamp":  time.Now().UTC(),
		"total":      0,
		"recordings": []catalog.Record{},
	}

	if h.catalog != nil {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				http.Error(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		records, err := h.catalog.List(limit)
		if err != nil {
			h.logger.Error("failed to list recordings", slog.String("error", err.Error()))
			http.Error(w, "Failed to list recordings", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []catalog.Record{}
		}
		response["total"] = len(records)
		response["recordings"] = records
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleRecordingDetail implements the /recordings/{id} endpoint
func (h *HTTPServer) handleRecordingDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Extract recording ID from URL path
	id := r.URL.Path[len("/recordings/"):]
	if id == "" {
		http.Error(w, "Recording ID required", http.StatusBadRequest)
		return
	}

	if h.catalog == nil {
		http.Error(w, "Catalog disabled", http.StatusNotFound)
		return
	}

	record, err := h.catalog.Get(id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			http.Error(w, "Recording not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load recording", slog.String("error", err.Error()))
		http.Error(w, "Failed to load recording", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return a curated view of the configuration
	sanitizedConfig := map[string]interface{}{
		"storage": map[string]interface{}{
			"root":           h.config.Storage.Root,
			"create_missing": h.config.Storage.CreateMissing,
			"probe_write":    h.config.Storage.ProbeWrite,
			"min_free_mb":    h.config.Storage.MinFreeMB,
		},
		"capture": map[string]interface{}{
			"sample_rate":      h.config.Capture.SampleRate,
			"bit_depth":        h.config.Capture.BitDepth,
			"channels":         h.config.Capture.Channels,
			"duration_seconds": h.config.Capture.DurationSeconds,
			"block_samples":    h.config.Capture.BlockSamples,
			"read_timeout_ms":  h.config.Capture.ReadTimeoutMs,
			"output_file":      h.config.Capture.OutputFile,
			"analyze":          h.config.Capture.Analyze,
		},
		"playback": map[string]interface{}{
			"mode":                 h.config.Playback.Mode,
			"sample_rate":          h.config.Playback.EffectiveSampleRate(),
			"repeats":              h.config.Playback.Repeats,
			"transmit_block_bytes": h.config.Playback.TransmitBlockBytes,
		},
		"driver": map[string]interface{}{
			"backend": h.config.Driver.Backend,
			"device":  h.config.Driver.Device,
		},
		"catalog": map[string]interface{}{
			"enabled": h.config.Catalog.Enabled,
			"path":    h.config.Catalog.Path,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"capture":   h.tracker.Stats(),
		"current":   h.tracker.Current(),
		"events": map[string]interface{}{
			"clients": h.hub.Clients(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Sound Capture Monitor",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":                "API documentation",
			"GET /health":          "Service health check",
			"GET /status":          "Current capture state",
			"GET /recordings":      "List cataloged recordings (newest first, ?limit=N)",
			"GET /recordings/{id}": "Get one cataloged recording",
			"GET /config":          "Get service configuration",
			"GET /stats":           "Get capture statistics",
			"GET /metrics":         "Prometheus metrics",
			"GET /events":          "Capture progress event feed (websocket)",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
