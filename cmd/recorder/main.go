package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/jichen-jay/esp32-sound/internal/audio"
	"github.com/jichen-jay/esp32-sound/internal/catalog"
	"github.com/jichen-jay/esp32-sound/internal/config"
	"github.com/jichen-jay/esp32-sound/internal/driver"
	"github.com/jichen-jay/esp32-sound/internal/logging"
	"github.com/jichen-jay/esp32-sound/internal/metrics"
	"github.com/jichen-jay/esp32-sound/internal/recorder"
	"github.com/jichen-jay/esp32-sound/internal/server"
	"github.com/jichen-jay/esp32-sound/internal/storage"
)

const (
	defaultConfigPath = "configs/recorder.yaml"
	serviceName       = "esp32-sound-recorder"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	listDevices := flag.Bool("list-devices", false, "List audio devices and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Environment overrides, loaded from .env when present
	_ = godotenv.Load()
	if v := os.Getenv("SOUND_BACKEND"); v != "" {
		cfg.Driver.Backend = v
	}
	if v := os.Getenv("SOUND_DEVICE"); v != "" {
		cfg.Driver.Device = v
	}
	if err := cfg.Driver.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid driver configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := logging.New(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	if *listDevices {
		backend, closeBackend, err := openBackend(cfg.Driver, logger)
		if err != nil {
			logger.Error("Failed to open audio backend", slog.String("error", err.Error()))
			os.Exit(1)
		}
		playback, capture, err := backend.Devices()
		if err != nil {
			closeBackend()
			logger.Error("Failed to list audio devices", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println("Playback devices:")
		for _, name := range playback {
			fmt.Printf("  %s\n", name)
		}
		fmt.Println("Capture devices:")
		for _, name := range capture {
			fmt.Printf("  %s\n", name)
		}
		closeBackend()
		return
	}

	format := audio.Format{
		SampleRate:    cfg.Capture.SampleRate,
		BitsPerSample: cfg.Capture.BitDepth,
		Channels:      cfg.Capture.Channels,
	}
	targetBytes := format.BytesForDuration(cfg.Capture.DurationSeconds)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.String("storage_root", cfg.Storage.Root),
		slog.String("format", format.String()),
		slog.Int("duration_seconds", cfg.Capture.DurationSeconds),
		slog.Uint64("target_bytes", uint64(targetBytes)),
		slog.Int("block_samples", cfg.Capture.BlockSamples),
		slog.String("output_file", cfg.Capture.OutputFile),
		slog.String("backend", cfg.Driver.Backend),
		slog.Bool("catalog_enabled", cfg.Catalog.Enabled),
		slog.Bool("monitor_enabled", cfg.Monitor.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	// Open the recording catalog (if enabled)
	var cat *catalog.Catalog
	if cfg.Catalog.Enabled {
		cat, err = catalog.Open(cfg.Catalog.Path, logger)
		if err != nil {
			logger.Error("Failed to open recording catalog", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Capture state shared with the monitor API
	tracker := recorder.NewTracker()
	var hub *server.EventHub

	// Initialize and start the monitor HTTP server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.Monitor.Enabled {
		hub = server.NewEventHub(appMetrics, logger)
		httpServer = server.NewHTTPServer(cfg.Monitor, logger, cfg, tracker, cat, hub, appMetrics)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start monitor API server", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Monitor API server started",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.Monitor.Address, cfg.Monitor.Port)),
		)
	}

	// Streaming loop configuration is validated before any hardware opens
	rec, err := recorder.New(recorder.Config{
		BlockSamples:               cfg.Capture.BlockSamples,
		ReadTimeout:                cfg.Capture.GetReadTimeout(),
		MaxConsecutiveReadFailures: cfg.Capture.MaxConsecutiveReadFailures,
		Analyze:                    cfg.Capture.Analyze,
		OnProgress: func(p recorder.Progress) {
			tracker.Update(p)
			if hub != nil {
				hub.Broadcast(p)
			}
		},
	}, appMetrics, logger)
	if err != nil {
		logger.Error("Invalid capture configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Acquire resources in order: storage, then driver, then the channel,
	// then the destination file. Each failure releases what came before it.
	mount, err := storage.NewMount(cfg.Storage, logger)
	if err != nil {
		logger.Error("Failed to mount recording storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	backend, closeBackend, err := openBackend(cfg.Driver, logger)
	if err != nil {
		mount.Unmount()
		logger.Error("Failed to open audio backend", slog.String("error", err.Error()))
		os.Exit(1)
	}

	input, err := backend.OpenInput(driver.ChannelConfig{
		Format: format,
		Pins:   pinAssignment(cfg.Capture.Pins),
		Device: cfg.Driver.Device,
	})
	if err != nil {
		closeBackend()
		mount.Unmount()
		logger.Error("Failed to open capture channel",
			slog.String("pins", pinAssignment(cfg.Capture.Pins).String()),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	session, err := recorder.NewSession(recorder.SessionConfig{
		Mount:              mount,
		Input:              input,
		Format:             format,
		FileName:           cfg.Capture.OutputFile,
		TargetBytes:        targetBytes,
		Overwrite:          cfg.Capture.OverwriteExisting,
		PatchHeaderOnAbort: cfg.Capture.PatchHeaderOnAbort,
		Logger:             logger,
	})
	if err != nil {
		input.Close()
		closeBackend()
		mount.Unmount()
		logger.Error("Failed to open capture session", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Run the capture
	tracker.Start(cfg.Capture.OutputFile, uint64(targetBytes))
	result, captureErr := rec.Record(session)
	tracker.Finish(result, captureErr)
	if captureErr != nil {
		logger.Error("Capture failed", slog.String("error", captureErr.Error()))
	}

	// Record remaining storage space before the session unmounts it
	if _, free, err := mount.Usage(); err == nil {
		appMetrics.SetStorageFreeBytes(free)
	}

	closeErr := session.Close()
	closeBackend()

	// Catalog the outcome, successful or not
	if cat != nil {
		if err := catalogResult(cat, cfg.Capture.Analyze, session, result, captureErr); err != nil {
			logger.Error("Failed to catalog recording", slog.String("error", err.Error()))
		}
	}

	stats := tracker.Stats()
	logger.Info("Final capture statistics",
		slog.Uint64("started", stats.Started),
		slog.Uint64("completed", stats.Completed),
		slog.Uint64("failed", stats.Failed),
		slog.Uint64("bytes", stats.Bytes),
	)

	// Stop the monitor server before the catalog it reads from
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping monitor API server", slog.String("error", err.Error()))
		}
	}

	if cat != nil {
		if err := cat.Close(); err != nil {
			logger.Error("Failed to close recording catalog", slog.String("error", err.Error()))
		}
	}

	logger.Info("Service stopped")
	if captureErr != nil || closeErr != nil {
		os.Exit(1)
	}
}

// openBackend constructs the configured audio backend and a release func.
func openBackend(cfg config.DriverConfig, logger *slog.Logger) (driver.Backend, func() error, error) {
	switch cfg.Backend {
	case config.BackendMalgo:
		backend, err := driver.NewMalgoBackend(logger)
		if err != nil {
			return nil, nil, err
		}
		return backend, backend.Close, nil
	default:
		backend := driver.NewSimBackend(driver.SimConfig{
			WiredPins: pinAssignment(cfg.SimWiredPins),
			ToneHz:    cfg.SimToneHz,
		})
		return backend, func() error { return nil }, nil
	}
}

// pinAssignment converts configured pin numbers into a driver assignment.
func pinAssignment(pins config.PinConfig) driver.PinAssignment {
	return driver.PinAssignment{
		Clock:      pins.Clock,
		WordSelect: pins.WordSelect,
		Data:       pins.Data,
	}
}

// catalogResult stores the capture outcome in the recording catalog.
func catalogResult(cat *catalog.Catalog, analyzed bool, session *recorder.Session, result recorder.Result, captureErr error) error {
	format := session.Format()
	record := catalog.Record{
		ID:            catalog.NewID(session.StartedAt()),
		FileName:      session.FileName(),
		Path:          session.Path(),
		SampleRate:    format.SampleRate,
		BitsPerSample: format.BitsPerSample,
		Channels:      format.Channels,
		Bytes:         result.Bytes,
		Seconds:       result.Seconds,
		Completed:     result.Completed,
		StartedAt:     session.StartedAt(),
		FinishedAt:    time.Now(),
	}
	if analyzed {
		record.Strength = result.Signal.Strength()
		record.AvgAmplitude = result.Signal.Average()
		record.Peak = result.Signal.Peak
		record.DominantHz = result.DominantHz
	}
	if captureErr != nil {
		record.Error = captureErr.Error()
	}
	return cat.Put(record)
}
