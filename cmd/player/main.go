package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jichen-jay/esp32-sound/internal/audio"
	"github.com/jichen-jay/esp32-sound/internal/config"
	"github.com/jichen-jay/esp32-sound/internal/driver"
	"github.com/jichen-jay/esp32-sound/internal/logging"
	"github.com/jichen-jay/esp32-sound/internal/metrics"
	"github.com/jichen-jay/esp32-sound/internal/player"
)

const (
	defaultConfigPath = "configs/player.yaml"
	serviceName       = "esp32-sound-player"
	serviceVersion    = "1.0.0"

	startupBlinks        = 5
	startupBlinkInterval = 150 * time.Millisecond
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
		SampleRate:    cfg.Playback.EffectiveSampleRate(),
		BitsPerSample: 16,
		Channels:      1,
	}

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.String("mode", cfg.Playback.Mode),
		slog.String("format", format.String()),
		slog.Int("repeats", cfg.Playback.Repeats),
		slog.Int("transmit_block_bytes", cfg.Playback.TransmitBlockBytes),
		slog.Int("candidates", len(cfg.Playback.Candidates)),
		slog.Int("enable_pin", cfg.Playback.EnablePin),
		slog.String("backend", cfg.Driver.Backend),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	// Status line, optional: playback works without it
	line := driver.EnableLine(driver.NopLine{})
	closeLine := func() error { return nil }
	if cfg.Playback.EnablePin >= 0 {
		sysfs, err := driver.OpenSysfsLine(cfg.Playback.EnablePin)
		if err != nil {
			logger.Warn("Status line unavailable, continuing without it",
				slog.Int("pin", cfg.Playback.EnablePin),
				slog.String("error", err.Error()),
			)
		} else {
			line = sysfs
			closeLine = sysfs.Close
		}
	}

	// The pattern player announces itself before any channel opens
	if cfg.Playback.Mode == config.ModePatterns {
		if err := driver.Blink(line, startupBlinks, startupBlinkInterval); err != nil {
			logger.Warn("Startup blink failed", slog.String("error", err.Error()))
		}
	}

	backend, closeBackend, err := openBackend(cfg.Driver, logger)
	if err != nil {
		closeLine()
		logger.Error("Failed to open audio backend", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Try each candidate pin assignment until one accepts writes
	candidates := make([]driver.PinAssignment, len(cfg.Playback.Candidates))
	for i, pins := range cfg.Playback.Candidates {
		candidates[i] = pinAssignment(pins)
	}

	trial := player.NewTrial(backend, player.TrialConfig{
		ProbeWrites:  cfg.Playback.ProbeWrites,
		WriteTimeout: cfg.Playback.GetWriteTimeout(),
	}, appMetrics, logger)

	out, pins, ok := trial.Run(format, cfg.Driver.Device, candidates)
	if !ok {
		closeBackend()
		closeLine()
		logger.Error("No candidate pin assignment produced a working output channel",
			slog.Int("candidates", len(candidates)),
		)
		os.Exit(1)
	}
	logger.Info("Output channel selected", slog.String("pins", pins.String()))

	emitter := player.NewEmitter(out, player.Config{
		Repeats:            cfg.Playback.Repeats,
		RepeatDelay:        cfg.Playback.GetRepeatDelay(),
		PatternPause:       cfg.Playback.GetPatternPause(),
		TransmitBlockBytes: cfg.Playback.TransmitBlockBytes,
		BlockDelay:         cfg.Playback.GetBlockDelay(),
		TransmissionPause:  cfg.Playback.GetTransmissionPause(),
		WriteTimeout:       cfg.Playback.GetWriteTimeout(),
		Status:             line,
	}, appMetrics, logger)

	// Play until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Playback.Mode {
	case config.ModeMelody:
		samples, err := audio.RenderMelody(audio.HappyBirthday, audio.MelodyConfig{
			SampleRate: format.SampleRate,
			Amplitude:  cfg.Playback.Amplitude,
		})
		if err != nil {
			out.Close()
			closeBackend()
			closeLine()
			logger.Error("Failed to render melody", slog.String("error", err.Error()))
			os.Exit(1)
		}
		pcm := audio.SamplesToBytes(samples)
		logger.Info("Melody rendered",
			slog.Int("samples", len(samples)),
			slog.Int("bytes", len(pcm)),
			slog.Float64("seconds", format.Seconds(uint64(len(pcm)))),
		)
		emitter.PlayMelody(ctx, pcm)
	default:
		emitter.PlayPatterns(ctx)
	}

	logger.Info("Received shutdown signal, stopping playback")

	if err := out.Close(); err != nil {
		logger.Error("Error closing output channel", slog.String("error", err.Error()))
	}
	if err := closeBackend(); err != nil {
		logger.Error("Error closing audio backend", slog.String("error", err.Error()))
	}
	if err := closeLine(); err != nil {
		logger.Error("Error closing status line", slog.String("error", err.Error()))
	}

	logger.Info("Service stopped")
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
