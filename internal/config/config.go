package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Playback modes accepted by PlaybackConfig.Mode.
const (
	ModePatterns = "patterns"
	ModeMelody   = "melody"
)

// Driver backends accepted by DriverConfig.Backend.
const (
	BackendMalgo = "malgo"
	BackendSim   = "sim"
)

// Config represents the complete configuration for both binaries
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Capture  CaptureConfig  `yaml:"capture"`
	Playback PlaybackConfig `yaml:"playback"`
	Driver   DriverConfig   `yaml:"driver"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PinConfig names the bus lines a channel is wired to
type PinConfig struct {
	Clock      int `yaml:"clock"`
	WordSelect int `yaml:"word_select"`
	Data       int `yaml:"data"`
}

// StorageConfig contains recording destination configuration
type StorageConfig struct {
	Root          string `yaml:"root"`
	CreateMissing bool   `yaml:"create_missing"`
	ProbeWrite    bool   `yaml:"probe_write"`
	MinFreeMB     int    `yaml:"min_free_mb"`
}

// CaptureConfig contains the recording flow parameters
type CaptureConfig struct {
	SampleRate                 int       `yaml:"sample_rate"`
	BitDepth                   int       `yaml:"bit_depth"`
	Channels                   int       `yaml:"channels"`
	DurationSeconds            int       `yaml:"duration_seconds"`
	BlockSamples               int       `yaml:"block_samples"`
	ReadTimeoutMs              int       `yaml:"read_timeout_ms"`
	MaxConsecutiveReadFailures int       `yaml:"max_consecutive_read_failures"` // 0 = retry forever
	PatchHeaderOnAbort         bool      `yaml:"patch_header_on_abort"`
	OutputFile                 string    `yaml:"output_file"`
	OverwriteExisting          bool      `yaml:"overwrite_existing"`
	Analyze                    bool      `yaml:"analyze"`
	Pins                       PinConfig `yaml:"pins"`
}

// PlaybackConfig contains the playback flow parameters
type PlaybackConfig struct {
	Mode                string      `yaml:"mode"`
	SampleRate          int         `yaml:"sample_rate"` // 0 = mode default
	Repeats             int         `yaml:"repeats"`
	RepeatDelayMs       int         `yaml:"repeat_delay_ms"`
	PatternPauseMs      int         `yaml:"pattern_pause_ms"`
	TransmitBlockBytes  int         `yaml:"transmit_block_bytes"`
	BlockDelayMs        int         `yaml:"block_delay_ms"`
	TransmissionPauseMs int         `yaml:"transmission_pause_ms"`
	WriteTimeoutMs      int         `yaml:"write_timeout_ms"`
	ProbeWrites         int         `yaml:"probe_writes"`
	Amplitude           float64     `yaml:"amplitude"`
	EnablePin           int         `yaml:"enable_pin"` // -1 = no enable line
	Candidates          []PinConfig `yaml:"candidates"`
}

// DriverConfig selects and tunes the audio backend
type DriverConfig struct {
	Backend      string    `yaml:"backend"`
	Device       string    `yaml:"device"`
	SimWiredPins PinConfig `yaml:"sim_wired_pins"`
	SimToneHz    float64   `yaml:"sim_tone_hz"` // 0 = default test tone
}

// CatalogConfig contains the recording catalog configuration
type CatalogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MonitorConfig contains the monitor HTTP server configuration
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Playback.Validate(); err != nil {
		return fmt.Errorf("playback config: %w", err)
	}

	if err := c.Driver.Validate(); err != nil {
		return fmt.Errorf("driver config: %w", err)
	}

	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog config: %w", err)
	}

	if err := c.Monitor.Validate(); err != nil {
		return fmt.Errorf("monitor config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.Root == "" {
		return fmt.Errorf("root cannot be empty")
	}

	if s.MinFreeMB < 0 {
		return fmt.Errorf("min_free_mb cannot be negative, got %d", s.MinFreeMB)
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if c.SampleRate < 1 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}

	if c.BitDepth < 8 || c.BitDepth%8 != 0 {
		return fmt.Errorf("bit_depth must be a positive multiple of 8, got %d", c.BitDepth)
	}

	if c.Channels < 1 {
		return fmt.Errorf("channels must be at least 1, got %d", c.Channels)
	}

	if c.DurationSeconds < 1 {
		return fmt.Errorf("duration_seconds must be at least 1, got %d", c.DurationSeconds)
	}

	if c.BlockSamples < 1 {
		return fmt.Errorf("block_samples must be at least 1, got %d", c.BlockSamples)
	}

	if c.ReadTimeoutMs < 1 {
		return fmt.Errorf("read_timeout_ms must be at least 1, got %d", c.ReadTimeoutMs)
	}

	if c.MaxConsecutiveReadFailures < 0 {
		return fmt.Errorf("max_consecutive_read_failures cannot be negative, got %d", c.MaxConsecutiveReadFailures)
	}

	if c.OutputFile == "" {
		return fmt.Errorf("output_file cannot be empty")
	}

	if strings.ContainsAny(c.OutputFile, `/\`) {
		return fmt.Errorf("output_file must be a bare file name, got '%s'", c.OutputFile)
	}

	return nil
}

// Validate validates playback configuration
func (p *PlaybackConfig) Validate() error {
	if p.Mode != ModePatterns && p.Mode != ModeMelody {
		return fmt.Errorf("mode must be '%s' or '%s', got '%s'", ModePatterns, ModeMelody, p.Mode)
	}

	if p.SampleRate < 0 {
		return fmt.Errorf("sample_rate cannot be negative, got %d", p.SampleRate)
	}

	if p.Repeats < 1 {
		return fmt.Errorf("repeats must be at least 1, got %d", p.Repeats)
	}

	if p.RepeatDelayMs < 0 || p.PatternPauseMs < 0 || p.BlockDelayMs < 0 || p.TransmissionPauseMs < 0 {
		return fmt.Errorf("pause and delay values cannot be negative")
	}

	if p.TransmitBlockBytes < 2 || p.TransmitBlockBytes%2 != 0 {
		return fmt.Errorf("transmit_block_bytes must be a positive even number, got %d", p.TransmitBlockBytes)
	}

	if p.WriteTimeoutMs < 1 {
		return fmt.Errorf("write_timeout_ms must be at least 1, got %d", p.WriteTimeoutMs)
	}

	if p.ProbeWrites < 1 {
		return fmt.Errorf("probe_writes must be at least 1, got %d", p.ProbeWrites)
	}

	if p.Amplitude <= 0 || p.Amplitude > 1 {
		return fmt.Errorf("amplitude must be between 0 and 1, got %f", p.Amplitude)
	}

	if p.EnablePin < -1 {
		return fmt.Errorf("enable_pin must be -1 (disabled) or a pin number, got %d", p.EnablePin)
	}

	if len(p.Candidates) == 0 {
		return fmt.Errorf("candidates cannot be empty")
	}

	return nil
}

// Validate validates driver configuration
func (d *DriverConfig) Validate() error {
	if d.Backend != BackendMalgo && d.Backend != BackendSim {
		return fmt.Errorf("backend must be '%s' or '%s', got '%s'", BackendMalgo, BackendSim, d.Backend)
	}

	if d.SimToneHz < 0 {
		return fmt.Errorf("sim_tone_hz cannot be negative, got %f", d.SimToneHz)
	}

	return nil
}

// Validate validates catalog configuration
func (c *CatalogConfig) Validate() error {
	if c.Enabled && c.Path == "" {
		return fmt.Errorf("path cannot be empty when the catalog is enabled")
	}

	return nil
}

// Validate validates monitor configuration
func (m *MonitorConfig) Validate() error {
	if m.Enabled {
		if m.Port < 1 || m.Port > 65535 {
			return fmt.Errorf("monitor port must be between 1 and 65535, got %d", m.Port)
		}

		if m.Address == "" {
			return fmt.Errorf("monitor address cannot be empty when the monitor is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	if l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		return fmt.Errorf("rotation values cannot be negative")
	}

	return nil
}

// GetTargetDuration returns the configured recording length as a time.Duration
func (c *CaptureConfig) GetTargetDuration() time.Duration {
	return time.Duration(c.DurationSeconds) * time.Second
}

// GetReadTimeout returns the per-block read timeout as a time.Duration
func (c *CaptureConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// GetRepeatDelay returns the pause between pattern repeats as a time.Duration
func (p *PlaybackConfig) GetRepeatDelay() time.Duration {
	return time.Duration(p.RepeatDelayMs) * time.Millisecond
}

// GetPatternPause returns the pause between patterns as a time.Duration
func (p *PlaybackConfig) GetPatternPause() time.Duration {
	return time.Duration(p.PatternPauseMs) * time.Millisecond
}

// GetBlockDelay returns the pause between transmit blocks as a time.Duration
func (p *PlaybackConfig) GetBlockDelay() time.Duration {
	return time.Duration(p.BlockDelayMs) * time.Millisecond
}

// GetTransmissionPause returns the pause between melody transmissions as a time.Duration
func (p *PlaybackConfig) GetTransmissionPause() time.Duration {
	return time.Duration(p.TransmissionPauseMs) * time.Millisecond
}

// GetWriteTimeout returns the per-block write timeout as a time.Duration
func (p *PlaybackConfig) GetWriteTimeout() time.Duration {
	return time.Duration(p.WriteTimeoutMs) * time.Millisecond
}

// EffectiveSampleRate resolves the playback sample rate, falling back to the
// mode default: 8000 Hz for the pattern tables, 16000 Hz for the melody.
func (p *PlaybackConfig) EffectiveSampleRate() int {
	if p.SampleRate > 0 {
		return p.SampleRate
	}

	if p.Mode == ModeMelody {
		return 16000
	}

	return 8000
}
