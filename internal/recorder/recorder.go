package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jichen-jay/esp32-sound/internal/audio"
	"github.com/jichen-jay/esp32-sound/internal/metrics"
)

// ErrNoProgress reports that the input channel failed too many reads in a
// row and the capture was abandoned.
var ErrNoProgress = errors.New("input channel made no progress")

// errEmptyRead stands in for reads that return no data and no error.
var errEmptyRead = errors.New("channel returned no data")

// Progress reports a whole-second boundary crossed during capture.
type Progress struct {
	Seconds     int    `json:"seconds"`
	Bytes       uint64 `json:"bytes"`
	TargetBytes uint64 `json:"target_bytes"`
}

// Config tunes the streaming loop.
type Config struct {
	// BlockSamples sizes the reusable transfer buffer in sample frames.
	BlockSamples int

	// ReadTimeout bounds each block read.
	ReadTimeout time.Duration

	// MaxConsecutiveReadFailures abandons the capture once that many reads
	// fail back to back. Zero keeps retrying forever.
	MaxConsecutiveReadFailures int

	// Analyze accumulates signal statistics over the captured samples.
	Analyze bool

	// OnProgress, when set, is called for every whole second captured.
	OnProgress func(Progress)
}

// Result summarizes one capture run.
type Result struct {
	Bytes                 uint64
	Blocks                int
	TransientReadFailures int
	Completed             bool
	Seconds               float64
	Signal                audio.SignalStats
	DominantHz            float64
}

// Recorder drives the streaming loop of a capture session.
type Recorder struct {
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a recorder.
func New(cfg Config, m *metrics.Metrics, logger *slog.Logger) (*Recorder, error) {
	if cfg.BlockSamples <= 0 {
		return nil, fmt.Errorf("block samples must be positive, got %d", cfg.BlockSamples)
	}
	if cfg.ReadTimeout <= 0 {
		return nil, fmt.Errorf("read timeout must be positive, got %v", cfg.ReadTimeout)
	}
	return &Recorder{cfg: cfg, metrics: m, logger: logger}, nil
}

// Record streams blocks from the session's input channel into its file
// until the running total reaches the target. A failed or empty read is
// transient: it is logged and the loop keeps going, unless the configured
// consecutive failure cap is hit. A failed append is fatal and ends the
// capture immediately. The session stays open on every path; closing it is
// the caller's job.
func (r *Recorder) Record(session *Session) (Result, error) {
	format := session.Format()
	buffer, err := audio.NewCaptureBufferForSamples(r.cfg.BlockSamples, format)
	if err != nil {
		return Result{}, err
	}

	target := uint64(session.Target())
	byteRate := uint64(format.ByteRate())
	targetSeconds := int(target / byteRate)

	r.metrics.RecordRecordingStarted()
	r.logger.Info("recording started",
		"file", session.Path(),
		"target_seconds", targetSeconds,
		"block_bytes", buffer.Size())

	var result Result
	var analysisBuf []int16
	consecutive := 0
	start := time.Now()

	for session.Written() < target {
		readStart := time.Now()
		n, err := session.cfg.Input.ReadBlock(buffer.Block(), r.cfg.ReadTimeout)
		if err == nil && n == 0 {
			err = errEmptyRead
		}
		if err != nil {
			r.metrics.RecordBlockRead("error", time.Since(readStart).Seconds())
			consecutive++
			result.TransientReadFailures++
			r.logger.Warn("block read failed",
				"error", err,
				"consecutive_failures", consecutive)
			if r.cfg.MaxConsecutiveReadFailures > 0 && consecutive >= r.cfg.MaxConsecutiveReadFailures {
				r.metrics.RecordRecordingFailed("read_stalled")
				result.Seconds = format.Seconds(result.Bytes)
				return result, fmt.Errorf("%w: %d consecutive read failures", ErrNoProgress, consecutive)
			}
			continue
		}
		consecutive = 0
		r.metrics.RecordBlockRead("ok", time.Since(readStart).Seconds())

		block := buffer.Filled(n)
		if err := session.Append(block); err != nil {
			r.metrics.RecordRecordingFailed("write")
			result.Seconds = format.Seconds(result.Bytes)
			r.logger.Error("failed to append block, aborting capture",
				"error", err,
				"bytes_written", result.Bytes)
			return result, err
		}
		result.Blocks++
		result.Bytes = session.Written()
		r.metrics.RecordBlockAppended(n)

		if r.cfg.Analyze {
			samples := audio.SamplesFromBytes(block)
			result.Signal.Observe(samples)
			analysisBuf = append(analysisBuf, samples...)
		}

		// A second boundary was crossed by this block.
		if result.Bytes%byteRate < uint64(n) {
			seconds := int(result.Bytes / byteRate)
			r.logger.Info("recording progress",
				"seconds", seconds,
				"target_seconds", targetSeconds)
			if r.cfg.OnProgress != nil {
				r.cfg.OnProgress(Progress{
					Seconds:     seconds,
					Bytes:       result.Bytes,
					TargetBytes: target,
				})
			}
		}
	}

	result.Completed = true
	result.Seconds = format.Seconds(result.Bytes)
	if r.cfg.Analyze {
		result.DominantHz = audio.DominantFrequency(analysisBuf, format.SampleRate)
	}

	elapsed := time.Since(start)
	r.metrics.RecordRecordingCompleted(elapsed.Seconds())
	r.logger.Info("recording completed",
		"file", session.Path(),
		"bytes", result.Bytes,
		"blocks", result.Blocks,
		"seconds", result.Seconds,
		"transient_read_failures", result.TransientReadFailures,
		"elapsed", elapsed.Round(time.Millisecond))

	return result, nil
}
