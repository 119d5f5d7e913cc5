package player

import (
	"context"
	"log/slog"
	"time"

	"github.com/jichen-jay/esp32-sound/internal/audio"
	"github.com/jichen-jay/esp32-sound/internal/driver"
	"github.com/jichen-jay/esp32-sound/internal/metrics"
)

// Config tunes the playback loops.
type Config struct {
	// Repeats is how many times each waveform table is written per
	// transmission.
	Repeats int

	// RepeatDelay is the pause after each table write.
	RepeatDelay time.Duration

	// PatternPause is the pause between pattern transmissions.
	PatternPause time.Duration

	// TransmitBlockBytes sizes the melody stream chunks.
	TransmitBlockBytes int

	// BlockDelay is the pause after each melody chunk.
	BlockDelay time.Duration

	// TransmissionPause is the pause between melody transmissions.
	TransmissionPause time.Duration

	// WriteTimeout bounds each channel write.
	WriteTimeout time.Duration

	// Status, when set, is driven high for the span of each transmission.
	Status driver.EnableLine
}

// Emitter plays waveform tables or a rendered melody over an open output
// channel. It does not own the channel; closing it is the caller's job.
type Emitter struct {
	out     driver.OutputChannel
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewEmitter creates an emitter over an open channel.
func NewEmitter(out driver.OutputChannel, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Emitter {
	return &Emitter{out: out, cfg: cfg, metrics: m, logger: logger}
}

// PlayPatterns cycles through the waveform tables until the context is
// canceled. Each table is written the configured number of repeats; a write
// failure abandons the remaining repeats of that table and moves on to the
// next one.
func (e *Emitter) PlayPatterns(ctx context.Context) {
	patterns := audio.Patterns()
	blocks := make([][]byte, len(patterns))
	for i, p := range patterns {
		blocks[i] = p.Bytes()
	}

	index := 0
	transmission := 0
	for ctx.Err() == nil {
		transmission++
		pattern := patterns[index]
		e.setStatus(true)
		e.logger.Info("pattern transmission started",
			"pattern", pattern.Name,
			"transmission", transmission,
			"samples", len(pattern.Samples))

		for repeat := 0; repeat < e.cfg.Repeats; repeat++ {
			n, err := e.out.WriteBlock(blocks[index], e.cfg.WriteTimeout)
			if err != nil {
				e.metrics.RecordPlaybackWriteFailure()
				e.logger.Warn("pattern write failed",
					"pattern", pattern.Name,
					"repeat", repeat+1,
					"error", err)
				break
			}
			e.metrics.RecordPatternWrite(pattern.Name, n)
			if !e.sleep(ctx, e.cfg.RepeatDelay) {
				e.setStatus(false)
				return
			}
		}

		e.setStatus(false)
		index = (index + 1) % len(patterns)
		if index == 0 {
			e.logger.Info("pattern cycle complete", "transmissions", transmission)
		}
		if !e.sleep(ctx, e.cfg.PatternPause) {
			return
		}
	}
}

// PlayMelody streams the rendered melody in fixed-size chunks, over and
// over, until the context is canceled. A failed chunk write is logged and
// the stream carries on with the next chunk.
func (e *Emitter) PlayMelody(ctx context.Context, pcm []byte) {
	transmission := 0
	for ctx.Err() == nil {
		transmission++
		e.setStatus(true)
		e.logger.Info("melody transmission started",
			"transmission", transmission,
			"bytes", len(pcm))

		sent := 0
		for offset := 0; offset < len(pcm); {
			end := offset + e.cfg.TransmitBlockBytes
			if end > len(pcm) {
				end = len(pcm)
			}
			n, err := e.out.WriteBlock(pcm[offset:end], e.cfg.WriteTimeout)
			if err != nil {
				e.metrics.RecordPlaybackWriteFailure()
				e.logger.Warn("melody block write failed",
					"offset", offset,
					"error", err)
			} else {
				sent += n
			}
			offset = end
			if !e.sleep(ctx, e.cfg.BlockDelay) {
				e.setStatus(false)
				return
			}
		}

		e.metrics.RecordMelodyTransmission(sent)
		e.setStatus(false)
		e.logger.Info("melody transmission complete",
			"transmission", transmission,
			"bytes_sent", sent)
		if !e.sleep(ctx, e.cfg.TransmissionPause) {
			return
		}
	}
}

func (e *Emitter) setStatus(high bool) {
	if e.cfg.Status == nil {
		return
	}
	if err := e.cfg.Status.SetLevel(high); err != nil {
		e.logger.Warn("failed to set status line", "error", err)
	}
}

// sleep waits for d or until the context is canceled; it reports whether
// the loop should keep going.
func (e *Emitter) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
