package player

import (
	"log/slog"
	"time"

	"github.com/jichen-jay/esp32-sound/internal/audio"
	"github.com/jichen-jay/esp32-sound/internal/driver"
	"github.com/jichen-jay/esp32-sound/internal/metrics"
)

// Probe blocks carry this many silent sample frames.
const probeFrames = 64

// TrialConfig tunes the channel trial.
type TrialConfig struct {
	// ProbeWrites is how many silent blocks each candidate must accept
	// before it is trusted. Zero trusts a successful open.
	ProbeWrites int

	// WriteTimeout bounds each probe write.
	WriteTimeout time.Duration
}

// Trial probes candidate pin assignments in order and keeps the first one
// with a device behind it.
type Trial struct {
	backend driver.Backend
	cfg     TrialConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewTrial creates a trial over the given backend.
func NewTrial(backend driver.Backend, cfg TrialConfig, m *metrics.Metrics, logger *slog.Logger) *Trial {
	return &Trial{backend: backend, cfg: cfg, metrics: m, logger: logger}
}

// Run opens each candidate and feeds it probe blocks until one accepts them
// all. The winning channel is returned open and ready to play; candidates
// that fail are closed and logged. When every candidate fails, ok is false
// and the caller decides how loud to be about it.
func (t *Trial) Run(format audio.Format, device string, candidates []driver.PinAssignment) (driver.OutputChannel, driver.PinAssignment, bool) {
	probe := make([]byte, probeFrames*format.BlockAlign())

	for _, pins := range candidates {
		t.logger.Info("trying output channel", "pins", pins.String())

		out, err := t.backend.OpenOutput(driver.ChannelConfig{
			Format: format,
			Pins:   pins,
			Device: device,
		})
		if err != nil {
			t.metrics.RecordTrialAttempt("open_failed")
			t.logger.Warn("output channel rejected", "pins", pins.String(), "error", err)
			continue
		}

		if err := t.probe(out, probe); err != nil {
			t.metrics.RecordTrialAttempt("probe_failed")
			t.logger.Warn("output channel failed probe", "pins", pins.String(), "error", err)
			out.Close()
			continue
		}

		t.metrics.RecordTrialAttempt("selected")
		t.logger.Info("output channel selected", "pins", pins.String())
		return out, pins, true
	}

	return nil, driver.PinAssignment{}, false
}

// probe writes silent blocks; a wired channel must accept all of them.
func (t *Trial) probe(out driver.OutputChannel, block []byte) error {
	for i := 0; i < t.cfg.ProbeWrites; i++ {
		if _, err := out.WriteBlock(block, t.cfg.WriteTimeout); err != nil {
			return err
		}
	}
	return nil
}
