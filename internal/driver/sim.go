package driver

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/jichen-jay/esp32-sound/internal/audio"
)

// Default test tone injected by the simulated input channel.
const (
	simToneHz        = 440.0
	simToneAmplitude = 0.5
)

// SimConfig tunes the simulated backend.
type SimConfig struct {
	// WiredPins is the single pin assignment with a device behind it. The
	// zero value disables the gate and every assignment opens.
	WiredPins PinAssignment

	// ToneHz is the frequency of the sine the input channel synthesizes.
	// Zero selects the default test tone.
	ToneHz float64

	// FailWriteAfter makes the output channel fail every write after that
	// many successful ones. Zero never fails.
	FailWriteAfter int
}

// SimBackend is a deterministic in-memory audio host for tests and
// hardware-free runs. Channels transfer instantly rather than in real time,
// so a ten-second capture finishes as fast as the caller can drain it.
type SimBackend struct {
	cfg SimConfig
}

// NewSimBackend creates a simulated backend.
func NewSimBackend(cfg SimConfig) *SimBackend {
	if cfg.ToneHz == 0 {
		cfg.ToneHz = simToneHz
	}
	return &SimBackend{cfg: cfg}
}

func (b *SimBackend) wired(pins PinAssignment) bool {
	if (b.cfg.WiredPins == PinAssignment{}) {
		return true
	}
	return pins == b.cfg.WiredPins
}

// OpenInput opens a simulated capture channel delivering a continuous sine.
func (b *SimBackend) OpenInput(cfg ChannelConfig) (InputChannel, error) {
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}
	if !b.wired(cfg.Pins) {
		return nil, ErrNotWired
	}
	return &SimInput{
		format: cfg.Format,
		step:   2 * math.Pi * b.cfg.ToneHz / float64(cfg.Format.SampleRate),
	}, nil
}

// OpenOutput opens a simulated playback channel that counts what it is fed.
func (b *SimBackend) OpenOutput(cfg ChannelConfig) (OutputChannel, error) {
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}
	if !b.wired(cfg.Pins) {
		return nil, ErrNotWired
	}
	return &SimOutput{failAfter: b.cfg.FailWriteAfter}, nil
}

// Devices lists the two synthetic devices.
func (b *SimBackend) Devices() ([]string, []string, error) {
	return []string{"sim output"}, []string{"sim input"}, nil
}

// SimInput synthesizes a sine tone, keeping phase across blocks so the
// rendered signal is continuous no matter how reads are sized.
type SimInput struct {
	mu     sync.Mutex
	format audio.Format
	phase  float64
	step   float64
	closed bool
}

// ReadBlock fills p with as many whole sample frames as fit. It never
// times out and never blocks.
func (c *SimInput) ReadBlock(p []byte, timeout time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}

	align := c.format.BlockAlign()
	frames := len(p) / align
	for f := 0; f < frames; f++ {
		s := uint16(int16(simToneAmplitude * math.Sin(c.phase) * 32767))
		c.phase += c.step
		if c.phase > 2*math.Pi {
			c.phase -= 2 * math.Pi
		}
		for ch := 0; ch < align/2; ch++ {
			binary.LittleEndian.PutUint16(p[f*align+ch*2:], s)
		}
	}
	return frames * align, nil
}

// Close shuts the channel; later reads fail.
func (c *SimInput) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	return nil
}

// SimOutput records write activity for assertions and can inject failures.
type SimOutput struct {
	mu        sync.Mutex
	writes    int
	bytes     uint64
	lastBlock []byte
	failAfter int
	closed    bool
}

// WriteBlock accepts the whole block unless a failure is scheduled.
func (c *SimOutput) WriteBlock(p []byte, timeout time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	if c.failAfter > 0 && c.writes >= c.failAfter {
		return 0, ErrTimeout
	}

	c.writes++
	c.bytes += uint64(len(p))
	c.lastBlock = append(c.lastBlock[:0], p...)
	return len(p), nil
}

// Close shuts the channel; later writes fail.
func (c *SimOutput) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	return nil
}

// Writes returns the number of accepted blocks.
func (c *SimOutput) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// Bytes returns the total accepted payload size.
func (c *SimOutput) Bytes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// LastBlock returns a copy of the most recently accepted block.
func (c *SimOutput) LastBlock() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.lastBlock))
	copy(out, c.lastBlock)
	return out
}
