package driver

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// Number of callback blocks buffered between the audio thread and the
// caller. At the 16 kHz mono capture format this is several hundred
// milliseconds of slack.
const malgoQueueDepth = 64

// MalgoBackend drives real audio hardware through the miniaudio bindings.
// Pin assignments have no meaning on a host machine; channels are selected
// by device name instead, and any assignment opens.
type MalgoBackend struct {
	ctx    *malgo.AllocatedContext
	logger *slog.Logger
}

// NewMalgoBackend initializes the audio host context.
func NewMalgoBackend(logger *slog.Logger) (*MalgoBackend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("audio host", "message", strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	return &MalgoBackend{ctx: ctx, logger: logger}, nil
}

// Close releases the audio host context. Channels must be closed first.
func (b *MalgoBackend) Close() error {
	err := b.ctx.Uninit()
	b.ctx.Free()
	return err
}

// Devices lists playback and capture device names known to the host.
func (b *MalgoBackend) Devices() ([]string, []string, error) {
	playback, err := b.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list playback devices: %w", err)
	}
	capture, err := b.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list capture devices: %w", err)
	}

	playbackNames := make([]string, len(playback))
	for i := range playback {
		playbackNames[i] = playback[i].Name()
	}
	captureNames := make([]string, len(capture))
	for i := range capture {
		captureNames[i] = capture[i].Name()
	}
	return playbackNames, captureNames, nil
}

// findDevice matches a configured name against the device list, case
// insensitively and by substring. An empty name selects the default device.
func (b *MalgoBackend) findDevice(kind malgo.DeviceType, name string) (*malgo.DeviceInfo, error) {
	infos, err := b.ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	want := strings.ToLower(name)
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), want) {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("no device matching %q", name)
}

// OpenInput starts a capture device and hands back a channel fed by the
// audio thread. Only 16-bit PCM is supported.
func (b *MalgoBackend) OpenInput(cfg ChannelConfig) (InputChannel, error) {
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}
	if cfg.Format.BitsPerSample != 16 {
		return nil, fmt.Errorf("capture supports 16-bit samples only, got %d", cfg.Format.BitsPerSample)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Format.Channels)
	deviceConfig.SampleRate = uint32(cfg.Format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1
	if cfg.Device != "" {
		info, err := b.findDevice(malgo.Capture, cfg.Device)
		if err != nil {
			return nil, err
		}
		deviceConfig.Capture.DeviceID = info.ID.Pointer()
		b.logger.Info("capture device selected", "device", info.Name())
	}

	in := &malgoInput{
		blocks: make(chan []byte, malgoQueueDepth),
		done:   make(chan struct{}),
		logger: b.logger,
	}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, _ uint32) {
			in.push(pInput)
		},
	}

	device, err := malgo.InitDevice(b.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start capture device: %w", err)
	}
	in.device = device
	return in, nil
}

// OpenOutput starts a playback device fed from an internal block queue.
// Only 16-bit PCM is supported.
func (b *MalgoBackend) OpenOutput(cfg ChannelConfig) (OutputChannel, error) {
	if err := cfg.Format.Validate(); err != nil {
		return nil, err
	}
	if cfg.Format.BitsPerSample != 16 {
		return nil, fmt.Errorf("playback supports 16-bit samples only, got %d", cfg.Format.BitsPerSample)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(cfg.Format.Channels)
	deviceConfig.SampleRate = uint32(cfg.Format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1
	if cfg.Device != "" {
		info, err := b.findDevice(malgo.Playback, cfg.Device)
		if err != nil {
			return nil, err
		}
		deviceConfig.Playback.DeviceID = info.ID.Pointer()
		b.logger.Info("playback device selected", "device", info.Name())
	}

	out := &malgoOutput{
		blocks: make(chan []byte, malgoQueueDepth),
		done:   make(chan struct{}),
	}
	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, _ uint32) {
			out.fill(pOutput)
		},
	}

	device, err := malgo.InitDevice(b.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}
	out.device = device
	return out, nil
}

// malgoInput adapts the push-style capture callback to blocking block reads.
type malgoInput struct {
	device    *malgo.Device
	blocks    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	leftover  []byte
	dropped   atomic.Uint64
	logger    *slog.Logger
}

// push runs on the audio thread. The callback buffer is reused by the host,
// so the block is copied before handing it over. When the reader falls
// behind the newest block is dropped.
func (c *malgoInput) push(pInput []byte) {
	block := make([]byte, len(pInput))
	copy(block, pInput)
	select {
	case c.blocks <- block:
	default:
		c.dropped.Add(1)
	}
}

// ReadBlock fills p from the capture queue. It returns early with whatever
// arrived once the timeout expires, and ErrTimeout if nothing did.
func (c *malgoInput) ReadBlock(p []byte, timeout time.Duration) (int, error) {
	select {
	case <-c.done:
		return 0, ErrClosed
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	n := 0
	for n < len(p) {
		if len(c.leftover) > 0 {
			m := copy(p[n:], c.leftover)
			n += m
			c.leftover = c.leftover[m:]
			continue
		}
		select {
		case block := <-c.blocks:
			c.leftover = block
		case <-timer.C:
			if n == 0 {
				return 0, ErrTimeout
			}
			return n, nil
		case <-c.done:
			if n == 0 {
				return 0, ErrClosed
			}
			return n, nil
		}
	}
	return n, nil
}

// Close stops the capture device and wakes any blocked reader.
func (c *malgoInput) Close() error {
	err := ErrClosed
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.device.Stop()
		c.device.Uninit()
		if dropped := c.dropped.Load(); dropped > 0 {
			c.logger.Warn("capture blocks dropped", "count", dropped)
		}
	})
	return err
}

// malgoOutput adapts blocking block writes to the pull-style playback
// callback. The callback fills silence when the queue runs dry.
type malgoOutput struct {
	device    *malgo.Device
	blocks    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	pending   []byte
}

// fill runs on the audio thread.
func (c *malgoOutput) fill(pOutput []byte) {
	n := 0
	for n < len(pOutput) {
		if len(c.pending) > 0 {
			m := copy(pOutput[n:], c.pending)
			n += m
			c.pending = c.pending[m:]
			continue
		}
		select {
		case block := <-c.blocks:
			c.pending = block
		default:
			for i := n; i < len(pOutput); i++ {
				pOutput[i] = 0
			}
			return
		}
	}
}

// WriteBlock queues the whole block for playback, blocking while the queue
// is full. ErrTimeout reports a queue that stayed full past the deadline.
func (c *malgoOutput) WriteBlock(p []byte, timeout time.Duration) (int, error) {
	select {
	case <-c.done:
		return 0, ErrClosed
	default:
	}

	block := make([]byte, len(p))
	copy(block, p)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case c.blocks <- block:
		return len(p), nil
	case <-timer.C:
		return 0, ErrTimeout
	case <-c.done:
		return 0, ErrClosed
	}
}

// Close stops the playback device. Queued blocks that have not reached the
// callback yet are discarded.
func (c *malgoOutput) Close() error {
	err := ErrClosed
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.device.Stop()
		c.device.Uninit()
	})
	return err
}
