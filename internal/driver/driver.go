package driver

import (
	"errors"
	"fmt"
	"time"

	"github.com/jichen-jay/esp32-sound/internal/audio"
)

var (
	// ErrTimeout reports that no data moved within the caller's deadline.
	ErrTimeout = errors.New("channel timeout")

	// ErrClosed reports use of a channel after Close.
	ErrClosed = errors.New("channel closed")

	// ErrNotWired reports a pin assignment with no device behind it.
	ErrNotWired = errors.New("pin assignment not wired")
)

// PinAssignment names the bus lines a channel is wired to. The word select
// line is unused for PDM capture and stays zero there.
type PinAssignment struct {
	Clock      int
	WordSelect int
	Data       int
}

func (p PinAssignment) String() string {
	return fmt.Sprintf("clk=%d ws=%d data=%d", p.Clock, p.WordSelect, p.Data)
}

// ChannelConfig describes a single channel to open on a backend.
type ChannelConfig struct {
	Format audio.Format
	Pins   PinAssignment
	Device string // backend device selector, empty means default
}

// InputChannel delivers captured sample bytes in blocks.
type InputChannel interface {
	// ReadBlock fills p with captured bytes, waiting at most timeout in
	// total. It may return fewer bytes than requested; n == 0 with a nil
	// error never indicates end of stream.
	ReadBlock(p []byte, timeout time.Duration) (int, error)

	Close() error
}

// OutputChannel consumes sample bytes in blocks.
type OutputChannel interface {
	// WriteBlock queues p for playback, waiting at most timeout for buffer
	// space. The block is fully accepted or not at all.
	WriteBlock(p []byte, timeout time.Duration) (int, error)

	Close() error
}

// Backend opens channels on a concrete audio host.
type Backend interface {
	OpenInput(cfg ChannelConfig) (InputChannel, error)
	OpenOutput(cfg ChannelConfig) (OutputChannel, error)

	// Devices lists the playback and capture device names the backend sees.
	Devices() (playback []string, capture []string, err error)
}

// EnableLine drives an amplifier or status line.
type EnableLine interface {
	SetLevel(high bool) error
}
