package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jichen-jay/esp32-sound/internal/audio"
	"github.com/jichen-jay/esp32-sound/internal/driver"
	"github.com/jichen-jay/esp32-sound/internal/storage"
)

// ErrSessionClosed reports an append to a session that was already closed.
var ErrSessionClosed = errors.New("session is closed")

// SessionConfig names the resources and parameters of one capture.
type SessionConfig struct {
	Mount    *storage.Mount
	Input    driver.InputChannel
	Format   audio.Format
	FileName string

	// TargetBytes is the data size the header will claim. The stream ends
	// once at least this many bytes have been appended.
	TargetBytes uint32

	// Overwrite removes an existing file of the same name before creating
	// the new one.
	Overwrite bool

	// PatchHeaderOnAbort rewrites the header size fields on Close when the
	// capture ended short of the target. Off by default; the header is
	// normally written once and never touched again.
	PatchHeaderOnAbort bool

	Logger *slog.Logger
}

// Session owns the resources of one capture: the mount, the input channel
// and the destination file. It creates the file, writes the header up front
// and releases everything in reverse order of acquisition exactly once.
type Session struct {
	cfg     SessionConfig
	file    *os.File
	path    string
	started time.Time

	mu      sync.Mutex
	written uint64
	closed  bool
}

// NewSession takes ownership of the mount and input channel, creates the
// destination file and writes the header sized for the full target. If it
// fails the file is cleaned up but the mount and channel stay open for the
// caller to release.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Mount == nil {
		return nil, fmt.Errorf("session requires a mount")
	}
	if cfg.Input == nil {
		return nil, fmt.Errorf("session requires an input channel")
	}
	if cfg.FileName == "" {
		return nil, fmt.Errorf("session requires a file name")
	}
	if cfg.TargetBytes == 0 {
		return nil, fmt.Errorf("session target size must be positive")
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session format: %w", err)
	}

	if cfg.Overwrite {
		if err := cfg.Mount.Remove(cfg.FileName); err != nil {
			return nil, err
		}
	}
	file, err := cfg.Mount.CreateExclusive(cfg.FileName)
	if err != nil {
		return nil, err
	}

	header, err := audio.NewHeader(cfg.Format, cfg.TargetBytes).Encode()
	if err != nil {
		file.Close()
		cfg.Mount.Remove(cfg.FileName)
		return nil, err
	}
	if _, err := file.Write(header); err != nil {
		file.Close()
		cfg.Mount.Remove(cfg.FileName)
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	cfg.Logger.Info("capture session opened",
		"file", cfg.Mount.Path(cfg.FileName),
		"format", cfg.Format.String(),
		"target_bytes", cfg.TargetBytes)

	return &Session{
		cfg:     cfg,
		file:    file,
		path:    cfg.Mount.Path(cfg.FileName),
		started: time.Now(),
	}, nil
}

// Append writes one block of sample data to the file.
func (s *Session) Append(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if _, err := s.file.Write(p); err != nil {
		return fmt.Errorf("failed to append audio data: %w", err)
	}
	s.written += uint64(len(p))
	return nil
}

// Written returns the number of data bytes appended so far.
func (s *Session) Written() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Target returns the data size the header claims.
func (s *Session) Target() uint32 {
	return s.cfg.TargetBytes
}

// Format returns the session's sample format.
func (s *Session) Format() audio.Format {
	return s.cfg.Format
}

// FileName returns the destination file name inside the mount.
func (s *Session) FileName() string {
	return s.cfg.FileName
}

// Path returns the absolute destination path.
func (s *Session) Path() string {
	return s.path
}

// StartedAt returns when the session was opened.
func (s *Session) StartedAt() time.Time {
	return s.started
}

// Close releases everything the session owns in reverse order of
// acquisition: the file, then the input channel, then the mount. Only the
// first call does work; later calls return nil. When the capture ended
// short of the target and patching is enabled, the header size fields are
// corrected before the file closes.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	written := s.written
	s.mu.Unlock()

	var firstErr error
	if s.cfg.PatchHeaderOnAbort && written < uint64(s.cfg.TargetBytes) {
		if err := audio.PatchSizes(s.file, uint32(written)); err != nil {
			s.cfg.Logger.Warn("failed to patch header sizes", "file", s.path, "error", err)
			firstErr = err
		} else {
			s.cfg.Logger.Info("header sizes patched after short capture",
				"file", s.path, "data_bytes", written)
		}
	}

	if err := s.file.Close(); err != nil {
		s.cfg.Logger.Warn("failed to close recording file", "file", s.path, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := s.cfg.Input.Close(); err != nil {
		s.cfg.Logger.Warn("failed to close input channel", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := s.cfg.Mount.Unmount(); err != nil {
		s.cfg.Logger.Warn("failed to unmount storage", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	s.cfg.Logger.Info("capture session closed", "file", s.path, "bytes", written)
	return firstErr
}
