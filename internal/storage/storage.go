package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/jichen-jay/esp32-sound/internal/config"
)

// ErrUnmounted is returned by operations on a mount that has been released.
var ErrUnmounted = errors.New("storage is unmounted")

// Mount is an acquired recording destination. All file operations are
// relative to its root and fail once Unmount has run.
type Mount struct {
	root   string
	logger *slog.Logger

	mu        sync.Mutex
	unmounted bool
}

// NewMount acquires the destination directory. It creates the root when
// configured to, verifies writability with a probe file when configured to,
// and reports remaining capacity.
func NewMount(cfg config.StorageConfig, logger *slog.Logger) (*Mount, error) {
	info, err := os.Stat(cfg.Root)
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, fmt.Errorf("storage root %s is not a directory", cfg.Root)
		}
	case errors.Is(err, fs.ErrNotExist):
		if !cfg.CreateMissing {
			return nil, fmt.Errorf("storage root %s does not exist", cfg.Root)
		}
		if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage root: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to stat storage root: %w", err)
	}

	m := &Mount{root: cfg.Root, logger: logger}

	if cfg.ProbeWrite {
		if err := m.probe(); err != nil {
			return nil, fmt.Errorf("storage probe failed: %w", err)
		}
	}

	usage, err := disk.Usage(cfg.Root)
	if err != nil {
		logger.Warn("failed to read storage capacity", "root", cfg.Root, "error", err)
	} else {
		logger.Info("storage mounted",
			"root", cfg.Root,
			"total_mb", usage.Total/(1024*1024),
			"free_mb", usage.Free/(1024*1024))
		if cfg.MinFreeMB > 0 && usage.Free < uint64(cfg.MinFreeMB)*1024*1024 {
			logger.Warn("storage free space below threshold",
				"free_mb", usage.Free/(1024*1024),
				"min_free_mb", cfg.MinFreeMB)
		}
	}

	return m, nil
}

// probe verifies the root is writable by creating and deleting a small file.
func (m *Mount) probe() error {
	f, err := os.CreateTemp(m.root, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	if _, err := f.WriteString("probe"); err != nil {
		f.Close()
		os.Remove(name)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return os.Remove(name)
}

// Root returns the mounted directory.
func (m *Mount) Root() string {
	return m.root
}

// Path resolves a file name inside the mount.
func (m *Mount) Path(name string) string {
	return filepath.Join(m.root, name)
}

// CreateExclusive creates a new file, failing if it already exists. The
// caller owns the returned file.
func (m *Mount) CreateExclusive(name string) (*os.File, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(m.Path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return f, nil
}

// Remove deletes a file from the mount. A missing file is not an error.
func (m *Mount) Remove(name string) error {
	if err := m.check(); err != nil {
		return err
	}
	if err := os.Remove(m.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// Usage reports total and free bytes on the volume holding the mount.
func (m *Mount) Usage() (total, free uint64, err error) {
	if err := m.check(); err != nil {
		return 0, 0, err
	}
	usage, err := disk.Usage(m.root)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read storage capacity: %w", err)
	}
	return usage.Total, usage.Free, nil
}

// Unmount releases the destination. It can run once; every later operation
// on the mount fails with ErrUnmounted.
func (m *Mount) Unmount() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unmounted {
		return ErrUnmounted
	}
	m.unmounted = true
	m.logger.Info("storage unmounted", "root", m.root)
	return nil
}

func (m *Mount) check() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unmounted {
		return ErrUnmounted
	}
	return nil
}
