package storage

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jichen-jay/esp32-sound/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewMountCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "recordings", "card")
	m, err := NewMount(config.StorageConfig{Root: root, CreateMissing: true, ProbeWrite: true}, testLogger())
	if err != nil {
		t.Fatalf("NewMount: %v", err)
	}
	defer m.Unmount()

	info, err := os.Stat(root)
	if err != nil {
		t.Fatalf("root was not created: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("root is not a directory")
	}
}

func TestNewMountRequiresExistingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	if _, err := NewMount(config.StorageConfig{Root: root}, testLogger()); err == nil {
		t.Fatal("NewMount succeeded on a missing root without create_missing")
	}
}

func TestNewMountRejectsFileRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(root, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewMount(config.StorageConfig{Root: root}, testLogger()); err == nil {
		t.Fatal("NewMount succeeded on a plain file")
	}
}

func TestCreateExclusive(t *testing.T) {
	m, err := NewMount(config.StorageConfig{Root: t.TempDir()}, testLogger())
	if err != nil {
		t.Fatalf("NewMount: %v", err)
	}
	defer m.Unmount()

	f, err := m.CreateExclusive("record.wav")
	if err != nil {
		t.Fatalf("CreateExclusive: %v", err)
	}
	if _, err := f.Write([]byte("data")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := m.CreateExclusive("record.wav"); !errors.Is(err, fs.ErrExist) {
		t.Errorf("second CreateExclusive: got %v, want fs.ErrExist", err)
	}
}

func TestRemove(t *testing.T) {
	m, err := NewMount(config.StorageConfig{Root: t.TempDir()}, testLogger())
	if err != nil {
		t.Fatalf("NewMount: %v", err)
	}
	defer m.Unmount()

	f, err := m.CreateExclusive("record.wav")
	if err != nil {
		t.Fatalf("CreateExclusive: %v", err)
	}
	f.Close()

	if err := m.Remove("record.wav"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(m.Path("record.wav")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("file still present after Remove: %v", err)
	}

	// Removing a file that is not there is not an error.
	if err := m.Remove("record.wav"); err != nil {
		t.Errorf("Remove of missing file: %v", err)
	}
}

func TestUsage(t *testing.T) {
	m, err := NewMount(config.StorageConfig{Root: t.TempDir()}, testLogger())
	if err != nil {
		t.Fatalf("NewMount: %v", err)
	}
	defer m.Unmount()

	total, free, err := m.Usage()
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if total == 0 {
		t.Error("total = 0")
	}
	if free > total {
		t.Errorf("free %d > total %d", free, total)
	}
}

func TestUnmountGatesOperations(t *testing.T) {
	m, err := NewMount(config.StorageConfig{Root: t.TempDir()}, testLogger())
	if err != nil {
		t.Fatalf("NewMount: %v", err)
	}

	if err := m.Unmount(); err != nil {
		t.Fatalf("Unmount: %v", err)
	}
	if err := m.Unmount(); !errors.Is(err, ErrUnmounted) {
		t.Errorf("second Unmount: got %v, want ErrUnmounted", err)
	}
	if _, err := m.CreateExclusive("record.wav"); !errors.Is(err, ErrUnmounted) {
		t.Errorf("CreateExclusive after Unmount: got %v, want ErrUnmounted", err)
	}
	if err := m.Remove("record.wav"); !errors.Is(err, ErrUnmounted) {
		t.Errorf("Remove after Unmount: got %v, want ErrUnmounted", err)
	}
	if _, _, err := m.Usage(); !errors.Is(err, ErrUnmounted) {
		t.Errorf("Usage after Unmount: got %v, want ErrUnmounted", err)
	}
}
