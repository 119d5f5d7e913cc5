package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultGPIORoot is where the kernel exposes the sysfs GPIO interface.
const DefaultGPIORoot = "/sys/class/gpio"

// NopLine is an EnableLine wired to nothing. It stands in when no status
// pin is configured.
type NopLine struct{}

// SetLevel does nothing.
func (NopLine) SetLevel(bool) error { return nil }

// SysfsLine drives one GPIO pin as an output through sysfs.
type SysfsLine struct {
	pin       int
	root      string
	valuePath string
}

// OpenSysfsLine exports the pin, configures it as an output and drives it
// low.
func OpenSysfsLine(pin int) (*SysfsLine, error) {
	return openSysfsLineAt(DefaultGPIORoot, pin)
}

func openSysfsLineAt(root string, pin int) (*SysfsLine, error) {
	if pin < 0 {
		return nil, fmt.Errorf("invalid gpio pin %d", pin)
	}
	dir := filepath.Join(root, fmt.Sprintf("gpio%d", pin))
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(root, "export"), []byte(strconv.Itoa(pin)), 0o644); err != nil {
			return nil, fmt.Errorf("failed to export gpio %d: %w", pin, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "direction"), []byte("out"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to configure gpio %d as output: %w", pin, err)
	}

	line := &SysfsLine{pin: pin, root: root, valuePath: filepath.Join(dir, "value")}
	if err := line.SetLevel(false); err != nil {
		return nil, err
	}
	return line, nil
}

// SetLevel drives the line high or low.
func (l *SysfsLine) SetLevel(high bool) error {
	value := "0"
	if high {
		value = "1"
	}
	if err := os.WriteFile(l.valuePath, []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to set gpio %d: %w", l.pin, err)
	}
	return nil
}

// Close releases the pin back to the kernel.
func (l *SysfsLine) Close() error {
	if err := os.WriteFile(filepath.Join(l.root, "unexport"), []byte(strconv.Itoa(l.pin)), 0o644); err != nil {
		return fmt.Errorf("failed to unexport gpio %d: %w", l.pin, err)
	}
	return nil
}

// Blink pulses the line count times and leaves it low.
func Blink(line EnableLine, count int, interval time.Duration) error {
	for i := 0; i < count; i++ {
		if err := line.SetLevel(true); err != nil {
			return err
		}
		time.Sleep(interval)
		if err := line.SetLevel(false); err != nil {
			return err
		}
		time.Sleep(interval)
	}
	return nil
}
