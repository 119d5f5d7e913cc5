// Package config loads and validates the YAML configuration shared by the
// recorder and player binaries. Both flows read the same file shape: storage,
// capture, playback, driver, catalog, monitor, and logging sections, each with
// its own Validate.
package config
