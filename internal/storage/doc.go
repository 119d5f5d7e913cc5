// Package storage manages the recording destination as an explicit mount.
// Files can only be created between mount and unmount, mirroring how the
// capture flow brings up its card before streaming and releases it after.
package storage
