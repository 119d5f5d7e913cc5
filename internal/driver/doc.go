// Package driver abstracts the audio hardware behind blocking, timeout-aware
// channel contracts. Two backends implement them: malgo binds to a real host
// audio device, sim is a deterministic in-memory stand-in that honors the
// configured pin wiring. The package also drives the amplifier enable line.
package driver
