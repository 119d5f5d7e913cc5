// Package player implements the playback flow: a trial that finds a working
// output channel among candidate pin assignments, and an emitter that cycles
// waveform tables or streams a rendered melody over the selected channel.
package player
