package audio

import (
	"encoding/binary"
	"fmt"
)

// Format describes a linear PCM stream. A format is fixed at program start
// from configuration and never changes for the lifetime of a session.
type Format struct {
	SampleRate    int // samples per second, per channel
	BitsPerSample int
	Channels      int
}

// DefaultCaptureFormat matches the PDM microphone path: 16 kHz, 16-bit, mono.
func DefaultCaptureFormat() Format {
	return Format{SampleRate: 16000, BitsPerSample: 16, Channels: 1}
}

// Validate checks that the format can describe a PCM stream.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}
	if f.BitsPerSample <= 0 || f.BitsPerSample%8 != 0 {
		return fmt.Errorf("bits per sample must be a positive multiple of 8, got %d", f.BitsPerSample)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("channel count must be positive, got %d", f.Channels)
	}
	return nil
}

// ByteRate returns the number of data bytes the stream produces per second.
func (f Format) ByteRate() int {
	return f.SampleRate * f.Channels * f.BitsPerSample / 8
}

// BlockAlign returns the size in bytes of one sample frame across all channels.
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

// BytesForDuration returns the exact data byte count for a whole-second
// duration. Integer arithmetic only, so the container size fields derived
// from it never drift.
func (f Format) BytesForDuration(seconds int) uint32 {
	return uint32(f.ByteRate() * seconds)
}

// Seconds converts a data byte count back into seconds of audio.
func (f Format) Seconds(dataBytes uint64) float64 {
	br := f.ByteRate()
	if br == 0 {
		return 0
	}
	return float64(dataBytes) / float64(br)
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz %d-bit %dch", f.SampleRate, f.BitsPerSample, f.Channels)
}

// SamplesToBytes renders 16-bit samples as little-endian bytes, the wire
// order used by both the container payload and channel block writes.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// SamplesFromBytes parses little-endian 16-bit samples. A trailing odd byte
// is ignored.
func SamplesFromBytes(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}
