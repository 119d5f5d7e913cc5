package audio

import "fmt"

// CaptureBuffer is the single reusable transfer block of a capture session.
// It is allocated once at session start, reused for every read, and never
// resized. The buffer is private to the worker driving the transfer loop
// and must not be shared with another goroutine.
type CaptureBuffer struct {
	block []byte
}

// NewCaptureBuffer allocates a buffer holding size bytes.
func NewCaptureBuffer(size int) (*CaptureBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("capture buffer size must be positive, got %d", size)
	}
	return &CaptureBuffer{block: make([]byte, size)}, nil
}

// NewCaptureBufferForSamples allocates a buffer sized to hold the given
// number of sample frames in the given format.
func NewCaptureBufferForSamples(samples int, f Format) (*CaptureBuffer, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("capture buffer sample count must be positive, got %d", samples)
	}
	return NewCaptureBuffer(samples * f.BlockAlign())
}

// Block returns the full backing slice for a read call to fill.
func (b *CaptureBuffer) Block() []byte {
	return b.block
}

// Size returns the fixed block size in bytes.
func (b *CaptureBuffer) Size() int {
	return len(b.block)
}

// Filled returns the first n bytes after a read, clamped to the block size.
func (b *CaptureBuffer) Filled(n int) []byte {
	if n < 0 {
		n = 0
	}
	if n > len(b.block) {
		n = len(b.block)
	}
	return b.block[:n]
}
