package audio

import "testing"

func TestNewCaptureBufferInvalidSize(t *testing.T) {
	if _, err := NewCaptureBuffer(0); err == nil {
		t.Error("Expected error for zero size")
	}
	if _, err := NewCaptureBuffer(-1); err == nil {
		t.Error("Expected error for negative size")
	}
	if _, err := NewCaptureBufferForSamples(0, DefaultCaptureFormat()); err == nil {
		t.Error("Expected error for zero sample count")
	}
}

func TestCaptureBufferSizing(t *testing.T) {
	// The capture default: 16384 16-bit mono samples per read.
	buf, err := NewCaptureBufferForSamples(16384, DefaultCaptureFormat())
	if err != nil {
		t.Fatalf("NewCaptureBufferForSamples failed: %v", err)
	}
	if buf.Size() != 32768 {
		t.Errorf("Expected 32768 byte block, got %d", buf.Size())
	}
	if len(buf.Block()) != 32768 {
		t.Errorf("Expected Block length 32768, got %d", len(buf.Block()))
	}
}

func TestCaptureBufferReuse(t *testing.T) {
	buf, err := NewCaptureBuffer(64)
	if err != nil {
		t.Fatalf("NewCaptureBuffer failed: %v", err)
	}

	// Every call must hand back the same backing array; the block is
	// allocated once and reused for the whole session.
	first := buf.Block()
	second := buf.Block()
	if &first[0] != &second[0] {
		t.Error("Block returned a different backing array across calls")
	}

	first[0] = 0xAB
	if buf.Filled(1)[0] != 0xAB {
		t.Error("Filled does not view the same backing array")
	}
}

func TestCaptureBufferFilledClamps(t *testing.T) {
	buf, err := NewCaptureBuffer(8)
	if err != nil {
		t.Fatalf("NewCaptureBuffer failed: %v", err)
	}

	if got := len(buf.Filled(4)); got != 4 {
		t.Errorf("Expected 4 filled bytes, got %d", got)
	}
	if got := len(buf.Filled(100)); got != 8 {
		t.Errorf("Expected clamp to 8 bytes, got %d", got)
	}
	if got := len(buf.Filled(-3)); got != 0 {
		t.Errorf("Expected 0 bytes for negative count, got %d", got)
	}
}
