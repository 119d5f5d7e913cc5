package audio

import (
	"math"
	"testing"
)

func TestSignalStatsObserve(t *testing.T) {
	var stats SignalStats
	stats.Observe([]int16{0, 100, -200, 300})

	if stats.Samples != 4 {
		t.Errorf("Expected 4 samples, got %d", stats.Samples)
	}
	if stats.NonZero != 3 {
		t.Errorf("Expected 3 non-zero samples, got %d", stats.NonZero)
	}
	if stats.Peak != 300 {
		t.Errorf("Expected peak 300, got %d", stats.Peak)
	}
	if got := stats.Average(); got != 150 {
		t.Errorf("Expected average 150, got %f", got)
	}

	// A second block accumulates rather than resets.
	stats.Observe([]int16{-32768})
	if stats.Samples != 5 {
		t.Errorf("Expected 5 samples after second block, got %d", stats.Samples)
	}
	if stats.Peak != 32768 {
		t.Errorf("Expected peak 32768, got %d", stats.Peak)
	}
}

func TestSignalStatsStrength(t *testing.T) {
	tests := []struct {
		name     string
		samples  []int16
		expected string
	}{
		{"silent", []int16{0, 0, 0, 0}, StrengthSilent},
		{"minimal", []int16{0, 0, 1, 0}, StrengthMinimal},
		{"weak", []int16{200, -200, 200, -200}, StrengthWeak},
		{"strong", []int16{5000, -5000, 5000, -5000}, StrengthStrong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stats SignalStats
			stats.Observe(tt.samples)
			if got := stats.Strength(); got != tt.expected {
				t.Errorf("Expected strength %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestObserveBytesMatchesObserve(t *testing.T) {
	samples := Tone(440, 0.05, 16000, 0.6)

	var fromSamples, fromBytes SignalStats
	fromSamples.Observe(samples)
	fromBytes.ObserveBytes(SamplesToBytes(samples))

	if fromSamples != fromBytes {
		t.Errorf("Byte and sample paths disagree: %+v vs %+v", fromSamples, fromBytes)
	}
}

func TestDominantFrequency(t *testing.T) {
	rate := 16000
	samples := Tone(440, 0.1, rate, 0.8)

	got := DominantFrequency(samples, rate)
	if math.Abs(got-440) > 10 {
		t.Errorf("Expected dominant frequency near 440 Hz, got %.1f", got)
	}
}

func TestDominantFrequencyEdgeCases(t *testing.T) {
	if got := DominantFrequency(nil, 16000); got != 0 {
		t.Errorf("Expected 0 for empty input, got %f", got)
	}
	if got := DominantFrequency(make([]int16, 512), 16000); got != 0 {
		t.Errorf("Expected 0 for silence, got %f", got)
	}
	if got := DominantFrequency([]int16{1, 2, 3}, 0); got != 0 {
		t.Errorf("Expected 0 for zero sample rate, got %f", got)
	}
}
