package audio

import (
	"math"
	"testing"
)

func TestToneRest(t *testing.T) {
	samples := Tone(0, 0.1, 16000, 0.3)
	if len(samples) != 1600 {
		t.Fatalf("Expected 1600 samples, got %d", len(samples))
	}
	for i, s := range samples {
		if s != 0 {
			t.Fatalf("Sample %d of a rest is %d, expected 0", i, s)
		}
	}
}

func TestToneEnvelope(t *testing.T) {
	// A half-second note fades over its first and last 50 ms.
	samples := Tone(440, 0.5, 16000, 0.3)
	if len(samples) != 8000 {
		t.Fatalf("Expected 8000 samples, got %d", len(samples))
	}

	if samples[0] != 0 {
		t.Errorf("Expected silent first sample, got %d", samples[0])
	}

	ceilingScale := 0.3 * 32767
	ceiling := int16(ceilingScale) + 1
	var peak int16
	for _, s := range samples {
		a := s
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	if peak > ceiling {
		t.Errorf("Peak %d exceeds amplitude ceiling %d", peak, ceiling)
	}
	if peak < ceiling/2 {
		t.Errorf("Peak %d suspiciously low for amplitude 0.3", peak)
	}

	// Fade regions stay below the mid-note level.
	fadeSamples := 16000 / 20 // 50 ms
	for _, i := range []int{fadeSamples / 10, len(samples) - fadeSamples/10} {
		a := samples[i]
		if a < 0 {
			a = -a
		}
		if a > ceiling/4 {
			t.Errorf("Sample %d in fade region has amplitude %d, expected a gentle ramp", i, a)
		}
	}
}

func TestToneShortNoteSkipsEnvelope(t *testing.T) {
	// Notes of 100 ms or less are emitted without fades.
	samples := Tone(1000, 0.1, 16000, 0.5)
	quarterPeriod := 16000 / 1000 / 4
	a := samples[quarterPeriod]
	if a < 0 {
		a = -a
	}
	crestScale := 0.4 * 32767
	if a < int16(crestScale) {
		t.Errorf("Expected near-full amplitude at first crest, got %d", a)
	}
}

func TestRenderMelodyDefaults(t *testing.T) {
	samples, err := RenderMelody(HappyBirthday, MelodyConfig{})
	if err != nil {
		t.Fatalf("RenderMelody failed: %v", err)
	}

	// Padded or trimmed to exactly ten seconds at 16 kHz.
	if len(samples) != 160000 {
		t.Errorf("Expected exactly 160000 samples, got %d", len(samples))
	}

	var stats SignalStats
	stats.Observe(samples)
	if stats.NonZero == 0 {
		t.Error("Rendered melody is silent")
	}
	if float64(stats.Peak) > 0.3*32767+1 {
		t.Errorf("Peak %d exceeds configured amplitude", stats.Peak)
	}
}

func TestRenderMelodyNaturalLength(t *testing.T) {
	// 25 beats at 120 BPM plus 25 gaps of 50 ms: 13.75 s before trimming.
	samples, err := RenderMelody(HappyBirthday, MelodyConfig{Seconds: -1})
	if err != nil {
		t.Fatalf("RenderMelody failed: %v", err)
	}
	if len(samples) != 220000 {
		t.Errorf("Expected 220000 samples before trimming, got %d", len(samples))
	}
}

func TestRenderMelodyPadsShortInput(t *testing.T) {
	short := []Note{{"A4", 1}}
	samples, err := RenderMelody(short, MelodyConfig{Seconds: 2})
	if err != nil {
		t.Fatalf("RenderMelody failed: %v", err)
	}
	if len(samples) != 32000 {
		t.Fatalf("Expected padding to 32000 samples, got %d", len(samples))
	}

	// Everything past the note and its gap is padding silence.
	for i := 9000; i < len(samples); i++ {
		if samples[i] != 0 {
			t.Fatalf("Expected silence at padded sample %d, got %d", i, samples[i])
		}
	}
}

func TestRenderMelodyErrors(t *testing.T) {
	if _, err := RenderMelody(nil, MelodyConfig{}); err == nil {
		t.Error("Expected error for empty melody")
	}
	if _, err := RenderMelody([]Note{{"H9", 1}}, MelodyConfig{}); err == nil {
		t.Error("Expected error for unknown pitch")
	}
	if _, err := RenderMelody(HappyBirthday, MelodyConfig{BPM: -10}); err == nil {
		t.Error("Expected error for negative bpm")
	}
}

func TestToneFrequencyAccuracy(t *testing.T) {
	rate := 16000
	for _, freq := range []float64{261.63, 440, 523.25} {
		samples := Tone(freq, 0.1, rate, 0.8)
		got := DominantFrequency(samples, rate)
		if math.Abs(got-freq) > 15 {
			t.Errorf("Tone at %.2f Hz measured as %.2f Hz", freq, got)
		}
	}
}
