package audio

import (
	"fmt"
	"math"
)

// Melody rendering defaults, matching the generated birthday song: ten
// seconds of 16-bit mono at 16 kHz, moderate volume to avoid clipping.
const (
	MelodyBPM        = 120.0
	MelodyAmplitude  = 0.3
	MelodySampleRate = 16000
	MelodyNoteGap    = 0.05 // seconds of silence between notes
	MelodySeconds    = 10.0
)

// Note is one melody step: a pitch name and a length in beats.
type Note struct {
	Pitch string
	Beats float64
}

// NoteFrequencies maps pitch names to fundamental frequencies in Hz.
// "REST" renders as silence.
var NoteFrequencies = map[string]float64{
	"C4": 261.63, "D4": 293.66, "E4": 329.63, "F4": 349.23,
	"G4": 392.00, "A4": 440.00, "B4": 493.88, "C5": 523.25,
	"REST": 0,
}

// HappyBirthday is the built-in melody. At 120 BPM it runs just under ten
// seconds before padding.
var HappyBirthday = []Note{
	{"C4", 0.75}, {"C4", 0.25}, {"D4", 1}, {"C4", 1}, {"F4", 1}, {"E4", 2},
	{"C4", 0.75}, {"C4", 0.25}, {"D4", 1}, {"C4", 1}, {"G4", 1}, {"F4", 2},
	{"C4", 0.75}, {"C4", 0.25}, {"C5", 1}, {"A4", 1}, {"F4", 1}, {"E4", 1}, {"D4", 2},
	{"B4", 0.75}, {"B4", 0.25}, {"A4", 1}, {"F4", 1}, {"G4", 1}, {"F4", 2},
}

// MelodyConfig controls RenderMelody. Zero-valued fields fall back to the
// song defaults above.
type MelodyConfig struct {
	BPM        float64
	Amplitude  float64
	SampleRate int
	NoteGap    float64 // seconds between notes
	Seconds    float64 // pad or trim the result to exactly this length; negative keeps the natural length
}

func (c MelodyConfig) withDefaults() MelodyConfig {
	if c.BPM == 0 {
		c.BPM = MelodyBPM
	}
	if c.Amplitude == 0 {
		c.Amplitude = MelodyAmplitude
	}
	if c.SampleRate == 0 {
		c.SampleRate = MelodySampleRate
	}
	if c.NoteGap == 0 {
		c.NoteGap = MelodyNoteGap
	}
	if c.Seconds == 0 {
		c.Seconds = MelodySeconds
	}
	return c
}

// Tone synthesizes one sine note as 16-bit mono PCM. Notes longer than
// 100 ms get a linear fade-in and fade-out of min(50 ms, duration/4) so
// note boundaries do not click. A zero frequency renders silence.
func Tone(frequency, seconds float64, sampleRate int, amplitude float64) []int16 {
	n := int(float64(sampleRate) * seconds)
	if n <= 0 {
		return nil
	}
	out := make([]int16, n)
	if frequency == 0 {
		return out
	}

	fade := 0.0
	if seconds > 0.1 {
		fade = math.Min(0.05, seconds/4)
	}

	for i := range out {
		t := float64(i) / float64(sampleRate)
		envelope := 1.0
		if fade > 0 {
			if t < fade {
				envelope = t / fade
			} else if t > seconds-fade {
				envelope = (seconds - t) / fade
			}
		}
		s := int(amplitude * envelope * math.Sin(2*math.Pi*frequency*t) * 32767)
		if s > 32767 {
			s = 32767
		}
		if s < -32768 {
			s = -32768
		}
		out[i] = int16(s)
	}
	return out
}

// RenderMelody synthesizes a melody into 16-bit mono PCM, inserting the
// configured gap after every note and padding or trimming to the configured
// total length.
func RenderMelody(melody []Note, cfg MelodyConfig) ([]int16, error) {
	if len(melody) == 0 {
		return nil, fmt.Errorf("cannot render an empty melody")
	}
	cfg = cfg.withDefaults()
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.BPM <= 0 {
		return nil, fmt.Errorf("bpm must be positive, got %f", cfg.BPM)
	}

	beat := 60.0 / cfg.BPM
	var out []int16
	for i, note := range melody {
		frequency, ok := NoteFrequencies[note.Pitch]
		if !ok {
			return nil, fmt.Errorf("melody note %d: unknown pitch %q", i, note.Pitch)
		}
		out = append(out, Tone(frequency, note.Beats*beat, cfg.SampleRate, cfg.Amplitude)...)
		out = append(out, Tone(0, cfg.NoteGap, cfg.SampleRate, 0)...)
	}

	if cfg.Seconds > 0 {
		target := int(float64(cfg.SampleRate) * cfg.Seconds)
		if len(out) < target {
			out = append(out, make([]int16, target-len(out))...)
		} else if len(out) > target {
			out = out[:target]
		}
	}
	return out, nil
}
