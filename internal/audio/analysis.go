package audio

import (
	"encoding/binary"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Signal strength classes derived from average absolute amplitude.
const (
	StrengthStrong  = "strong"  // avg > 1000
	StrengthWeak    = "weak"    // avg > 100
	StrengthMinimal = "minimal" // any non-zero sample
	StrengthSilent  = "silent"
)

// SignalStats accumulates amplitude statistics over 16-bit PCM blocks. The
// zero value is ready to use; it is not safe for concurrent observers.
type SignalStats struct {
	Samples uint64
	NonZero uint64
	Peak    int32 // largest absolute sample seen

	sum uint64 // running sum of absolute amplitudes
}

// Observe folds one block of samples into the running statistics.
func (s *SignalStats) Observe(samples []int16) {
	for _, v := range samples {
		a := int32(v)
		if a < 0 {
			a = -a
		}
		s.sum += uint64(a)
		if a > s.Peak {
			s.Peak = a
		}
		if a != 0 {
			s.NonZero++
		}
	}
	s.Samples += uint64(len(samples))
}

// ObserveBytes folds a block of little-endian 16-bit samples without
// allocating, for use inside the capture loop. A trailing odd byte is
// ignored.
func (s *SignalStats) ObserveBytes(data []byte) {
	n := len(data) / 2
	for i := 0; i < n; i++ {
		a := int32(int16(binary.LittleEndian.Uint16(data[i*2:])))
		if a < 0 {
			a = -a
		}
		s.sum += uint64(a)
		if a > s.Peak {
			s.Peak = a
		}
		if a != 0 {
			s.NonZero++
		}
	}
	s.Samples += uint64(n)
}

// Average returns the mean absolute amplitude of everything observed.
func (s *SignalStats) Average() float64 {
	if s.Samples == 0 {
		return 0
	}
	return float64(s.sum) / float64(s.Samples)
}

// Strength classifies the observed signal by average amplitude.
func (s *SignalStats) Strength() string {
	avg := s.Average()
	switch {
	case avg > 1000:
		return StrengthStrong
	case avg > 100:
		return StrengthWeak
	case s.NonZero > 0:
		return StrengthMinimal
	default:
		return StrengthSilent
	}
}

// DominantFrequency estimates the strongest spectral component of a sample
// block in Hz. Returns 0 for empty or silent input. The DC bin is skipped
// and only the unique half of the spectrum is scanned.
func DominantFrequency(samples []int16, sampleRate int) float64 {
	if len(samples) < 2 || sampleRate <= 0 {
		return 0
	}

	buf := make([]float64, len(samples))
	for i, v := range samples {
		buf[i] = float64(v) / 32768
	}

	spectrum := fft.FFTReal(buf)
	bestBin := 0
	bestMag := 0.0
	for i := 1; i < len(spectrum)/2; i++ {
		if mag := cmplx.Abs(spectrum[i]); mag > bestMag {
			bestBin = i
			bestMag = mag
		}
	}
	if bestBin == 0 {
		return 0
	}
	return float64(bestBin) * float64(sampleRate) / float64(len(samples))
}
