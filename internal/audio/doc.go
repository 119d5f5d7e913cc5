// Package audio defines the PCM stream model shared by the capture and
// playback flows: format arithmetic, the 44-byte container header codec,
// the reusable capture block, playback waveform tables, melody synthesis,
// and amplitude analysis.
package audio
