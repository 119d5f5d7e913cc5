package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the fixed length of the canonical linear-PCM WAV header.
const HeaderSize = 44

// Byte offsets of the two size fields inside the header, used when a
// truncated file is patched on close.
const (
	chunkSizeOffset = 4
	dataSizeOffset  = 40
)

// Header is the canonical 44-byte little-endian WAV preamble. It is computed
// once before streaming begins and written exactly once; it is never mutated
// after the write (an aborted session leaves it describing the intended
// size unless patching is explicitly enabled).
type Header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // data size + 36 (file size - 8)
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // payload bytes following the header
}

// NewHeader builds the header for a PCM stream of the given format carrying
// exactly dataSize payload bytes. Pure function of its inputs.
func NewHeader(f Format, dataSize uint32) Header {
	return Header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     dataSize + 36,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(f.Channels),
		SampleRate:    uint32(f.SampleRate),
		ByteRate:      uint32(f.ByteRate()),
		BlockAlign:    uint16(f.BlockAlign()),
		BitsPerSample: uint16(f.BitsPerSample),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// Encode serializes the header into its 44-byte on-disk form.
func (h Header) Encode() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize))
	if err := binary.Write(buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("failed to encode WAV header: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeHeader parses and validates a header from the start of data.
func DecodeHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", HeaderSize, len(data))
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("failed to read WAV header: %w", err)
	}
	if err := h.Validate(); err != nil {
		return h, err
	}
	return h, nil
}

// Validate checks the magic tags and the PCM invariants.
func (h Header) Validate() error {
	if string(h.ChunkID[:]) != "RIFF" {
		return fmt.Errorf("invalid WAV header: missing RIFF tag")
	}
	if string(h.Format[:]) != "WAVE" {
		return fmt.Errorf("invalid WAV header: missing WAVE tag")
	}
	if string(h.Subchunk1ID[:]) != "fmt " {
		return fmt.Errorf("invalid WAV header: missing fmt chunk")
	}
	if string(h.Subchunk2ID[:]) != "data" {
		return fmt.Errorf("invalid WAV header: missing data chunk")
	}
	if h.AudioFormat != 1 {
		return fmt.Errorf("unsupported audio format %d, only PCM is supported", h.AudioFormat)
	}
	if h.Subchunk1Size != 16 {
		return fmt.Errorf("unsupported fmt chunk size %d, expected 16", h.Subchunk1Size)
	}
	if h.SampleRate == 0 {
		return fmt.Errorf("invalid WAV header: zero sample rate")
	}
	if h.NumChannels == 0 || h.BitsPerSample == 0 {
		return fmt.Errorf("invalid WAV header: zero channel count or bit depth")
	}
	return nil
}

// PCMFormat returns the stream format the header describes.
func (h Header) PCMFormat() Format {
	return Format{
		SampleRate:    int(h.SampleRate),
		BitsPerSample: int(h.BitsPerSample),
		Channels:      int(h.NumChannels),
	}
}

// Duration returns the declared payload length in seconds.
func (h Header) Duration() float64 {
	return h.PCMFormat().Seconds(uint64(h.Subchunk2Size))
}

// PatchSizes rewrites the two size fields in an already-written header so
// they describe dataSize payload bytes. Used only when a session aborts
// early and the deviation from leave-as-is behavior is explicitly enabled.
func PatchSizes(ws io.WriteSeeker, dataSize uint32) error {
	var field [4]byte

	binary.LittleEndian.PutUint32(field[:], dataSize+36)
	if _, err := ws.Seek(chunkSizeOffset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to chunk size: %w", err)
	}
	if _, err := ws.Write(field[:]); err != nil {
		return fmt.Errorf("failed to patch chunk size: %w", err)
	}

	binary.LittleEndian.PutUint32(field[:], dataSize)
	if _, err := ws.Seek(dataSizeOffset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to data size: %w", err)
	}
	if _, err := ws.Write(field[:]); err != nil {
		return fmt.Errorf("failed to patch data size: %w", err)
	}

	return nil
}
