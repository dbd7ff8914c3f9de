package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// wavHeaderSize is the size of a canonical RIFF/WAVE header with a 16-byte
// fmt chunk immediately followed by the data chunk.
const wavHeaderSize = 44

// wavHeader is the canonical WAV file header.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
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
	Subchunk2Size uint32  // Number of bytes in the data chunk
}

// parseWAVHeader decodes and validates a canonical 44-byte WAV header.
// Headers with extra chunks between fmt and data are rejected so the caller
// can fall back to byte-range splitting.
func parseWAVHeader(raw []byte) (*wavHeader, error) {
	if len(raw) < wavHeaderSize {
		return nil, fmt.Errorf("WAV header too short: need %d bytes, got %d", wavHeaderSize, len(raw))
	}
	var header wavHeader
	if err := binary.Read(bytes.NewReader(raw[:wavHeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read WAV header: %w", err)
	}
	if string(header.ChunkID[:]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(header.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	}
	if string(header.Subchunk1ID[:]) != "fmt " {
		return nil, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	if string(header.Subchunk2ID[:]) != "data" {
		return nil, fmt.Errorf("non-canonical WAV layout: data chunk not at offset 36")
	}
	if header.BlockAlign == 0 {
		return nil, fmt.Errorf("invalid WAV file: zero block align")
	}
	return &header, nil
}

// encodeSegmentHeader rebuilds the header for a segment carrying dataSize
// payload bytes, preserving the source's sample format.
func (h *wavHeader) encodeSegmentHeader(dataSize uint32) []byte {
	segment := *h
	segment.Subchunk2Size = dataSize
	segment.ChunkSize = 36 + dataSize

	var buf bytes.Buffer
	// Writing a fixed-size struct to a buffer cannot fail.
	binary.Write(&buf, binary.LittleEndian, &segment)
	return buf.Bytes()
}

// duration returns the play time in seconds of dataBytes payload bytes.
func (h *wavHeader) duration(dataBytes int64) float64 {
	if h.ByteRate == 0 {
		return 0
	}
	return float64(dataBytes) / float64(h.ByteRate)
}
