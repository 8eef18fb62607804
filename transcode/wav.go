package transcode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/SonixLabs/SilenceKit/audio"
)

// wavHeader is the 44-byte PCM WAV header the encoder emits.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// fmtChunk is the payload of a PCM "fmt " chunk.
type fmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

const (
	wavHeaderSize   = 44
	riffHeaderSize  = 12
	chunkHeaderSize = 8
)

// DecodeWAV reads a canonical WAV file (the normalizer's output) into a
// CanonicalAudio value. Only mono 16-bit PCM is accepted; anything else
// means the normalizer contract was violated upstream.
func DecodeWAV(path string) (*audio.CanonicalAudio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	return decodeWAVBytes(data)
}

// decodeWAVBytes walks the RIFF chunk list rather than assuming a flat
// 44-byte layout: ffmpeg's WAV muxer inserts a LIST/INFO metadata chunk
// between "fmt " and "data", and treating it as samples would silently
// corrupt the analysis. Chunks other than "fmt " and "data" are skipped.
func decodeWAVBytes(data []byte) (*audio.CanonicalAudio, error) {
	if len(data) < riffHeaderSize {
		return nil, fmt.Errorf("%w: WAV data too short (%d bytes)", ErrTranscodeFailure, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a WAV file", ErrUnsupportedFormat)
	}

	var format *fmtChunk
	offset := riffHeaderSize
	for offset+chunkHeaderSize <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := data[offset+chunkHeaderSize:]
		if size > len(body) {
			// A truncated or over-claiming chunk; decode what is present.
			size = len(body)
		}

		switch id {
		case "fmt ":
			var fc fmtChunk
			if err := binary.Read(bytes.NewReader(body[:size]), binary.LittleEndian, &fc); err != nil {
				return nil, fmt.Errorf("%w: reading fmt chunk: %v", ErrTranscodeFailure, err)
			}
			switch {
			case fc.AudioFormat != 1:
				return nil, fmt.Errorf("%w: WAV audio format %d, want PCM", ErrUnsupportedFormat, fc.AudioFormat)
			case fc.BitsPerSample != 16:
				return nil, fmt.Errorf("%w: %d bits per sample, want 16", ErrUnsupportedFormat, fc.BitsPerSample)
			case fc.NumChannels != 1:
				return nil, fmt.Errorf("%w: %d channels, want mono", ErrUnsupportedFormat, fc.NumChannels)
			}
			format = &fc
		case "data":
			if format == nil {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrTranscodeFailure)
			}
			numSamples := size / 2
			samples := make([]int16, numSamples)
			for i := 0; i < numSamples; i++ {
				samples[i] = int16(binary.LittleEndian.Uint16(body[i*2:]))
			}
			return &audio.CanonicalAudio{
				SampleRate: int(format.SampleRate),
				Samples:    samples,
			}, nil
		}

		// Chunks are word-aligned; an odd size carries a pad byte.
		offset += chunkHeaderSize + size + size%2
	}
	return nil, fmt.Errorf("%w: missing data chunk", ErrTranscodeFailure)
}

// EncodeWAV writes mono 16-bit PCM samples as a WAV byte stream. Used by
// tests and tooling that synthesize canonical audio.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	dataSize := uint32(len(samples) * 2)
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("writing WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("writing WAV data: %w", err)
	}
	return buf.Bytes(), nil
}
