package mixdown

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const wavHeaderSize = 44

// Wav encodes the buffer as a canonical 16-bit PCM .wav file.
func Wav(buffer AudioBuffer) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + buffer.Frames()*buffer.NumChannels()*2)
	if err := WriteWav(&buf, buffer); err != nil {
		return nil, fmt.Errorf("Wav failed: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteWav writes the buffer to w as a canonical 16-bit PCM .wav stream:
// a 44 byte RIFF header followed by the interleaved little-endian samples.
func WriteWav(w io.Writer, buffer AudioBuffer) error {
	channels := buffer.NumChannels()
	if channels == 0 {
		return fmt.Errorf("%w: no channels", ErrEmptyBuffer)
	}
	if buffer.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", buffer.SampleRate)
	}
	frames := buffer.Frames()
	if err := wavHeader(w, frames, channels, buffer.SampleRate); err != nil {
		return fmt.Errorf("could not write wav header: %w", err)
	}
	pcm := make([]int16, frames*channels)
	for c, data := range buffer.Data {
		for i := 0; i < frames; i++ {
			pcm[i*channels+c] = pcm16(data[i])
		}
	}
	if err := binary.Write(w, binary.LittleEndian, pcm); err != nil {
		return fmt.Errorf("could not binary write data: %w", err)
	}
	return nil
}

// wavHeader writes the RIFF header for frames of 16-bit audio. Refer to:
// http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
func wavHeader(w io.Writer, frames, channels, sampleRate int) error {
	blockAlign := channels * 2
	dataLength := frames * blockAlign
	header := struct {
		Riff          [4]byte
		ChunkSize     uint32
		Wave          [4]byte
		Fmt           [4]byte
		FmtSize       uint32
		Format        uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Data          [4]byte
		DataSize      uint32
	}{
		Riff:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + dataLength),
		Wave:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		Format:        1, // PCM
		Channels:      uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: 16,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(dataLength),
	}
	return binary.Write(w, binary.LittleEndian, &header)
}

// pcm16 clamps to [-1, 1] and scales asymmetrically, so that -1 maps to
// -32768 and 1 to 32767.
func pcm16(v float32) int16 {
	s := float64(v)
	if math.IsNaN(s) {
		return 0
	}
	s = min(max(s, -1), 1)
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}
